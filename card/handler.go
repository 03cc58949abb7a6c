package card

import (
	"crypto/rsa"

	"github.com/go-pivert/pivert/internal/apdu"
	"github.com/go-pivert/pivert/objects"
	"github.com/go-pivert/pivert/pivlog"
)

// atr is the bit-exact 23-byte Answer-To-Reset spec.md section 6
// requires this emulator to advertise.
var atr = []byte{
	0x3B, 0x9F, 0x95, 0x81, 0x31, 0xFE, 0x9F, 0x00, 0x66, 0x46,
	0x53, 0x05, 0x10, 0x00, 0x11, 0x71, 0xDF, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x02,
}

// baseCLA is the only base CLA (chaining bit masked out) this emulator
// recognizes, per spec.md section 4.5's dispatch table.
const baseCLA = 0x00

// Card is a single emulated PIV card session. It owns the operator's
// certificate and private key, the CHUID/CCC data objects built once at
// construction, and the chaining session state. A Card is not safe for
// concurrent use by more than one caller at a time: spec.md section 5
// requires the transport to serialize APDUs and await each response
// before sending the next.
type Card struct {
	cfg     Config
	certDER []byte
	key     *rsa.PrivateKey

	chuid *objects.CHUID
	ccc   *objects.CCC

	session session
}

// NewCard constructs a Card presenting certDER and backed by key. cfg's
// zero value selects crypto/rand for randomness and literal RSA modular
// exponentiation for signing.
func NewCard(certDER []byte, key *rsa.PrivateKey, cfg Config) (*Card, error) {
	if cfg.RNG == nil {
		cfg.RNG = DefaultRNG()
	}
	if cfg.Signer == nil {
		cfg.Signer = NewRSASigner(key)
	}
	cfg.Logger = pivlog.Nop(cfg.Logger)

	chuid := objects.NewCHUID()
	if err := chuid.SetRandomGuid(cfg.RNG); err != nil {
		return nil, err
	}
	ccc := objects.NewCCC()
	if err := ccc.SetRandomCardID(cfg.RNG); err != nil {
		return nil, err
	}

	return &Card{
		cfg:     cfg,
		certDER: certDER,
		key:     key,
		chuid:   chuid,
		ccc:     ccc,
	}, nil
}

// ATR returns the fixed Answer-To-Reset bytes.
func (c *Card) ATR() []byte {
	out := make([]byte, len(atr))
	copy(out, atr)
	return out
}

// Reset clears any chaining state and returns the ATR. warm distinguishes
// a warm reset from a cold one; the emulator behaves identically either
// way since it has no persisted state to discard.
func (c *Card) Reset(warm bool) []byte {
	c.session.clearRequest()
	c.session.clearResponse()
	return c.ATR()
}

// ProcessAPDU dispatches one command APDU and always returns a response
// ending in a valid SW1SW2. It never panics on malformed input; anything
// it cannot parse or does not recognize is reduced to a status word.
func (c *Card) ProcessAPDU(raw []byte) []byte {
	c.session.apduCount++
	cmd, err := apdu.ParseCommand(raw)
	if err != nil {
		c.cfg.Logger.ErrorMsgf(err, "card: malformed APDU")
		return c.respond(nil, apdu.SWInsNotSupported)
	}

	c.cfg.Logger.DebugMsgf("card: dispatching INS %02X P1 %02X P2 %02X", cmd.INS, cmd.P1, cmd.P2)

	if cmd.INS != 0xC0 {
		// Interleaving a non-GET-RESPONSE APDU abandons any response
		// still being drained (spec.md section 9, open question).
		c.session.clearResponse()
	}

	if cmd.CLA&^apdu.ChainingBit != baseCLA {
		c.cfg.Logger.ErrorMsgf(nil, "card: unsupported CLA %02X", cmd.CLA)
		return c.respond(nil, apdu.SWInsNotSupported)
	}

	switch cmd.INS {
	case 0xA4:
		if cmd.P1 != 0x04 {
			return c.respond(nil, apdu.SWInsNotSupported)
		}
		return c.handleSelect(cmd.Data)
	case 0x20:
		if cmd.P1 != 0x00 || cmd.P2 != 0x80 {
			return c.respond(nil, apdu.SWInsNotSupported)
		}
		return c.respond(nil, apdu.SWSuccess)
	case 0x87:
		return c.handleGeneralAuthenticate(cmd)
	case 0xC0:
		if cmd.P1 != 0x00 || cmd.P2 != 0x00 {
			return c.respond(nil, apdu.SWInsNotSupported)
		}
		segment, sw := c.session.drain()
		return c.respond(segment, sw)
	case 0xCB:
		if cmd.P1 != 0x3F || cmd.P2 != 0xFF {
			return c.respond(nil, apdu.SWInsNotSupported)
		}
		return c.handleGetData(cmd.Data)
	default:
		c.cfg.Logger.ErrorMsgf(nil, "card: unknown INS %02X", cmd.INS)
		return c.respond(nil, apdu.SWInsNotSupported)
	}
}

// respond serializes a response APDU from a body and a status word,
// without consulting response chaining.
func (c *Card) respond(body []byte, sw uint16) []byte {
	return apdu.NewResponse(body, sw).Serialize()
}

// chainedResponse routes body through response chaining before
// serializing, per spec.md section 4.5.
func (c *Card) chainedResponse(body []byte) []byte {
	segment, sw := c.session.chain(body)
	return c.respond(segment, sw)
}

// counters returns the number of APDUs processed and GET RESPONSE drains
// performed this session. It exists for spec.md section 8's chaining
// property tests, not as an observability surface.
func (c *Card) counters() (apdus, drains uint64) {
	return c.session.apduCount, c.session.drainCount
}
