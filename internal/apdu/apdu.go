// Package apdu implements the ISO 7816 command/response APDU codec
// described in spec.md section 4.3: short-form and extended-length
// encodings of Nc and Ne, parsed from raw bytes on the way in and
// serialized to raw bytes on the way out.
//
// Grounded on the teacher's piv/pcsc.go apdu struct and scTx.Transmit
// (the 0x10-CLA chaining byte, the 0xFF-chunking loop for outbound
// command chaining, the short-form Lc/Le byte layout), inverted here from
// "client transmits, maybe chunked" to "server parses, maybe
// extended-encoded".
package apdu

import "github.com/go-pivert/pivert/internal/perr"

// NeMax is the sentinel value for Command.Ne meaning "the maximum number
// of response bytes the chosen encoding can represent" (256 for short,
// 65536 for extended), as distinct from an explicit numeric Ne.
const NeMax = -1

// ChainingBit is the CLA bit (spec.md section 3) marking command
// chaining: more command data will follow in a subsequent APDU.
const ChainingBit = 0x10

// Command is a parsed or to-be-serialized command APDU.
type Command struct {
	CLA, INS, P1, P2 byte
	Data             []byte
	Ne               int // 0, 1..65536, or NeMax
}

// Chained reports whether CLA's command-chaining bit is set.
func (c *Command) Chained() bool {
	return c.CLA&ChainingBit != 0
}

// Form identifies an APDU's short or extended encoding.
type Form int

const (
	Short Form = iota
	Extended
)

// EncodingForm returns the derived encoding-form attribute from spec.md
// section 3: short when Nc <= 255 and Ne <= 256, extended otherwise. Ne ==
// NeMax counts as satisfying the Ne <= 256 bound here since the sentinel
// simply asks for the largest value the chosen form supports.
func (c *Command) EncodingForm() Form {
	nc := len(c.Data)
	neOK := c.Ne == NeMax || c.Ne <= 256
	if nc <= 255 && neOK {
		return Short
	}
	return Extended
}

func unexpectedEnd(op, msg string) error {
	return perr.New(perr.UnexpectedEnd, op, msg)
}

// ParseCommand decodes a raw command APDU, accepting both short and
// extended encodings per spec.md section 4.3's length-based case
// determination. It never returns a Go error for a well-formed header; a
// malformed length trailer yields UnexpectedEnd.
func ParseCommand(raw []byte) (*Command, error) {
	const op = "apdu.ParseCommand"
	if len(raw) < 4 {
		return nil, unexpectedEnd(op, "APDU shorter than 4-byte header")
	}
	cmd := &Command{CLA: raw[0], INS: raw[1], P1: raw[2], P2: raw[3]}
	l := len(raw)

	switch {
	case l == 4:
		// Case 1: header only, no data, no Le.
		return cmd, nil
	case l == 5:
		// Case 2S: header + 1-byte Le.
		cmd.Ne = decodeShortLe(raw[4])
		return cmd, nil
	}

	lc := raw[4]
	if lc != 0x00 {
		// Short-form data: Lc is a nonzero single byte, 1-255.
		nc := int(lc)
		switch {
		case l == 5+nc:
			cmd.Data = cloneBytes(raw[5 : 5+nc])
			return cmd, nil
		case l == 6+nc:
			cmd.Data = cloneBytes(raw[5 : 5+nc])
			cmd.Ne = decodeShortLe(raw[5+nc])
			return cmd, nil
		default:
			return nil, unexpectedEnd(op, "short-form length does not match APDU size")
		}
	}

	// Extended form: leading Lc byte is 0x00.
	if l < 7 {
		return nil, unexpectedEnd(op, "extended form requires at least 7 bytes")
	}
	extLen := int(raw[5])<<8 | int(raw[6])
	if l == 7 {
		// Case 2E: extended Le only, no data. 0 means 65536.
		cmd.Ne = decodeExtendedLe(extLen)
		return cmd, nil
	}
	// l > 7: the two bytes just read are Nc, not Le. 0 means 65536 data
	// bytes, distinguishable from the Case 2E reading above only by the
	// fact that more bytes follow.
	nc := extLen
	if nc == 0 {
		nc = 65536
	}
	switch {
	case l == 7+nc:
		// Case 3E: extended data, no Le.
		cmd.Data = cloneBytes(raw[7 : 7+nc])
		return cmd, nil
	case l == 9+nc:
		// Case 4E: extended data + 2-byte Le.
		cmd.Data = cloneBytes(raw[7 : 7+nc])
		leVal := int(raw[7+nc])<<8 | int(raw[8+nc])
		cmd.Ne = decodeExtendedLe(leVal)
		return cmd, nil
	default:
		return nil, unexpectedEnd(op, "extended-form length does not match APDU size")
	}
}

func decodeShortLe(b byte) int {
	if b == 0 {
		return 256
	}
	return int(b)
}

func decodeExtendedLe(v int) int {
	if v == 0 {
		return 65536
	}
	return v
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Selector picks the encoding used to serialize a Command.
type Selector int

const (
	Automatic Selector = iota
	ForceShort
	ForceExtended
)

// Serialize renders cmd to raw bytes per the selected encoding. Automatic
// picks Short when both Nc and Ne fit the short form's physical limits (Nc
// <= 255, Ne <= 256 or NeMax), Extended otherwise, failing with
// NoValidEncoding only when neither form can represent the command (Nc >
// 65536 or explicit Ne > 65536).
func (c *Command) Serialize(sel Selector) ([]byte, error) {
	const op = "apdu.Serialize"
	nc := len(c.Data)
	chosen := sel
	if sel == Automatic {
		if nc <= 255 && (c.Ne == NeMax || c.Ne <= 256) {
			chosen = ForceShort
		} else {
			chosen = ForceExtended
		}
	}

	switch chosen {
	case ForceShort:
		return c.serializeShort(op)
	case ForceExtended:
		return c.serializeExtended(op)
	default:
		return nil, perr.New(perr.NoValidEncoding, op, "unknown selector")
	}
}

func (c *Command) serializeShort(op string) ([]byte, error) {
	nc := len(c.Data)
	if nc > 255 {
		return nil, perr.New(perr.NoValidEncoding, op, "data too long for short form")
	}
	if c.Ne != NeMax && c.Ne > 256 {
		return nil, perr.New(perr.NoValidEncoding, op, "Ne too large for short form")
	}
	out := []byte{c.CLA, c.INS, c.P1, c.P2}
	if nc > 0 {
		out = append(out, byte(nc))
		out = append(out, c.Data...)
	}
	if c.Ne != 0 {
		le := byte(0)
		if c.Ne != NeMax && c.Ne != 256 {
			le = byte(c.Ne)
		}
		out = append(out, le)
	}
	return out, nil
}

func (c *Command) serializeExtended(op string) ([]byte, error) {
	nc := len(c.Data)
	if nc > 65536 {
		return nil, perr.New(perr.NoValidEncoding, op, "data too long for extended form")
	}
	if c.Ne != NeMax && c.Ne > 65536 {
		return nil, perr.New(perr.NoValidEncoding, op, "Ne too large for extended form")
	}
	out := []byte{c.CLA, c.INS, c.P1, c.P2}
	if nc > 0 {
		lcVal := nc
		if lcVal == 65536 {
			lcVal = 0
		}
		out = append(out, 0x00, byte(lcVal>>8), byte(lcVal))
		out = append(out, c.Data...)
	}
	if c.Ne != 0 {
		leVal := c.Ne
		if c.Ne == NeMax || c.Ne == 65536 {
			leVal = 0
		}
		if nc == 0 {
			out = append(out, 0x00, byte(leVal>>8), byte(leVal))
		} else {
			out = append(out, byte(leVal>>8), byte(leVal))
		}
	}
	return out, nil
}

// Response is a response APDU: an optional data body followed by the
// two-byte status word.
type Response struct {
	Data []byte
	SW1  byte
	SW2  byte
}

// SW returns the status word as a single 16-bit value.
func (r *Response) SW() uint16 {
	return uint16(r.SW1)<<8 | uint16(r.SW2)
}

// Serialize renders the response as data followed by SW1 SW2.
func (r *Response) Serialize() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	out = append(out, r.SW1, r.SW2)
	return out
}

// NewResponse builds a Response from a 16-bit status word.
func NewResponse(data []byte, sw uint16) *Response {
	return &Response{Data: data, SW1: byte(sw >> 8), SW2: byte(sw)}
}

// Standard status words referenced by spec.md section 3 and section 7.
const (
	SWSuccess           uint16 = 0x9000
	SWDataObjectMissing uint16 = 0x6A82
	SWWarningUnchanged  uint16 = 0x6100
	SWInsNotSupported   uint16 = 0x6D00
)

// SWMoreData builds the 0x61XX "XX more bytes available" status word.
// remaining is capped at 0xFF per spec.md section 4.5.
func SWMoreData(remaining int) uint16 {
	if remaining > 0xFF {
		remaining = 0xFF
	}
	return 0x6100 | uint16(remaining)
}
