package card

import (
	"bytes"

	"github.com/go-pivert/pivert/internal/apdu"
	"github.com/go-pivert/pivert/internal/tlv"
	"github.com/go-pivert/pivert/objects"
)

// applicationLabel is the ASCII string the SELECT response's tag 0x50
// carries, naming the emulated applet the way a real card would name its
// own. Any value works here; Windows smart-card logon does not inspect
// it.
const applicationLabel = "PIVert PIV Applet"

// pinUsagePolicy enumerates the PIN/key-reference bytes listed under the
// SELECT response's 0xAC tag, matching the fixed set of credentials a PIV
// card advertises: Application PIN, PUK, and a handful of key references.
var pinUsagePolicy = []byte{0x03, 0x08, 0x0A, 0x0C, 0x06, 0x07, 0x11, 0x14}

func (c *Card) handleSelect(data []byte) []byte {
	if !bytes.Equal(data, objects.PIVAID[:]) {
		c.cfg.Logger.ErrorMsgf(nil, "card: unknown AID on SELECT: % X", data)
		return c.respond(nil, apdu.SWDataObjectMissing)
	}

	w := tlv.NewWriter()
	outer, err := w.OpenNested(0x61)
	if err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	if err := w.WriteValue(0x4F, []byte{0x00, 0x00, 0x10, 0x00, 0x01, 0x00}); err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	coexist, err := w.OpenNested(0x79)
	if err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	if err := w.WriteValue(0x4F, objects.PIVAID[:]); err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	if err := coexist.Close(); err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	if err := w.WriteString(0x50, applicationLabel, tlv.ASCII); err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	policy, err := w.OpenNested(0xAC)
	if err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	for _, ref := range pinUsagePolicy {
		if err := w.WriteByte(0x80, ref); err != nil {
			return c.respond(nil, apdu.SWInsNotSupported)
		}
	}
	if err := w.WriteValue(0x06, nil); err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	if err := policy.Close(); err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	if err := outer.Close(); err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}

	body, err := w.Encode()
	if err != nil {
		return c.respond(nil, apdu.SWInsNotSupported)
	}
	return c.chainedResponse(body)
}
