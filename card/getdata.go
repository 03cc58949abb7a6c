package card

import (
	"github.com/go-pivert/pivert/internal/apdu"
	"github.com/go-pivert/pivert/internal/tlv"
	"github.com/go-pivert/pivert/objects"
)

const dataObjectTagTLV uint32 = 0x5C

// handleGetData implements the GET DATA dispatch table from spec.md
// section 4.5: it reads the requested locator out of the 0x5C TLV in the
// command data and serves the matching stored object.
func (c *Card) handleGetData(data []byte) []byte {
	r := tlv.NewReader(data)
	locator, err := r.ReadValue(dataObjectTagTLV)
	if err != nil {
		return c.respond(nil, apdu.SWDataObjectMissing)
	}
	tag := bytesToTag(locator)

	switch tag {
	case objects.DiscoveryDataTag:
		body, err := c.encodeDiscovery()
		if err != nil {
			return c.respond(nil, apdu.SWDataObjectMissing)
		}
		return c.chainedResponse(body)
	case objects.CCCDataTag:
		body, err := c.ccc.Encode()
		if err != nil {
			return c.respond(nil, apdu.SWDataObjectMissing)
		}
		return c.chainedResponse(body)
	case objects.CHUIDDataTag:
		body, err := c.chuid.Encode()
		if err != nil {
			return c.respond(nil, apdu.SWDataObjectMissing)
		}
		return c.chainedResponse(body)
	case objects.CertAuthTag, objects.CertCardAuthTag, objects.CertSignTag:
		body, err := c.encodeCertificate()
		if err != nil {
			return c.respond(nil, apdu.SWDataObjectMissing)
		}
		return c.chainedResponse(body)
	default:
		c.cfg.Logger.ErrorMsgf(nil, "card: unknown GET DATA tag %06X", tag)
		return c.respond(nil, apdu.SWDataObjectMissing)
	}
}

func (c *Card) encodeDiscovery() ([]byte, error) {
	w := tlv.NewWriter()
	outer, err := w.OpenNested(objects.DiscoveryDataTag)
	if err != nil {
		return nil, err
	}
	aid := append(append([]byte{}, objects.PIVAID[:]...), 0x01, 0x00)
	if err := w.WriteValue(0x4F, aid); err != nil {
		return nil, err
	}
	if err := w.WriteValue(0x5F2F, []byte{0x40, 0x00}); err != nil {
		return nil, err
	}
	if err := outer.Close(); err != nil {
		return nil, err
	}
	return w.Encode()
}

func (c *Card) encodeCertificate() ([]byte, error) {
	w := tlv.NewWriter()
	outer, err := w.OpenNested(objects.ContainerTag)
	if err != nil {
		return nil, err
	}
	if err := w.WriteValue(0x70, c.certDER); err != nil {
		return nil, err
	}
	if err := w.WriteByte(0x71, 0x00); err != nil {
		return nil, err
	}
	if err := w.WriteValue(0xFE, nil); err != nil {
		return nil, err
	}
	if err := outer.Close(); err != nil {
		return nil, err
	}
	return w.Encode()
}

// bytesToTag reinterprets a GET DATA locator value (1-3 bytes observed in
// practice) as an unsigned big-endian integer for table lookup.
func bytesToTag(b []byte) uint32 {
	var tag uint32
	for _, x := range b {
		tag = tag<<8 | uint32(x)
	}
	return tag
}
