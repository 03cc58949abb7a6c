package tlv

import "github.com/go-pivert/pivert/internal/perr"

// MaxTag is the largest tag this codec can represent (a 2-byte unsigned
// integer, not a true BER long-form tag).
const MaxTag = 0xFFFF

// MaxLength is the largest length this codec can represent under the DER
// rules in use here (a 3-byte length field).
const MaxLength = 0x00FFFFFF

func validateTag(op string, tag uint32) error {
	if tag == 0 || tag > MaxTag {
		return perr.New(perr.UnsupportedTag, op, "tag must be in (0, 0xFFFF]")
	}
	return nil
}

// tagWidth returns the number of bytes used to encode tag on the wire: 1
// byte for tag <= 0xFF, 2 bytes for 0x100-0xFFFF.
func tagWidth(op string, tag uint32) (int, error) {
	if err := validateTag(op, tag); err != nil {
		return 0, err
	}
	if tag <= 0xFF {
		return 1, nil
	}
	return 2, nil
}

func encodeTag(tag uint32, width int) []byte {
	if width == 1 {
		return []byte{byte(tag)}
	}
	return []byte{byte(tag >> 8), byte(tag)}
}

// encodeLength returns the DER length encoding for length, per the rules in
// spec.md section 3: 0-127 one byte; 128-255 as 0x81 LL; 256-65535 as 0x82
// LL LL; 65536-16777215 as 0x83 LL LL LL.
func encodeLength(op string, length int) ([]byte, error) {
	switch {
	case length < 0 || length > MaxLength:
		return nil, perr.New(perr.UnsupportedLength, op, "length out of range")
	case length <= 0x7F:
		return []byte{byte(length)}, nil
	case length <= 0xFF:
		return []byte{0x81, byte(length)}, nil
	case length <= 0xFFFF:
		return []byte{0x82, byte(length >> 8), byte(length)}, nil
	default:
		return []byte{0x83, byte(length >> 16), byte(length >> 8), byte(length)}, nil
	}
}

// decodeLengthAt decodes a DER length field starting at buf[pos]. It
// returns the decoded length and the number of bytes the length field
// occupied. 0x80 (BER indefinite length) and initial bytes >= 0x84 are
// rejected as UnsupportedLength, matching ISO 7816's restriction to DER.
func decodeLengthAt(op string, buf []byte, pos int) (length int, lenOfLen int, err error) {
	if pos >= len(buf) {
		return 0, 0, perr.New(perr.UnexpectedEnd, op, "buffer exhausted reading length")
	}
	b := buf[pos]
	if b < 0x80 {
		return int(b), 1, nil
	}
	if b == 0x80 || b >= 0x84 {
		return 0, 0, perr.New(perr.UnsupportedLength, op, "indefinite or oversized length form")
	}
	n := int(b & 0x7F)
	if pos+1+n > len(buf) {
		return 0, 0, perr.New(perr.UnexpectedEnd, op, "buffer exhausted reading long length")
	}
	length = 0
	for i := 0; i < n; i++ {
		length = length<<8 | int(buf[pos+1+i])
	}
	return length, 1 + n, nil
}

func decodeTagAt(op string, buf []byte, pos int, width int) (tag uint32, err error) {
	if width != 1 && width != 2 {
		return 0, perr.New(perr.UnsupportedTag, op, "tag width must be 1 or 2")
	}
	if pos+width > len(buf) {
		return 0, perr.New(perr.UnexpectedEnd, op, "buffer exhausted reading tag")
	}
	if width == 1 {
		return uint32(buf[pos]), nil
	}
	return uint32(buf[pos])<<8 | uint32(buf[pos+1]), nil
}
