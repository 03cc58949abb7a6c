package tlv

import (
	"unicode/utf8"

	"github.com/go-pivert/pivert/internal/perr"
)

// Reader streams TLV elements from a referenced buffer without copying.
// Every returned value is a sub-slice of the buffer passed to NewReader;
// the caller must not mutate that buffer while any returned view is still
// in use. Every throwing operation has a Try-prefixed non-throwing twin
// that returns (zero value, false) and leaves the cursor untouched on
// failure.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// HasData reports whether the cursor is before the end of the buffer.
func (r *Reader) HasData() bool {
	return r.pos < len(r.buf)
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

// PeekTag returns the next tag without advancing the cursor. tagLength
// must be 1 or 2.
func (r *Reader) PeekTag(tagLength int) (uint32, error) {
	return decodeTagAt("tlv.PeekTag", r.buf, r.pos, tagLength)
}

// TryPeekTag is the non-throwing form of PeekTag.
func (r *Reader) TryPeekTag(tagLength int) (uint32, bool) {
	tag, err := r.PeekTag(tagLength)
	return tag, err == nil
}

// PeekLength skips the tag of width tagLength, decodes the following DER
// length, and returns it without advancing the cursor.
func (r *Reader) PeekLength(tagLength int) (int, error) {
	if tagLength != 1 && tagLength != 2 {
		return 0, perr.New(perr.UnsupportedTag, "tlv.PeekLength", "tag length must be 1 or 2")
	}
	if r.pos+tagLength > len(r.buf) {
		return 0, perr.New(perr.UnexpectedEnd, "tlv.PeekLength", "buffer exhausted reading tag")
	}
	length, _, err := decodeLengthAt("tlv.PeekLength", r.buf, r.pos+tagLength)
	return length, err
}

// TryPeekLength is the non-throwing form of PeekLength.
func (r *Reader) TryPeekLength(tagLength int) (int, bool) {
	length, err := r.PeekLength(tagLength)
	return length, err == nil
}

// parseElement decodes the TLV at the cursor, verifies its tag equals
// expectedTag, and returns the value view plus the cursor position just
// past the element. It never mutates r.pos; callers commit the advance
// themselves once every validation (including any fixed-length check) has
// passed.
func (r *Reader) parseElement(op string, expectedTag uint32) (value []byte, newPos int, err error) {
	width, err := tagWidth(op, expectedTag)
	if err != nil {
		return nil, r.pos, err
	}
	tag, err := decodeTagAt(op, r.buf, r.pos, width)
	if err != nil {
		return nil, r.pos, err
	}
	if tag != expectedTag {
		return nil, r.pos, perr.New(perr.UnexpectedEncoding, op, "tag mismatch")
	}
	length, lenOfLen, err := decodeLengthAt(op, r.buf, r.pos+width)
	if err != nil {
		return nil, r.pos, err
	}
	valueStart := r.pos + width + lenOfLen
	valueEnd := valueStart + length
	if valueEnd > len(r.buf) || valueEnd < 0 {
		return nil, r.pos, perr.New(perr.UnexpectedEnd, op, "value runs past end of buffer")
	}
	return r.buf[valueStart:valueEnd], valueEnd, nil
}

// ReadValue verifies the next tag equals expectedTag, reads its length,
// and returns a non-owning view of its value, advancing past the element.
// expectedTag's magnitude determines whether a 1-byte or 2-byte tag is
// expected on the wire (<=0xFF reads 1 byte, 0x100-0xFFFF reads 2 bytes,
// >0xFFFF fails with UnsupportedTag).
func (r *Reader) ReadValue(expectedTag uint32) ([]byte, error) {
	value, newPos, err := r.parseElement("tlv.ReadValue", expectedTag)
	if err != nil {
		return nil, err
	}
	r.pos = newPos
	return value, nil
}

// TryReadValue is the non-throwing form of ReadValue.
func (r *Reader) TryReadValue(expectedTag uint32) ([]byte, bool) {
	value, err := r.ReadValue(expectedTag)
	return value, err == nil
}

func (r *Reader) readFixed(op string, expectedTag uint32, width int) ([]byte, error) {
	value, newPos, err := r.parseElement(op, expectedTag)
	if err != nil {
		return nil, err
	}
	if len(value) != width {
		return nil, perr.New(perr.UnexpectedEncoding, op, "value has unexpected length")
	}
	r.pos = newPos
	return value, nil
}

// ReadByte reads a 1-byte leaf TLV.
func (r *Reader) ReadByte(expectedTag uint32) (byte, error) {
	v, err := r.readFixed("tlv.ReadByte", expectedTag, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// TryReadByte is the non-throwing form of ReadByte.
func (r *Reader) TryReadByte(expectedTag uint32) (byte, bool) {
	v, err := r.ReadByte(expectedTag)
	return v, err == nil
}

// ReadInt16 reads a 2-byte leaf TLV and decodes it per bigEndian.
func (r *Reader) ReadInt16(expectedTag uint32, bigEndian bool) (uint16, error) {
	v, err := r.readFixed("tlv.ReadInt16", expectedTag, 2)
	if err != nil {
		return 0, err
	}
	if bigEndian {
		return uint16(v[0])<<8 | uint16(v[1]), nil
	}
	return uint16(v[1])<<8 | uint16(v[0]), nil
}

// TryReadInt16 is the non-throwing form of ReadInt16.
func (r *Reader) TryReadInt16(expectedTag uint32, bigEndian bool) (uint16, bool) {
	v, err := r.ReadInt16(expectedTag, bigEndian)
	return v, err == nil
}

// ReadUint16 is an alias of ReadInt16, named separately because the spec
// lists it as a distinct accessor for unsigned callers.
func (r *Reader) ReadUint16(expectedTag uint32, bigEndian bool) (uint16, error) {
	return r.ReadInt16(expectedTag, bigEndian)
}

// TryReadUint16 is the non-throwing form of ReadUint16.
func (r *Reader) TryReadUint16(expectedTag uint32, bigEndian bool) (uint16, bool) {
	return r.TryReadInt16(expectedTag, bigEndian)
}

// ReadInt32 reads a 4-byte leaf TLV and decodes it per bigEndian.
func (r *Reader) ReadInt32(expectedTag uint32, bigEndian bool) (uint32, error) {
	v, err := r.readFixed("tlv.ReadInt32", expectedTag, 4)
	if err != nil {
		return 0, err
	}
	if bigEndian {
		return uint32(v[0])<<24 | uint32(v[1])<<16 | uint32(v[2])<<8 | uint32(v[3]), nil
	}
	return uint32(v[3])<<24 | uint32(v[2])<<16 | uint32(v[1])<<8 | uint32(v[0]), nil
}

// TryReadInt32 is the non-throwing form of ReadInt32.
func (r *Reader) TryReadInt32(expectedTag uint32, bigEndian bool) (uint32, bool) {
	v, err := r.ReadInt32(expectedTag, bigEndian)
	return v, err == nil
}

// ReadString reads a leaf TLV and decodes its value as text per encoding.
func (r *Reader) ReadString(expectedTag uint32, encoding Encoding) (string, error) {
	value, newPos, err := r.parseElement("tlv.ReadString", expectedTag)
	if err != nil {
		return "", err
	}
	switch encoding {
	case ASCII:
		for _, b := range value {
			if b > 0x7F {
				return "", perr.New(perr.UnexpectedEncoding, "tlv.ReadString", "non-ASCII byte in ASCII string")
			}
		}
	case UTF8:
		if !utf8.Valid(value) {
			return "", perr.New(perr.UnexpectedEncoding, "tlv.ReadString", "invalid UTF-8")
		}
	}
	r.pos = newPos
	return string(value), nil
}

// TryReadString is the non-throwing form of ReadString.
func (r *Reader) TryReadString(expectedTag uint32, encoding Encoding) (string, bool) {
	s, err := r.ReadString(expectedTag, encoding)
	return s, err == nil
}

// ReadNested verifies the next tag equals expectedTag and returns a new
// Reader over that TLV's value, advancing this reader past the whole
// element. The returned Reader is a non-owning view over the same backing
// array.
func (r *Reader) ReadNested(expectedTag uint32) (*Reader, error) {
	value, newPos, err := r.parseElement("tlv.ReadNested", expectedTag)
	if err != nil {
		return nil, err
	}
	r.pos = newPos
	return NewReader(value), nil
}

// TryReadNested is the non-throwing form of ReadNested.
func (r *Reader) TryReadNested(expectedTag uint32) (*Reader, bool) {
	nested, err := r.ReadNested(expectedTag)
	return nested, err == nil
}

// ReadEncoded returns a view covering the full tag+length+value of the
// next element (verifying its tag equals expectedTag) and advances past
// it.
func (r *Reader) ReadEncoded(expectedTag uint32) ([]byte, error) {
	_, newPos, err := r.parseElement("tlv.ReadEncoded", expectedTag)
	if err != nil {
		return nil, err
	}
	full := r.buf[r.pos:newPos]
	r.pos = newPos
	return full, nil
}

// TryReadEncoded is the non-throwing form of ReadEncoded.
func (r *Reader) TryReadEncoded(expectedTag uint32) ([]byte, bool) {
	v, err := r.ReadEncoded(expectedTag)
	return v, err == nil
}
