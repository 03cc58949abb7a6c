package objects

import (
	"bytes"
	"io"

	"github.com/go-pivert/pivert/internal/perr"
	"github.com/go-pivert/pivert/internal/tlv"
)

// fascN is the canonical 25-byte FASC-N carried by every CHUID this
// emulator produces, matching the non-federal-issuer test pattern spec.md
// section 3 requires byte-for-byte on decode.
var fascN = [25]byte{
	0xD4, 0xE7, 0x39, 0xDA, 0x73, 0x9C, 0xED, 0x39, 0xCE, 0x73,
	0x9D, 0x83, 0x68, 0x58, 0x21, 0x08, 0x42, 0x10, 0x84, 0x21,
	0xC8, 0x42, 0x10, 0xC3, 0xF5,
}

const expirationDate = "20300101"

const (
	chuidTagFASCN      uint32 = 0x30
	chuidTagGUID       uint32 = 0x34
	chuidTagExpiration uint32 = 0x35
	chuidTagSignature  uint32 = 0x3E
	chuidTagLRC        uint32 = 0xFE
)

// CHUID is the Cardholder Unique Identifier data object. It starts empty;
// SetGuid/SetRandomGuid populate the mutable GUID field.
type CHUID struct {
	dataTag uint32
	set     bool
	guid    [16]byte
}

// NewCHUID returns an empty CHUID stored at its defined data tag.
func NewCHUID() *CHUID {
	return &CHUID{dataTag: CHUIDDataTag}
}

// IsEmpty reports whether the GUID has been set yet.
func (c *CHUID) IsEmpty() bool {
	return !c.set
}

// DataTag returns the data tag this object is currently filed under.
func (c *CHUID) DataTag() uint32 {
	return c.dataTag
}

// DefinedDataTag returns the immutable, spec-defined data tag for CHUID.
func (c *CHUID) DefinedDataTag() uint32 {
	return CHUIDDataTag
}

// SetDataTag reassigns the storage locator this object is filed under.
func (c *CHUID) SetDataTag(tag uint32) error {
	if err := ValidateDataTag(CHUIDDataTag, tag); err != nil {
		return err
	}
	c.dataTag = tag
	return nil
}

// Guid returns a copy of the current GUID. Only meaningful when !IsEmpty().
func (c *CHUID) Guid() [16]byte {
	return c.guid
}

// SetGuid validates guid is exactly 16 bytes and adopts it.
func (c *CHUID) SetGuid(guid []byte) error {
	if len(guid) != 16 {
		return perr.New(perr.UnexpectedEncoding, "objects.CHUID.SetGuid", "guid must be 16 bytes")
	}
	copy(c.guid[:], guid)
	c.set = true
	return nil
}

// SetRandomGuid fills the GUID from rng.
func (c *CHUID) SetRandomGuid(rng io.Reader) error {
	var b [16]byte
	if _, err := io.ReadFull(rng, b[:]); err != nil {
		return err
	}
	c.guid = b
	c.set = true
	return nil
}

// Encode serializes the CHUID. An empty CHUID encodes to 0x53 0x00.
func (c *CHUID) Encode() ([]byte, error) {
	w := tlv.NewWriter()
	if !c.set {
		if err := w.WriteValue(ContainerTag, nil); err != nil {
			return nil, err
		}
		return w.Encode()
	}
	scope, err := w.OpenNested(ContainerTag)
	if err != nil {
		return nil, err
	}
	defer scope.Close()
	if err := w.WriteValue(chuidTagFASCN, fascN[:]); err != nil {
		return nil, err
	}
	if err := w.WriteValue(chuidTagGUID, c.guid[:]); err != nil {
		return nil, err
	}
	if err := w.WriteString(chuidTagExpiration, expirationDate, tlv.ASCII); err != nil {
		return nil, err
	}
	if err := w.WriteValue(chuidTagSignature, nil); err != nil {
		return nil, err
	}
	if err := w.WriteValue(chuidTagLRC, nil); err != nil {
		return nil, err
	}
	if err := scope.Close(); err != nil {
		return nil, err
	}
	return w.Encode()
}

// TryDecode validates raw against every fixed CHUID field and, on success,
// adopts its GUID. On any deviation it returns false and leaves the
// object empty.
func (c *CHUID) TryDecode(raw []byte) bool {
	ok, guid := tryDecodeCHUID(raw)
	if !ok {
		c.guid = [16]byte{}
		c.set = false
		return false
	}
	c.guid = guid
	c.set = true
	return true
}

func tryDecodeCHUID(raw []byte) (ok bool, guid [16]byte) {
	r := tlv.NewReader(raw)
	inner, err := r.ReadNested(ContainerTag)
	if err != nil || r.HasData() {
		return false, guid
	}
	fascnValue, err := inner.ReadValue(chuidTagFASCN)
	if err != nil || !bytes.Equal(fascnValue, fascN[:]) {
		return false, guid
	}
	guidValue, err := inner.ReadValue(chuidTagGUID)
	if err != nil || len(guidValue) != 16 {
		return false, guid
	}
	exp, err := inner.ReadString(chuidTagExpiration, tlv.ASCII)
	if err != nil || exp != expirationDate {
		return false, guid
	}
	sig, err := inner.ReadValue(chuidTagSignature)
	if err != nil || len(sig) != 0 {
		return false, guid
	}
	lrc, err := inner.ReadValue(chuidTagLRC)
	if err != nil || len(lrc) != 0 {
		return false, guid
	}
	if inner.HasData() {
		return false, guid
	}
	copy(guid[:], guidValue)
	return true, guid
}

// Clear overwrites the GUID with zeros and returns the object to empty,
// for disposing of the mutable cryptographic-adjacent field.
func (c *CHUID) Clear() {
	c.guid = [16]byte{}
	c.set = false
}
