package objects

import (
	"bytes"

	"github.com/go-pivert/pivert/internal/perr"
	"github.com/go-pivert/pivert/internal/tlv"
)

const (
	cccTagUniqueCardID uint32 = 0xF0
	cccTagContainerVer uint32 = 0xF1
	cccTagGrammarVer   uint32 = 0xF2
	cccTagPKCS15Ver    uint32 = 0xF4
	cccTagDataModel    uint32 = 0xF5
)

// cccEmptyTags are filed in this exact order between the fixed 1-byte
// fields, per spec.md section 3.
var cccEmptyTags = []uint32{0xF3, 0xF6, 0xF7, 0xFA, 0xFB, 0xFC, 0xFD, 0xFE}

const (
	cccContainerVersion = 0x21
	cccGrammarVersion   = 0x21
	cccPKCS15Version    = 0x00
	cccDataModel        = 0x10
)

// CCC is the Card Capability Container data object. It starts empty;
// SetCardID/SetRandomCardID populate the mutable 14-byte CardID field.
type CCC struct {
	dataTag uint32
	set     bool
	cardID  [14]byte
}

// NewCCC returns an empty CCC stored at its defined data tag.
func NewCCC() *CCC {
	return &CCC{dataTag: CCCDataTag}
}

// IsEmpty reports whether the CardID has been set yet.
func (c *CCC) IsEmpty() bool {
	return !c.set
}

// DataTag returns the data tag this object is currently filed under.
func (c *CCC) DataTag() uint32 {
	return c.dataTag
}

// DefinedDataTag returns the immutable, spec-defined data tag for CCC.
func (c *CCC) DefinedDataTag() uint32 {
	return CCCDataTag
}

// SetDataTag reassigns the storage locator this object is filed under.
func (c *CCC) SetDataTag(tag uint32) error {
	if err := ValidateDataTag(CCCDataTag, tag); err != nil {
		return err
	}
	c.dataTag = tag
	return nil
}

// CardID returns a copy of the current 14-byte CardID.
func (c *CCC) CardID() [14]byte {
	return c.cardID
}

// SetCardID validates cardID is exactly 14 bytes and adopts it.
func (c *CCC) SetCardID(cardID []byte) error {
	if len(cardID) != 14 {
		return perr.New(perr.UnexpectedEncoding, "objects.CCC.SetCardID", "card id must be 14 bytes")
	}
	copy(c.cardID[:], cardID)
	c.set = true
	return nil
}

// SetRandomCardID fills the CardID from rng.
func (c *CCC) SetRandomCardID(rng interface{ Read([]byte) (int, error) }) error {
	var b [14]byte
	n, err := rng.Read(b[:])
	if err != nil {
		return err
	}
	if n != len(b) {
		return perr.New(perr.UnexpectedEncoding, "objects.CCC.SetRandomCardID", "short read from rng")
	}
	c.cardID = b
	c.set = true
	return nil
}

// Encode serializes the CCC. An empty CCC encodes to 0x53 0x00.
func (c *CCC) Encode() ([]byte, error) {
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

	uid := make([]byte, 0, 21)
	uid = append(uid, CCCAID[:]...)
	uid = append(uid, c.cardID[:]...)
	if err := w.WriteValue(cccTagUniqueCardID, uid); err != nil {
		return nil, err
	}
	if err := w.WriteByte(cccTagContainerVer, cccContainerVersion); err != nil {
		return nil, err
	}
	if err := w.WriteByte(cccTagGrammarVer, cccGrammarVersion); err != nil {
		return nil, err
	}
	if err := w.WriteValue(cccEmptyTags[0], nil); err != nil { // 0xF3
		return nil, err
	}
	if err := w.WriteByte(cccTagPKCS15Ver, cccPKCS15Version); err != nil {
		return nil, err
	}
	if err := w.WriteByte(cccTagDataModel, cccDataModel); err != nil {
		return nil, err
	}
	for _, tag := range cccEmptyTags[1:] { // 0xF6, 0xF7, 0xFA-0xFE
		if err := w.WriteValue(tag, nil); err != nil {
			return nil, err
		}
	}
	if err := scope.Close(); err != nil {
		return nil, err
	}
	return w.Encode()
}

// TryDecode validates raw against every fixed CCC field and, on success,
// adopts its CardID. On any deviation it returns false and leaves the
// object empty.
func (c *CCC) TryDecode(raw []byte) bool {
	ok, cardID := tryDecodeCCC(raw)
	if !ok {
		c.cardID = [14]byte{}
		c.set = false
		return false
	}
	c.cardID = cardID
	c.set = true
	return true
}

func tryDecodeCCC(raw []byte) (ok bool, cardID [14]byte) {
	r := tlv.NewReader(raw)
	inner, err := r.ReadNested(ContainerTag)
	if err != nil || r.HasData() {
		return false, cardID
	}
	uid, err := inner.ReadValue(cccTagUniqueCardID)
	if err != nil || len(uid) != 0x15 || !bytes.Equal(uid[:7], CCCAID[:]) {
		return false, cardID
	}
	containerVer, err := inner.ReadByte(cccTagContainerVer)
	if err != nil || containerVer != cccContainerVersion {
		return false, cardID
	}
	grammarVer, err := inner.ReadByte(cccTagGrammarVer)
	if err != nil || grammarVer != cccGrammarVersion {
		return false, cardID
	}
	if v, err := inner.ReadValue(cccEmptyTags[0]); err != nil || len(v) != 0 {
		return false, cardID
	}
	pkcs15Ver, err := inner.ReadByte(cccTagPKCS15Ver)
	if err != nil || pkcs15Ver != cccPKCS15Version {
		return false, cardID
	}
	dataModel, err := inner.ReadByte(cccTagDataModel)
	if err != nil || dataModel != cccDataModel {
		return false, cardID
	}
	for _, tag := range cccEmptyTags[1:] {
		if v, err := inner.ReadValue(tag); err != nil || len(v) != 0 {
			return false, cardID
		}
	}
	if inner.HasData() {
		return false, cardID
	}
	copy(cardID[:], uid[7:])
	return true, cardID
}

// Clear overwrites the CardID with zeros and returns the object to empty.
func (c *CCC) Clear() {
	c.cardID = [14]byte{}
	c.set = false
}
