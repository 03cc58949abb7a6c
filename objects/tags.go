// Package objects implements the fixed-schema PIV data objects described
// in spec.md section 4.4: the Card Capability Container (CCC) and the
// Cardholder Unique Identifier (CHUID). Grounded on the teacher's
// piv/key.go (the "validate fully before committing" discipline used in
// decodeRSAPublic/decodeECPublic, and the typed-constant style of
// SlotID/Algorithm) and cross-checked against other_examples'
// cunicu-go-piv__tag.go and cunicu-go-piv__object.go for PIV tag layout.
package objects

import "github.com/go-pivert/pivert/internal/perr"

// Outer container tag shared by every PIV data object.
const ContainerTag uint32 = 0x53

// Defined data tags for the objects this emulator serves (spec.md section
// 4.5's GET DATA dispatch table).
const (
	DiscoveryDataTag uint32 = 0x7E
	CCCDataTag       uint32 = 0x5FC107
	CHUIDDataTag     uint32 = 0x5FC102
	CertAuthTag      uint32 = 0x5FC105
	CertCardAuthTag  uint32 = 0x5FC101
	CertSignTag      uint32 = 0x5FC10A
)

// Alternate data-tag ranges from spec.md section 4.4.
const (
	alternateRangeLow   uint32 = 0x005F0000
	alternateRangeHigh  uint32 = 0x005FFFFF
	definedRangeLow     uint32 = 0x005FC101
	definedRangeHigh    uint32 = 0x005FC123
	yubicoRangeLow      uint32 = 0x005FFF00
	yubicoRangeHigh     uint32 = 0x005FFF15
)

// ValidateDataTag reports whether tag is a legal alternate storage locator
// for an object whose defined (constant) tag is defined: tag must equal
// defined, or lie in the general alternate range while avoiding the
// reserved PIV-defined and Yubico ranges.
func ValidateDataTag(defined, tag uint32) error {
	if tag == defined {
		return nil
	}
	if tag < alternateRangeLow || tag > alternateRangeHigh {
		return perr.New(perr.InvalidDataTag, "objects.ValidateDataTag", "tag outside alternate range")
	}
	if tag >= definedRangeLow && tag <= definedRangeHigh {
		return perr.New(perr.InvalidDataTag, "objects.ValidateDataTag", "tag collides with defined PIV range")
	}
	if tag >= yubicoRangeLow && tag <= yubicoRangeHigh {
		return perr.New(perr.InvalidDataTag, "objects.ValidateDataTag", "tag collides with Yubico range")
	}
	return nil
}

// PIVAID is the PIV Application Identifier, bit-exact per spec.md section 6.
var PIVAID = [9]byte{0xA0, 0x00, 0x00, 0x03, 0x08, 0x00, 0x00, 0x10, 0x00}

// CCCAID is the 7-byte fixed Unique Card Identifier prefix used inside the
// CCC, bit-exact per spec.md section 3.
var CCCAID = [7]byte{0xA0, 0x00, 0x00, 0x01, 0x16, 0xFF, 0x02}
