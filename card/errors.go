package card

import "errors"

// errDataTooLarge is returned by a Signer when the data to sign, read as
// an unsigned big-endian integer, is not strictly less than the RSA
// modulus: raw RSA has no defined result for such an input.
var errDataTooLarge = errors.New("card: sign data exceeds RSA modulus")
