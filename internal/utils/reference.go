package utils

import (
	"crypto/rand"
	"math/big"
)

// ReferencePrefix starts every booking reference.
const ReferencePrefix = "TB"

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReference returns a booking reference such as TB7K2M9QXA.  Callers
// must still check it for collisions against stored orders.
func NewReference() (string, error) {
	buf := make([]byte, 8)
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = referenceAlphabet[n.Int64()]
	}
	return ReferencePrefix + string(buf), nil
}
