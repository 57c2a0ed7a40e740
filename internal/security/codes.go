package security

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// codeAlphabet skips easily-confused characters (I, O, 0, 1)
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewID generates a UUID string primary key
func NewID() string {
	return uuid.New().String()
}

// GenerateCode creates a random uppercase code of the given length,
// used for family secret codes and invite codes
func GenerateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
