package videos

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// CodeAlphabet omits 0, O, 1, I and l so codes survive being read aloud.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	// CodeLength is the fixed number of characters in a share code.
	CodeLength = 8
)

var alphabetSize = big.NewInt(int64(len(CodeAlphabet)))

// CodeGenerator produces candidate share codes.
type CodeGenerator func() (string, error)

// RandomCode draws CodeLength characters uniformly from CodeAlphabet using
// the operating system CSPRNG.
func RandomCode() (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("draw share code: %w", err)
		}
		b.WriteByte(CodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// ValidCode reports whether code has the shape of an issued share code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
