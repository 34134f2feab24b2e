package portfolio

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// ShareCodeLength is the fixed length of a share code.
const ShareCodeLength = 8

const shareCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var alphabetSize = big.NewInt(int64(len(shareCodeAlphabet)))

// GenerateShareCode returns ShareCodeLength characters drawn uniformly from
// [A-Z0-9]. Uniqueness against existing codes is not checked here.
func GenerateShareCode() string {
	var b strings.Builder
	b.Grow(ShareCodeLength)
	for i := 0; i < ShareCodeLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic("share code: " + err.Error())
		}
		b.WriteByte(shareCodeAlphabet[n.Int64()])
	}
	return b.String()
}

// NormaliseShareCode upper-cases and trims code, reporting whether the result
// is a well-formed share code.
func NormaliseShareCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != ShareCodeLength {
		return code, false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(shareCodeAlphabet, code[i]) < 0 {
			return code, false
		}
	}
	return code, true
}
