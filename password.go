package auth

import (
	"crypto/rand"
	"math/big"

	"github.com/goliatone/go-errors"
)

const (
	passwordLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits  = "0123456789"
)

// DefaultPasswordLength matches the CRM onboarding requirement: ten
// characters, at least one of them numeric.
const DefaultPasswordLength = 10

// GeneratePassword returns a random password of the given length that is
// guaranteed to contain a numeric character. It is created fresh per
// registration attempt; its only recipient is the CRM register operation.
func GeneratePassword(length int) (string, error) {
	if length < 2 {
		return "", errors.New("password length must be at least 2", errors.CategoryBadInput)
	}

	alphabet := passwordLetters + passwordDigits
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes")
		}
		buf[i] = alphabet[n.Int64()]
	}

	if !containsDigit(buf) {
		pos, err := rand.Int(rand.Reader, big.NewInt(int64(length)))
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes")
		}
		digit, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordDigits))))
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes")
		}
		buf[pos.Int64()] = passwordDigits[digit.Int64()]
	}

	return string(buf), nil
}

func containsDigit(buf []byte) bool {
	for _, b := range buf {
		if b >= '0' && b <= '9' {
			return true
		}
	}
	return false
}
