package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	otpTimeoutDelta time.Duration // set at service construction from core.Config

	errInvalidOTP = errors.New("invalid verification code")
	errOTPExpired = errors.New("verification code expired")
)

// makeOTP generates a 6-digit email verification code and its hash to keep at rest.
func makeOTP() (code string, hash []byte, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", nil, err
	}
	code = fmt.Sprintf("%06d", n.Int64())
	return code, hashOTP(code), nil
}

func hashOTP(code string) []byte {
	key := sha256.Sum256(append(salt, secretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write([]byte(code))
	return h.Sum(nil)
}

// verifyOTP checks a submitted code against the hash stored on the User.
func verifyOTP(usr User, code string) error {
	if len(usr.OTPHash) == 0 {
		return errInvalidOTP
	}
	if !hmac.Equal(hashOTP(code), usr.OTPHash) {
		return errInvalidOTP
	}
	if nowFunc().After(usr.OTPExpiresAt) {
		return errOTPExpired
	}
	return nil
}
