package user

import (
	"testing"
	"time"
)

func TestMakeVerifyOTP(t *testing.T) {
	secretKey = []byte("secret")
	otpTimeoutDelta = 10 * time.Minute

	code, hash, err := makeOTP()
	if err != nil {
		t.Fatalf("makeOTP() failed: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("makeOTP() code = %q; want 6 digits", code)
	}

	wrongCode := "000000"
	if code == wrongCode {
		wrongCode = "000001"
	}

	now := time.Now().UTC()
	usr := User{
		ID:           "0c9c3e1a-1f60-41de-8ad5-07437a55b8b7",
		Email:        "t@test.test",
		OTPHash:      hash,
		OTPExpiresAt: now.Add(otpTimeoutDelta),
	}

	tests := []struct {
		name    string
		usr     User
		code    string
		wantErr error
	}{
		{name: "valid code", usr: usr, code: code},
		{name: "wrong code", usr: usr, code: wrongCode, wantErr: errInvalidOTP},
		{name: "no hash at rest", usr: User{ID: usr.ID}, code: code, wantErr: errInvalidOTP},
		{
			name: "expired code",
			usr: User{
				ID:           usr.ID,
				OTPHash:      hash,
				OTPExpiresAt: now.Add(-time.Minute),
			},
			code:    code,
			wantErr: errOTPExpired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyOTP(tt.usr, tt.code); err != tt.wantErr {
				t.Errorf("verifyOTP() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
