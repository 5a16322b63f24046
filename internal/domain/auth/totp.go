package auth

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPConfig pins the authenticator parameters. These must stay stable for
// registered secrets to keep validating.
type TOTPConfig struct {
	Issuer string
	Digits int
	Period int
}

func (c TOTPConfig) digits() otp.Digits {
	if c.Digits == 8 {
		return otp.DigitsEight
	}
	return otp.DigitsSix
}

func (c TOTPConfig) period() uint {
	if c.Period <= 0 {
		return 30
	}
	return uint(c.Period)
}

// GenerateTOTPKey mints a fresh secret for the account and returns the secret
// together with the otpauth:// provisioning URL the client renders as a QR
// code.
func GenerateTOTPKey(cfg TOTPConfig, accountName string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      cfg.Issuer,
		AccountName: accountName,
		Digits:      cfg.digits(),
		Period:      cfg.period(),
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP checks a one-time code against the secret at the current time.
func ValidateTOTP(cfg TOTPConfig, secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Digits: cfg.digits(),
		Period: cfg.period(),
		Skew:   1,
	})
	return err == nil && ok
}
