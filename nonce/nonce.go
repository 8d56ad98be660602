// Package nonce issues and checks the rotating token that guards the poll endpoint.
//
// A token is a TOTP code over a secret derived from the server secret and an action
// name. Codes rotate every 12 hours and one step of skew is accepted, so a token
// handed out with a page stays usable for 12 to 24 hours.
package nonce

import (
	"crypto/sha256"
	"encoding/base32"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// ActionUpdateTicks guards the poll endpoint.
	ActionUpdateTicks = "wplt2_update-ticks"

	DefaultLifetime = 12 * time.Hour
)

type Issuer struct {
	secret string
	opts   totp.ValidateOpts
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret: secret,
		opts: totp.ValidateOpts{
			Period:    uint(DefaultLifetime / time.Second),
			Skew:      1,
			Digits:    otp.DigitsEight,
			Algorithm: otp.AlgorithmSHA256,
		},
		now: time.Now,
	}
}

// Create returns the current token for action.
func (i *Issuer) Create(action string) (string, error) {
	code, err := totp.GenerateCodeCustom(i.actionSecret(action), i.now(), i.opts)
	if err != nil {
		return "", errors.Wrap(err, "create nonce")
	}
	return code, nil
}

// Verify reports whether token is valid for action right now.
func (i *Issuer) Verify(token, action string) bool {
	if token == "" {
		return false
	}
	ok, err := totp.ValidateCustom(token, i.actionSecret(action), i.now(), i.opts)
	return err == nil && ok
}

func (i *Issuer) actionSecret(action string) string {
	sum := sha256.Sum256([]byte(i.secret + "|" + action))
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
}
