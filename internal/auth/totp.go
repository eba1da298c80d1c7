// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"fmt"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// TOTPIssuer is the issuer name shown in authenticator apps.
const TOTPIssuer = "Catalogo"

// TOTPSetup is a freshly generated second-factor secret.
type TOTPSetup struct {
	Secret string
	URL    string
	QRCode []byte // PNG
}

// NewTOTP generates a secret for account and renders its QR code.
func NewTOTP(account string) (*TOTPSetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: account,
	})
	if err != nil {
		return nil, fmt.Errorf("totp generate: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	return &TOTPSetup{Secret: key.Secret(), URL: key.URL(), QRCode: png}, nil
}

// ValidateTOTP checks a 6-digit code against secret.
func ValidateTOTP(code, secret string) bool {
	if code == "" || secret == "" {
		return false
	}
	return totp.Validate(code, secret)
}
