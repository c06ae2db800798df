// Package qrcode renders otpauth enrollment URIs as QR code images for
// authenticator apps to scan.
package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent   = errors.New("qrcode: content cannot be empty")
	ErrFailedToEncode = errors.New("qrcode: failed to generate QR code")
)

// DefaultSize is the image edge in pixels used when size is not positive.
const DefaultSize = 256

// PNG renders content as a square PNG image. Medium error correction keeps
// the code scannable from a screen.
func PNG(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = DefaultSize
	}
	img, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrFailedToEncode, err)
	}
	return img, nil
}

// DataURI renders content as a base64 PNG data URI for an <img> src.
//
//	<img src="{{ .QRCode }}" alt="Scan with your authenticator app">
func DataURI(content string, size int) (string, error) {
	img, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img), nil
}
