package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ValidateSecretKeyRegex ensures Base32 format: uppercase A-Z, digits 2-7, optional padding
	ValidateSecretKeyRegex = regexp.MustCompile("^[A-Z2-7]+=*$")

	encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

	// randReader is swapped in tests to simulate an exhausted entropy source.
	randReader io.Reader = rand.Reader

	pow10 = [...]uint32{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000}
)

// GenerateSecret returns length random bytes encoded as unpadded Base32.
// A non-positive length selects the 160-bit default.
func GenerateSecret(length int) (string, error) {
	if length <= 0 {
		length = DefaultSecretLength
	}
	secret := make([]byte, length)
	if _, err := io.ReadFull(randReader, secret); err != nil {
		return "", errors.Join(ErrEntropyUnavailable, err)
	}
	return encoding.EncodeToString(secret), nil
}

// DecodeSecret converts a Base32 secret into raw key bytes.
// Lowercase input, surrounding whitespace and trailing padding are tolerated.
func DecodeSecret(secret string) ([]byte, error) {
	secret = strings.TrimRight(strings.ToUpper(strings.TrimSpace(secret)), "=")
	if secret == "" || !ValidateSecretKeyRegex.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	key, err := encoding.DecodeString(secret)
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return key, nil
}

// BuildEnrollmentURI creates the otpauth URI consumed by authenticator apps:
//
//	otpauth://totp/{issuer}:{account}?secret={secret}&issuer={issuer}
//
// Issuer and account are percent-encoded. See
// https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func BuildEnrollmentURI(issuer, accountLabel, secret string) string {
	return buildURI(issuer, accountLabel, secret)
}

func buildURI(issuer, accountLabel, secret string, params ...string) string {
	var b strings.Builder
	b.WriteString("otpauth://totp/")
	b.WriteString(escape(issuer))
	b.WriteByte(':')
	b.WriteString(escape(accountLabel))
	b.WriteString("?secret=")
	b.WriteString(escape(secret))
	b.WriteString("&issuer=")
	b.WriteString(escape(issuer))
	for i := 0; i+1 < len(params); i += 2 {
		b.WriteByte('&')
		b.WriteString(params[i])
		b.WriteByte('=')
		b.WriteString(escape(params[i+1]))
	}
	return b.String()
}

// escape percent-encodes s; spaces become %20 rather than '+', which some
// authenticators render literally.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// GenerateHOTP implements RFC 4226 HMAC-based One-Time Password algorithm.
// The algorithm converts a counter value into a numeric code using HMAC-SHA1.
// digits must be between 1 and 8.
func GenerateHOTP(key []byte, counter int64, digits int) (int, error) {
	if digits < 1 || digits > maxDigits {
		return 0, ErrInvalidDigits
	}
	return hotp(key, counter, digits), nil
}

// hotp expects digits to be validated by the caller.
func hotp(key []byte, counter int64, digits int) int {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	hash := mac.Sum(nil)

	// Dynamic truncation (RFC 4226 §5.3): the low nibble of the last byte is the offset
	offset := hash[len(hash)-1] & 0x0f
	code := binary.BigEndian.Uint32(hash[offset:offset+4]) & 0x7fffffff

	return int(code % pow10[digits])
}

// ComputeCode returns the zero-padded code for the time step containing unixSeconds.
func ComputeCode(secret string, unixSeconds int64, period, digits int) (string, error) {
	if period <= 0 {
		return "", ErrInvalidPeriod
	}
	if digits < 1 || digits > maxDigits {
		return "", ErrInvalidDigits
	}
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	return formatCode(hotp(key, timeStep(unixSeconds, period), digits), digits), nil
}

// VerifyCode checks candidate against the default 30-second, 6-digit parameters,
// accepting codes from window steps before and after the one containing now.
// It never returns an error: malformed candidates and secrets simply fail.
func VerifyCode(secret, candidate string, now time.Time, window int) bool {
	return verify(secret, candidate, now, DefaultPeriod, DefaultDigits, window)
}

func verify(secret, candidate string, now time.Time, period, digits, window int) bool {
	candidate = strings.TrimSpace(candidate)
	if digits < 1 || digits > maxDigits || !isNumeric(candidate, digits) || period <= 0 || window < 0 {
		return false
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return false
	}

	current := timeStep(now.Unix(), period)
	matched := 0
	// Every step in the window is compared so timing does not reveal which one matched
	for i := -window; i <= window; i++ {
		counter := current + int64(i)
		if counter < 0 {
			continue
		}
		code := formatCode(hotp(key, counter, digits), digits)
		matched |= subtle.ConstantTimeCompare([]byte(code), []byte(candidate))
	}

	return matched == 1
}

// timeStep floors unixSeconds/period, also for timestamps before the epoch.
func timeStep(unixSeconds int64, period int) int64 {
	p := int64(period)
	step := unixSeconds / p
	if unixSeconds%p != 0 && unixSeconds < 0 {
		step--
	}
	return step
}

func formatCode(code, digits int) string {
	s := strconv.Itoa(code)
	if len(s) >= digits {
		return s
	}
	return fmt.Sprintf("%0*d", digits, code)
}

func isNumeric(s string, digits int) bool {
	if len(s) != digits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
