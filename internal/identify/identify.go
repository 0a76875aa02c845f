// Package identify mints and resolves the scannable identification codes
// printed onto physical books. The payload is the book's stable id rather
// than the title or ISBN, so an edited catalogue entry never invalidates an
// already-printed label.
package identify

import (
	"errors"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// ImageSize is the side length in pixels of rendered code images.
const ImageSize = 256

var ErrInvalidCode = errors.New("invalid identification code")

// MintPayload derives the code payload for a book id.
func MintPayload(bookID uint) string {
	return strconv.FormatUint(uint64(bookID), 10)
}

// RenderPNG renders a payload as a QR code PNG. The output is deterministic:
// the same payload always produces the same bytes.
func RenderPNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, ErrInvalidCode
	}
	return qrcode.Encode(payload, qrcode.Medium, ImageSize)
}

// Resolve parses a scanned payload back into a book id. Anything that is not
// a positive decimal number is an invalid code, never a crash.
func Resolve(payload string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(payload), 10, 32)
	if err != nil || id == 0 {
		return 0, ErrInvalidCode
	}
	return uint(id), nil
}
