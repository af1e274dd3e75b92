package share

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRGenerator renders share links for disaster detail pages as PNG QR codes.
type QRGenerator struct {
	baseURL string
	size    int
}

func NewQRGenerator(baseURL string, size int) *QRGenerator {
	return &QRGenerator{baseURL: baseURL, size: size}
}

// EventURL is the public link to a disaster's detail page.
func (q *QRGenerator) EventURL(femaID int) string {
	return fmt.Sprintf("%s/events/%d", q.baseURL, femaID)
}

func (q *QRGenerator) EventQR(femaID int) ([]byte, error) {
	png, err := qrcode.Encode(q.EventURL(femaID), qrcode.Medium, q.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr for %d: %w", femaID, err)
	}
	return png, nil
}
