package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }

// generateQRCode renders content as a PNG QR code
func generateQRCode(content string) ([]byte, error) {
	qrc, err := qrcode.NewWith(content,
		qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium),
		qrcode.WithEncodingMode(qrcode.EncModeByte),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	buf := &bytes.Buffer{}
	w := standard.NewWithWriter(nopCloser{buf},
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(8), // 8 pixels per module
	)
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("failed to save QR code: %w", err)
	}
	return buf.Bytes(), nil
}

// inviteURL is the link a QR code points at: the configured public URL, or
// one derived from the request.
func (h *Handler) inviteURL(r *http.Request, roomID string) string {
	base := strings.TrimRight(h.config.Server.PublicURL, "/")
	if base == "" {
		base = getBaseURL(r)
	}
	return base + "/?room=" + url.QueryEscape(roomID)
}

// getBaseURL constructs the base URL from the request
func getBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	// Check for X-Forwarded-Proto header (common in reverse proxy setups)
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	host := r.Host
	if forwardedHost := r.Header.Get("X-Forwarded-Host"); forwardedHost != "" {
		host = forwardedHost
	}

	return scheme + "://" + host
}
