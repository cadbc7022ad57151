// Package resume turns uploaded documents into plain text and fingerprints
// them for idempotent re-summarization.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/ledongthuc/pdf"
)

// MinTextLength is the plausibility threshold for extracted text. Anything
// shorter is almost certainly a scanned or image-only document.
const MinTextLength = 200

// ErrScannedDocument reports a document whose extracted text is too short to
// be a real resume.
var ErrScannedDocument = errors.New("document appears to be scanned or image-only")

// ExtractText pulls plain text out of an uploaded document. PDFs go through
// the PDF parser; anything else is accepted as-is when it is valid UTF-8.
func ExtractText(filename string, data []byte) (string, error) {
	if isPDF(filename, data) {
		return extractPDF(data)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("unsupported document format: %s", filename)
	}
	return strings.TrimSpace(string(data)), nil
}

// CheckLength enforces the scanned-document heuristic.
func CheckLength(text string) error {
	if len(strings.TrimSpace(text)) < MinTextLength {
		return ErrScannedDocument
	}
	return nil
}

// Fingerprint computes a cheap content hash of the extracted text, used only
// for cache-hit detection. Not cryptographic by design.
func Fingerprint(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// Excerpt returns the first n characters of text on a rune boundary, for the
// degraded raw-text response when summarization fails.
func Excerpt(text string, n int) string {
	text = strings.TrimSpace(text)
	if len(text) <= n {
		return text
	}
	cut := text[:n]
	for !utf8.ValidString(cut) && len(cut) > 0 {
		cut = cut[:len(cut)-1]
	}
	return cut
}

func isPDF(filename string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	text, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}
