// Package docutil extracts plain text from uploaded document payloads.
package docutil

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// SupportedTypes lists the file extensions accepted for ingestion.
var SupportedTypes = []string{".txt", ".md", ".pdf"}

// IsSupported reports whether the file name has a supported extension.
func IsSupported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, s := range SupportedTypes {
		if ext == s {
			return true
		}
	}
	return false
}

// IsBinary reports whether the file format requires binary parsing, meaning
// the payload cannot be taken as plain text.
func IsBinary(fileName string) bool {
	return strings.ToLower(filepath.Ext(fileName)) == ".pdf"
}

// ExtractText extracts plain text from a document payload based on the
// file extension.
func ExtractText(fileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".txt", ".md":
		return string(data), nil
	case ".pdf":
		return extractPDF(data)
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

// extractPDF extracts text from a PDF payload, page by page.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", fmt.Errorf("no extractable text in pdf")
	}
	return result, nil
}
