// Package textextract pulls plain text out of uploaded source-material
// documents so it can seed dataset generation prompts.
package textextract

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extract returns the text content of a document, dispatching on the file
// extension. PDF and plain text are supported.
func Extract(data io.ReaderAt, size int64, fileName string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return extractPDF(data, size)
	case ".txt", ".md", "":
		return extractPlain(data, size)
	default:
		return "", fmt.Errorf("unsupported source material type: %s", fileName)
	}
}

func extractPDF(data io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable pages are skipped; partial text still seeds
			// a useful prompt.
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

func extractPlain(data io.ReaderAt, size int64) (string, error) {
	buf := make([]byte, size)
	if _, err := data.ReadAt(buf, 0); err != nil && err != io.EOF {
		return "", fmt.Errorf("read text: %w", err)
	}
	return strings.TrimSpace(string(buf)), nil
}
