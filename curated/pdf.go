package curated

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFLoader extracts plain text from PDF documents page by page.
type PDFLoader struct{}

func (l *PDFLoader) SupportedFormats() []string { return []string{"pdf"} }

func (l *PDFLoader) Load(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("no extractable text in %s", path)
	}
	return b.String(), nil
}
