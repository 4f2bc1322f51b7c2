package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/siherrmann/dharmarag/helper"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// PageSource yields the plain text of a document, one entry per page in page order.
type PageSource interface {
	Pages(ctx context.Context, path string) ([]string, error)
}

// ForPath selects the page source for the file extension of path.
func ForPath(path string, logger *slog.Logger) (PageSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDFSource(logger), nil
	case ".txt", ".text", ".md":
		return TextSource{}, nil
	default:
		return nil, helper.NewError("select source", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path)))
	}
}

// PDFSource extracts page text with ledongthuc/pdf.
type PDFSource struct {
	log *slog.Logger
}

func NewPDFSource(logger *slog.Logger) *PDFSource {
	return &PDFSource{log: logger}
}

// Pages returns one entry per PDF page. Pages without extractable text are
// kept as empty strings so page numbers stay aligned.
func (s *PDFSource) Pages(ctx context.Context, path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, helper.NewError("open pdf", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, helper.NewError("stat pdf", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, helper.NewError("read pdf", err)
	}

	pageCount := reader.NumPage()
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			s.log.Warn("Failed to extract text from page", "path", path, "page", i, "error", err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}

// TextSource reads plain text files. Form feeds separate pages.
type TextSource struct{}

func (TextSource) Pages(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helper.NewError("read text", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	return strings.Split(text, "\f"), nil
}
