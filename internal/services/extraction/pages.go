package extraction

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// pageSeparator joins page texts into the full document text.
const pageSeparator = "\n\n"

// LoadPages reads the PDF at path and decodes one RawPage per physical page.
func LoadPages(path string) ([]RawPage, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ReadPages(data)
}

// ReadPages decodes an in-memory PDF into one RawPage per physical page.
//
// Pages whose text layer cannot be decoded come back empty rather than
// failing the document; only a broken document structure is an error.
func ReadPages(data []byte) (pages []RawPage, err error) {
	// ledongthuc/pdf panics on some corrupt cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	count := reader.NumPage()
	pages = make([]RawPage, 0, count)
	for i := 1; i <= count; i++ {
		pages = append(pages, RawPage{Index: i - 1, Text: pageText(reader.Page(i))})
	}
	return pages, nil
}

// JoinPages concatenates page texts with blank-line separators.
func JoinPages(pages []RawPage) string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, pageSeparator)
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// pageText decodes a single page: text runs on the same row are joined with
// one space, rows with a newline, and the page is trimmed.
func pageText(page pdf.Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	if page.V.IsNull() {
		return ""
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		// Row grouping failed; the flat extractor is more forgiving.
		plain, perr := page.GetPlainText(nil)
		if perr != nil {
			return ""
		}
		return strings.TrimSpace(normalizeRun(plain))
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		runs := make([]string, 0, len(row.Content))
		for _, t := range row.Content {
			if s := strings.TrimSpace(decodeRun(t.S)); s != "" {
				runs = append(runs, s)
			}
		}
		if len(runs) > 0 {
			lines = append(lines, strings.Join(runs, " "))
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// decodeRun undoes percent-encoding inside a text run and normalizes it.
// Runs that are not valid percent-encoding are kept as-is.
func decodeRun(s string) string {
	if strings.Contains(s, "%") {
		if decoded, err := url.PathUnescape(s); err == nil {
			s = decoded
		}
	}
	return normalizeRun(s)
}

// normalizeRun folds compatibility characters (ligatures, full-width digits
// and letters) so the pattern recognizers see plain ASCII labels.
func normalizeRun(s string) string {
	return norm.NFKC.String(s)
}
