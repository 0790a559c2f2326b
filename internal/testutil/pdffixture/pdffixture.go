// Package pdffixture writes small, valid PDFs with known text for tests.
package pdffixture

import (
	"bytes"
	"fmt"
	"strings"
)

// Run is one Tj text run placed at an absolute position.
type Run struct {
	X, Y float64
	Text string
}

// Build writes a minimal, valid PDF with one page per entry. Each page
// is a list of text runs drawn in Helvetica. A page with no runs gets an
// empty content stream.
func Build(pages ...[]Run) []byte {
	var buf bytes.Buffer
	total := 3 + 2*len(pages)
	offsets := make([]int, total+1)

	writeObj := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, runs := range pages {
		pageID := 4 + 2*i
		contentID := pageID + 1
		writeObj(pageID, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentID))
		stream := contentStream(runs)
		writeObj(contentID, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", total+1)
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= total; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xref)
	return buf.Bytes()
}

// contentStream places every run with an absolute text matrix.
func contentStream(runs []Run) string {
	if len(runs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("BT\n/F1 12 Tf\n")
	for _, r := range runs {
		fmt.Fprintf(&sb, "1 0 0 1 %g %g Tm\n(%s) Tj\n", r.X, r.Y, escapePDFString(r.Text))
	}
	sb.WriteString("ET")
	return sb.String()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Lines lays out one run per line, top to bottom.
func Lines(texts ...string) []Run {
	runs := make([]Run, len(texts))
	for i, t := range texts {
		runs[i] = Run{X: 72, Y: 720 - float64(i)*20, Text: t}
	}
	return runs
}
