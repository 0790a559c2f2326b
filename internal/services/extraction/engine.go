package extraction

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// Engine runs the extraction pipeline. The zero value is not usable; call
// NewEngine. An Engine holds only read-only configuration, so one instance
// can serve concurrent runs.
type Engine struct {
	recognizers []Recognizer
	patterns    []OptionPattern
	lexicons    []Lexicon
	ocr         *OCR
}

// NewEngine creates an engine with the default recognizers, option patterns
// and lexicons, and OCR disabled.
func NewEngine() *Engine {
	return &Engine{
		recognizers: DefaultRecognizers,
		patterns:    DefaultOptionPatterns,
		lexicons:    DefaultLexicons,
	}
}

// SetOCR enables the OCR fallback for pages without a text layer.
// Passing nil, or an OCR whose tools are missing, disables it.
func (e *Engine) SetOCR(ocr *OCR) {
	if ocr != nil && !ocr.Available() {
		ocr = nil
	}
	e.ocr = ocr
}

// OCREnabled reports whether the OCR fallback is active.
func (e *Engine) OCREnabled() bool {
	return e.ocr != nil
}

// ExtractFile runs the full pipeline on the PDF at path.
//
// It fails with ErrFileNotFound or ErrMalformedDocument; a document with no
// recognizable questions is a successful run with an empty question list.
func (e *Engine) ExtractFile(path string, progress ProgressFunc) (*ProcessingResult, error) {
	start := time.Now()
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return e.extract(data, path, start, progress)
}

// ExtractBytes runs the full pipeline on an in-memory PDF. name is used for
// logging only.
func (e *Engine) ExtractBytes(data []byte, name string, progress ProgressFunc) (*ProcessingResult, error) {
	return e.extract(data, name, time.Now(), progress)
}

func (e *Engine) extract(data []byte, name string, start time.Time, progress ProgressFunc) (*ProcessingResult, error) {
	pages, err := ReadPages(data)
	if err != nil {
		return nil, err
	}
	progress.report(10, fmt.Sprintf("Decoded %d pages", len(pages)))

	ocrPages := e.fillScannedPages(data, pages)
	progress.report(40, fmt.Sprintf("Extracted text from %d pages", len(pages)))

	result := e.process(pages, start, progress)
	result.Stats.OCRPages = ocrPages

	s := result.Stats
	log.Printf("📄 %s: %s (candidates=%d rejected=%d duplicates=%d too_few_options=%d empty_stem=%d ocr_pages=%d)",
		name, result.Summary(), s.Candidates, s.Rejected, s.Duplicates, s.TooFewOptions, s.EmptyStem, s.OCRPages)
	return result, nil
}

// Process runs segmentation, option extraction, classification and assembly
// over already decoded pages. It is deterministic in its inputs apart from
// ProcessingTime, which is measured from start.
func (e *Engine) Process(pages []RawPage, start time.Time) *ProcessingResult {
	return e.process(pages, start, nil)
}

func (e *Engine) process(pages []RawPage, start time.Time, progress ProgressFunc) *ProcessingResult {
	fullText := JoinPages(pages)

	spans, seg := Segment(fullText, e.recognizers)
	progress.report(60, fmt.Sprintf("Found %d candidate questions", len(spans)))

	stats := Stats{Candidates: seg.Candidates, Rejected: seg.Rejected, Duplicates: seg.Duplicates}
	questions := Assemble(spans, pages, e.patterns, e.lexicons, &stats)
	progress.report(90, fmt.Sprintf("Parsed options for %d questions", len(questions)))

	result := &ProcessingResult{
		Questions:      questions,
		TotalPages:     len(pages),
		ExtractedText:  fullText,
		ProcessingTime: time.Since(start).Milliseconds(),
		Stats:          stats,
	}
	progress.report(100, result.Summary())
	return result
}

// fillScannedPages runs OCR on pages that decoded to no text and returns how
// many pages it filled. OCR problems never fail the run.
func (e *Engine) fillScannedPages(data []byte, pages []RawPage) int {
	if e.ocr == nil {
		return 0
	}
	var empty []int
	for i, p := range pages {
		if p.Text == "" {
			empty = append(empty, i)
		}
	}
	if len(empty) == 0 {
		return 0
	}

	// tesseract and pdftoppm need a file on disk.
	tmp, err := os.CreateTemp("", "neet-ocr-*.pdf")
	if err != nil {
		log.Printf("⚠️  OCR skipped: %v", err)
		return 0
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		log.Printf("⚠️  OCR skipped: %v", err)
		return 0
	}
	tmp.Close()

	filled := 0
	for _, i := range empty {
		text, err := e.ocr.RecognizePage(context.Background(), tmp.Name(), pages[i].Index+1)
		if err != nil {
			log.Printf("⚠️  OCR failed on page %d: %v", pages[i].Index+1, err)
			continue
		}
		if text = normalizeOCR(text); text != "" {
			pages[i].Text = text
			filled++
		}
	}
	return filled
}

// normalizeOCR trims each recognized line, drops blank lines and applies the
// same normalization as text-layer runs.
func normalizeOCR(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(normalizeRun(line)), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
