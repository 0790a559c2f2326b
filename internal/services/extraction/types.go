// Package extraction turns NEET exam PDFs into structured multiple-choice questions.
//
// The pipeline runs in five stages over a single document:
//
//	raw bytes -> page text -> question spans -> options -> subject -> result
//
// Each run is independent and owns all of its intermediate state, so an
// Engine can be shared between goroutines without locking.
package extraction

import (
	"errors"
	"strings"
)

// Subject is the NEET paper section a question belongs to.
type Subject string

const (
	SubjectPhysics   Subject = "Physics"
	SubjectChemistry Subject = "Chemistry"
	SubjectBiology   Subject = "Biology"
)

// ParseSubject matches name against the three subjects, ignoring case.
func ParseSubject(name string) (Subject, bool) {
	for _, s := range []Subject{SubjectPhysics, SubjectChemistry, SubjectBiology} {
		if strings.EqualFold(name, string(s)) {
			return s, true
		}
	}
	return "", false
}

// Question number bounds. Anything outside is a stray numeral, not a question.
const (
	MinQuestionNumber = 1
	MaxQuestionNumber = 200
)

var (
	// ErrFileNotFound means the input path does not resolve to a file.
	ErrFileNotFound = errors.New("file not found")
	// ErrMalformedDocument means the PDF structure could not be decoded.
	// Retrying the same bytes will not help.
	ErrMalformedDocument = errors.New("malformed document")
)

// RawPage is the decoded text of one physical page.
type RawPage struct {
	Index int    `json:"index"` // 0-based
	Text  string `json:"text"`
}

// ExtractedQuestion is one validated multiple-choice question.
type ExtractedQuestion struct {
	QuestionNumber int               `json:"questionNumber"`
	QuestionText   string            `json:"questionText"`
	Options        map[string]string `json:"options"` // keys drawn from A-D, 2 to 4 entries
	Subject        Subject           `json:"subject"`
	PageNumber     int               `json:"pageNumber"` // 1-based
}

// Stats counts what happened to candidate spans during a run.
type Stats struct {
	Candidates       int `json:"candidates"`
	Rejected         int `json:"rejected"`
	Duplicates       int `json:"duplicates"`
	TooFewOptions    int `json:"too_few_options"`
	EmptyStem        int `json:"empty_stem"`
	OCRPages         int `json:"ocr_pages"`
	QuestionsCreated int `json:"questions_created"`
}

// ProcessingResult is the output of one extraction run.
type ProcessingResult struct {
	Questions      []ExtractedQuestion `json:"questions"`
	TotalPages     int                 `json:"totalPages"`
	ExtractedText  string              `json:"extractedText"`
	ProcessingTime int64               `json:"processingTime"` // milliseconds
	Stats          Stats               `json:"stats"`
}

// Summary is the user-facing one-liner for a finished run.
func (r *ProcessingResult) Summary() string {
	return FormatSummary(len(r.Questions), r.TotalPages)
}

// FormatSummary renders the user-visible run summary,
// e.g. "45 questions extracted from 12 pages".
func FormatSummary(questions, pages int) string {
	return pluralize(questions, "question") + " extracted from " + pluralize(pages, "page")
}

// ProgressFunc receives coarse progress milestones (0-100) during a run.
type ProgressFunc func(percent int, message string)

func (f ProgressFunc) report(percent int, message string) {
	if f != nil {
		f(percent, message)
	}
}
