package extraction

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// minSpanLength is the shortest trimmed span accepted as a question.
const minSpanLength = 10

// Candidate is one question-number hit produced by a Recognizer.
type Candidate struct {
	Number int
	Text   string
	Offset int // byte offset of the numbering marker in the full text
}

// Recognizer finds every question-number marker of one numbering style and
// returns the text between each marker and the next marker of the same style.
type Recognizer struct {
	Name string
	Find func(text string) []Candidate
}

// Numbering styles seen in NEET papers. The bare style only counts at the
// start of a row, so inline option labels like "(1)" or "2." are not
// mistaken for question numbers.
var (
	bareNumberMarker = regexp.MustCompile(`(?m)^[ \t]*(\d{1,3})[.)]\s`)
	qNumberMarker    = regexp.MustCompile(`\bQ(?:\.\s*|\s+)?(\d{1,3})\b[.):]?`)
	questionMarker   = regexp.MustCompile(`(?i)\bquestion\s+(\d{1,3})\b\s*:?`)
)

// DefaultRecognizers is the numbering-style chain, applied in this order.
var DefaultRecognizers = []Recognizer{
	BareNumberRecognizer(bareNumberMarker),
	MarkerRecognizer("q-prefix", qNumberMarker),
	MarkerRecognizer("question-prefix", questionMarker),
}

// MarkerRecognizer builds a Recognizer from a marker pattern whose first
// capture group is the question number.
func MarkerRecognizer(name string, marker *regexp.Regexp) Recognizer {
	return Recognizer{
		Name: name,
		Find: func(text string) []Candidate {
			locs := marker.FindAllStringSubmatchIndex(text, -1)
			out := make([]Candidate, 0, len(locs))
			for i, loc := range locs {
				end := len(text)
				if i+1 < len(locs) {
					end = locs[i+1][0]
				}
				n, err := strconv.Atoi(text[loc[2]:loc[3]])
				if err != nil {
					continue
				}
				out = append(out, Candidate{
					Number: n,
					Text:   strings.TrimSpace(text[loc[1]:end]),
					Offset: loc[2],
				})
			}
			return out
		},
	}
}

// BareNumberRecognizer is MarkerRecognizer for row-leading "N." markers,
// which questions and numbered option lists share. A run 1, 2, 3, 4 that
// starts after an earlier marker is the option list of the question above
// it, so those rows stay inside that question's text.
func BareNumberRecognizer(marker *regexp.Regexp) Recognizer {
	return Recognizer{
		Name: "numeric",
		Find: func(text string) []Candidate {
			type boundary struct {
				number     int
				start, end int // marker start, body start
				numStart   int
			}
			var bounds []boundary
			nextOption := 0 // next label expected in an option run, 0 outside one
			for i, loc := range marker.FindAllStringSubmatchIndex(text, -1) {
				n, err := strconv.Atoi(text[loc[2]:loc[3]])
				if err != nil {
					continue
				}
				switch {
				case i > 0 && n == 1:
					nextOption = 2
					continue
				case nextOption > 0 && n == nextOption && n <= len(OptionLabels):
					nextOption++
					continue
				}
				nextOption = 0
				bounds = append(bounds, boundary{number: n, start: loc[0], end: loc[1], numStart: loc[2]})
			}

			out := make([]Candidate, 0, len(bounds))
			for i, b := range bounds {
				end := len(text)
				if i+1 < len(bounds) {
					end = bounds[i+1].start
				}
				out = append(out, Candidate{
					Number: b.number,
					Text:   strings.TrimSpace(text[b.end:end]),
					Offset: b.numStart,
				})
			}
			return out
		},
	}
}

// Span is the winning raw text for one question number.
type Span struct {
	Number int
	Text   string
}

// SegmentStats counts candidate outcomes for logging.
type SegmentStats struct {
	Candidates int
	Rejected   int
	Duplicates int
}

// Segment runs every recognizer over the whole text and reconciles the hits
// into one span per question number, sorted ascending by number.
//
// Candidates shorter than minSpanLength or numbered outside 1..200 are
// dropped. When a number is seen more than once the longer text wins and
// ties keep the first one seen.
func Segment(text string, recognizers []Recognizer) ([]Span, SegmentStats) {
	var stats SegmentStats
	best := make(map[int]string)

	for _, r := range recognizers {
		for _, c := range r.Find(text) {
			stats.Candidates++
			if !validCandidate(c) {
				stats.Rejected++
				continue
			}
			prev, seen := best[c.Number]
			if !seen {
				best[c.Number] = c.Text
				continue
			}
			stats.Duplicates++
			if len(c.Text) > len(prev) {
				best[c.Number] = c.Text
			}
		}
	}

	spans := make([]Span, 0, len(best))
	for n, t := range best {
		spans = append(spans, Span{Number: n, Text: t})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Number < spans[j].Number })
	return spans, stats
}

func validCandidate(c Candidate) bool {
	if c.Number < MinQuestionNumber || c.Number > MaxQuestionNumber {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(c.Text)) >= minSpanLength
}
