package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Option text length bounds (exclusive), in characters.
const (
	minOptionLength = 1
	maxOptionLength = 300
)

// Loose single-letter labels are only trusted when followed by a
// reasonably sized option body.
const (
	looseMinLength = 10
	looseMaxLength = 100
)

// OptionLabels are the labels an option set may use, in order.
var OptionLabels = [4]string{"A", "B", "C", "D"}

// OptionSet is the result of running one option pattern over a span.
type OptionSet struct {
	Pattern string
	Options map[string]string
	// StemEnd is the byte offset in the span where the first kept option
	// label starts. Everything before it is the question stem.
	StemEnd int
}

// Valid reports whether the set has enough options to form a question.
func (o OptionSet) Valid() bool {
	return len(o.Options) >= 2
}

// OptionPattern extracts labelled choices in one labelling style.
type OptionPattern struct {
	Name    string
	Extract func(span string) OptionSet
}

var (
	numericParenLabel = regexp.MustCompile(`\(\s*([1-4])\s*\)`)
	alphaParenLabel   = regexp.MustCompile(`\(\s*([A-Da-d])\s*\)`)
	numericDotLabel   = regexp.MustCompile(`(?:^|\s)([1-4])\.\s`)
	alphaDotLabel     = regexp.MustCompile(`(?:^|\s)([A-D])\.\s`)
	looseLabel        = regexp.MustCompile(`(?:^|\s)([A-D])\s+`)

	// A dash is a remnant only as a separator ("A - text"); "-2 m" keeps its sign.
	labelRemnant = regexp.MustCompile(`^(?:[\s.):]|-\s)+`)
)

// DefaultOptionPatterns is the fallback chain, most specific first. The
// first pattern yielding at least two options wins.
var DefaultOptionPatterns = []OptionPattern{
	LabelPattern("numeric-paren", numericParenLabel, positionalLabel, 0, 0),
	LabelPattern("alpha-paren", alphaParenLabel, directLabel, 0, 0),
	LabelPattern("numeric-dot", numericDotLabel, positionalLabel, 0, 0),
	LabelPattern("alpha-dot", alphaDotLabel, directLabel, 0, 0),
	LabelPattern("loose", looseLabel, directLabel, looseMinLength, looseMaxLength),
}

// ExtractOptions tries each pattern in order and returns the first set with
// at least two options. It returns an empty set if none qualifies.
func ExtractOptions(span string, patterns []OptionPattern) OptionSet {
	for _, p := range patterns {
		if set := p.Extract(span); set.Valid() {
			return set
		}
	}
	return OptionSet{Options: map[string]string{}, StemEnd: len(span)}
}

// LabelPattern builds an OptionPattern from a label regexp whose first group
// is the raw label. Option text runs from the end of a label to the start of
// the next one. minLen/maxLen, when non-zero, bound the cleaned text length
// (inclusive) on top of the global bounds.
func LabelPattern(name string, label *regexp.Regexp, mapLabel func(string) string, minLen, maxLen int) OptionPattern {
	return OptionPattern{
		Name: name,
		Extract: func(span string) OptionSet {
			locs := label.FindAllStringSubmatchIndex(span, -1)

			type hit struct {
				start int
				text  string
			}
			// A label repeated inside the stem (statement lists, "(A) and (B)")
			// is superseded by its last occurrence, which is where the choices sit.
			kept := make(map[string]hit)
			for i, loc := range locs {
				end := len(span)
				if i+1 < len(locs) {
					end = locs[i+1][0]
				}
				key := mapLabel(span[loc[2]:loc[3]])
				if key == "" {
					continue
				}
				text := cleanOptionText(span[loc[1]:end])
				if !validOptionText(text, minLen, maxLen) {
					continue
				}
				kept[key] = hit{start: loc[0], text: text}
			}

			set := OptionSet{Pattern: name, Options: make(map[string]string, len(kept)), StemEnd: len(span)}
			for key, h := range kept {
				set.Options[key] = h.text
				if h.start < set.StemEnd {
					set.StemEnd = h.start
				}
			}
			return set
		},
	}
}

// positionalLabel maps "1".."4" onto A..D.
func positionalLabel(raw string) string {
	if len(raw) != 1 || raw[0] < '1' || raw[0] > '4' {
		return ""
	}
	return OptionLabels[raw[0]-'1']
}

// directLabel upper-cases an A..D label.
func directLabel(raw string) string {
	l := strings.ToUpper(raw)
	for _, want := range OptionLabels {
		if l == want {
			return l
		}
	}
	return ""
}

// cleanOptionText strips a leftover label prefix, drops line breaks and
// collapses runs of whitespace.
func cleanOptionText(s string) string {
	s = labelRemnant.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func validOptionText(s string, minLen, maxLen int) bool {
	n := utf8.RuneCountInString(s)
	if n <= minOptionLength || n >= maxOptionLength {
		return false
	}
	if minLen > 0 && n < minLen {
		return false
	}
	if maxLen > 0 && n > maxLen {
		return false
	}
	return true
}
