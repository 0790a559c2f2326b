package extraction

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// pageProbeLength is how much of a span is used to find its source page.
const pageProbeLength = 50

// Assemble turns reconciled spans into validated questions, sorted by number.
// Spans without at least two options or without a stem are dropped and
// counted in stats.
func Assemble(spans []Span, pages []RawPage, patterns []OptionPattern, lexicons []Lexicon, stats *Stats) []ExtractedQuestion {
	questions := make([]ExtractedQuestion, 0, len(spans))
	for _, span := range spans {
		set := ExtractOptions(span.Text, patterns)
		if !set.Valid() {
			stats.TooFewOptions++
			continue
		}

		stem := cleanStem(span.Text[:set.StemEnd])
		if stem == "" {
			stats.EmptyStem++
			continue
		}

		questions = append(questions, ExtractedQuestion{
			QuestionNumber: span.Number,
			QuestionText:   stem,
			Options:        set.Options,
			Subject:        Classify(span.Text, lexicons),
			PageNumber:     PageFor(span.Text, pages),
		})
	}

	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].QuestionNumber < questions[j].QuestionNumber
	})
	stats.QuestionsCreated = len(questions)
	return questions
}

// PageFor returns the 1-based page whose text contains the first 50
// characters of span, or 1 when no page does.
func PageFor(span string, pages []RawPage) int {
	probe := truncateRunes(span, pageProbeLength)
	if probe == "" {
		return 1
	}
	for _, p := range pages {
		if strings.Contains(p.Text, probe) {
			return p.Index + 1
		}
	}
	return 1
}

func cleanStem(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
