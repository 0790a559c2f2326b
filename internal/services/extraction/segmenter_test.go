// segmenter_test.go: tests for question-number recognition and duplicate
// reconciliation.
package extraction

import (
	"strings"
	"testing"
)

func TestSegment_NumberingStyles(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantNum []int
	}{
		{
			name:    "bare numeric with dot",
			text:    "1. What is the SI unit of force? (1) Newton (2) Joule\n2. Which quantity is a vector? (1) Speed (2) Velocity",
			wantNum: []int{1, 2},
		},
		{
			name:    "bare numeric with parenthesis",
			text:    "7) A particle moves along a circle of radius r\n8) Dimensional formula of pressure is",
			wantNum: []int{7, 8},
		},
		{
			name:    "Q dot prefix",
			text:    "Q.5 Which organelle is the powerhouse of the cell? Q.6 Which gas is released in photosynthesis?",
			wantNum: []int{5, 6},
		},
		{
			name:    "Q space prefix",
			text:    "Q 12 Identify the strongest acid among these",
			wantNum: []int{12},
		},
		{
			name:    "Question prefix with colon",
			text:    "Question 3: The hybridisation of carbon in methane is\nQuestion 4 The pH of pure water at 25C is",
			wantNum: []int{3, 4},
		},
		{
			name:    "option labels in parentheses are not question numbers",
			text:    "9. The unit of resistance is (1) ohm metre (2) ohm (3) mho (4) volt",
			wantNum: []int{9},
		},
		{
			name:    "numbered option rows stay with their question",
			text:    "5. Which organelle is the powerhouse of the cell?\n1. Nucleus body\n2. Mitochondria\n3. Ribosome unit\n4. Golgi body\n6. Which gas is released in photosynthesis?",
			wantNum: []int{5, 6},
		},
		{
			name:    "a paper starting at question one",
			text:    "1. First question body text\n2. Second question body text\n3. Third question body text",
			wantNum: []int{1, 2, 3},
		},
		{
			name:    "inline numeric labels are not markers",
			text:    "10. Choose the correct pair 1. alpha beta 2. gamma delta",
			wantNum: []int{10},
		},
		{
			name:    "decimal numbers are not markers",
			text:    "The value is 3.5 metres and 2.25 seconds in total here",
			wantNum: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, _ := Segment(tt.text, DefaultRecognizers)
			var got []int
			for _, s := range spans {
				got = append(got, s.Number)
			}
			if len(got) != len(tt.wantNum) {
				t.Fatalf("Segment() numbers = %v, want %v", got, tt.wantNum)
			}
			for i := range got {
				if got[i] != tt.wantNum[i] {
					t.Errorf("Segment() numbers = %v, want %v", got, tt.wantNum)
				}
			}
		})
	}
}

func TestSegment_ValidityFilter(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"span shorter than ten characters", "4. too short"[:10]},
		{"seven multibyte characters", "1. αβγδεζη"},
		{"number zero", "0. This question number is out of range entirely"},
		{"number above 200", "201. This question number is out of range entirely"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, stats := Segment(tt.text, DefaultRecognizers)
			if len(spans) != 0 {
				t.Errorf("Segment(%q) = %v, want no spans", tt.text, spans)
			}
			if stats.Rejected == 0 {
				t.Errorf("Segment(%q) rejected = 0, want > 0", tt.text)
			}
		})
	}
}

func TestSegment_LongerDuplicateWins(t *testing.T) {
	text := "Question 3: A much longer capture of the same question with more context (1) first (2) second (3) third (4) fourth\n" +
		"3. Short stem text (1) aa (2) bb"

	spans, stats := Segment(text, DefaultRecognizers)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1: %v", len(spans), spans)
	}
	if spans[0].Number != 3 {
		t.Errorf("number = %d, want 3", spans[0].Number)
	}
	if !strings.HasPrefix(spans[0].Text, "A much longer capture") {
		t.Errorf("kept %q, want the longer candidate", spans[0].Text)
	}
	if stats.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", stats.Duplicates)
	}
}

func TestSegment_TieKeepsFirstSeen(t *testing.T) {
	first := Recognizer{Name: "first", Find: func(string) []Candidate {
		return []Candidate{{Number: 1, Text: "first candidate text"}}
	}}
	second := Recognizer{Name: "second", Find: func(string) []Candidate {
		return []Candidate{{Number: 1, Text: "other candidate text"}}
	}}

	spans, _ := Segment("", []Recognizer{first, second})
	if len(spans) != 1 || spans[0].Text != "first candidate text" {
		t.Errorf("Segment() = %v, want first candidate kept", spans)
	}
}

func TestSegment_SortedAscending(t *testing.T) {
	text := "Q.9 Ninth question body text\nQ.2 Second question body text\nQ.5 Fifth question body text"
	spans, _ := Segment(text, DefaultRecognizers)
	for i := 1; i < len(spans); i++ {
		if spans[i-1].Number >= spans[i].Number {
			t.Fatalf("spans not ascending: %v", spans)
		}
	}
	if len(spans) != 3 {
		t.Errorf("got %d spans, want 3", len(spans))
	}
}
