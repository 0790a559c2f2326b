package extraction

import "testing"

func TestPageFor(t *testing.T) {
	pages := []RawPage{
		{Index: 0, Text: "Physics section instructions"},
		{Index: 1, Text: "1. What is the SI unit of force? (1) Newton (2) Joule"},
		{Index: 2, Text: "Q.5 Which organelle is known as the powerhouse of the cell?"},
	}

	tests := []struct {
		name string
		span string
		want int
	}{
		{"found on second page", "What is the SI unit of force? (1) Newton (2) Joule", 2},
		{"found on third page", "Which organelle is known as the powerhouse of the cell?", 3},
		{"not found defaults to first page", "text that appears nowhere in the document", 1},
		{"empty span defaults to first page", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageFor(tt.span, pages); got != tt.want {
				t.Errorf("PageFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPageFor_UsesFirstFiftyCharacters(t *testing.T) {
	// The span continues past the page boundary, but its prefix is on page 2.
	pages := []RawPage{
		{Index: 0, Text: "cover"},
		{Index: 1, Text: "A long question stem that begins on this page and goes on"},
	}
	span := "A long question stem that begins on this page and goes on\n\nand ends on the next page"
	if got := PageFor(span, pages); got != 2 {
		t.Errorf("PageFor() = %d, want 2", got)
	}
}

func TestAssemble(t *testing.T) {
	spans := []Span{
		{Number: 7, Text: "Which gas is most abundant in air? (1) Nitrogen (2) Oxygen (3) Argon (4) Carbon dioxide"},
		{Number: 2, Text: "What is the SI unit of force? (1) Newton (2) Joule (3) Watt (4) Pascal"},
		{Number: 4, Text: "A statement with no labelled choices at all"},
		{Number: 5, Text: "(1) Newton (2) Joule (3) Watt"},
	}
	pages := []RawPage{{Index: 0, Text: spans[1].Text}, {Index: 1, Text: spans[0].Text}}

	var stats Stats
	got := Assemble(spans, pages, DefaultOptionPatterns, DefaultLexicons, &stats)

	if len(got) != 2 {
		t.Fatalf("Assemble() returned %d questions, want 2: %+v", len(got), got)
	}
	if got[0].QuestionNumber != 2 || got[1].QuestionNumber != 7 {
		t.Errorf("numbers = %d, %d, want 2, 7", got[0].QuestionNumber, got[1].QuestionNumber)
	}
	if got[0].QuestionText != "What is the SI unit of force?" {
		t.Errorf("stem = %q", got[0].QuestionText)
	}
	if got[0].PageNumber != 1 || got[1].PageNumber != 2 {
		t.Errorf("pages = %d, %d, want 1, 2", got[0].PageNumber, got[1].PageNumber)
	}
	if got[0].Subject != SubjectPhysics {
		t.Errorf("subject = %s, want Physics", got[0].Subject)
	}
	if stats.TooFewOptions != 1 {
		t.Errorf("TooFewOptions = %d, want 1", stats.TooFewOptions)
	}
	if stats.EmptyStem != 1 {
		t.Errorf("EmptyStem = %d, want 1", stats.EmptyStem)
	}
	if stats.QuestionsCreated != 2 {
		t.Errorf("QuestionsCreated = %d, want 2", stats.QuestionsCreated)
	}
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 questions"},
		{1, "1 question"},
		{12, "12 questions"},
	}
	for _, tt := range tests {
		if got := pluralize(tt.n, "question"); got != tt.want {
			t.Errorf("pluralize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
