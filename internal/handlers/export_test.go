// export_test.go contains tests for the export formatters.
//
// Go Pattern: Table-driven tests. Each case is a struct with inputs and
// expected outputs, and the test body loops over them with t.Run.
package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
)

func exportFixture() (*models.ExtractionJob, []models.Question) {
	job := &models.ExtractionJob{
		ID:                 "job-1",
		OriginalName:       "NEET 2024.pdf",
		Status:             models.StatusCompleted,
		TotalPages:         2,
		QuestionsExtracted: 3,
	}
	questions := []models.Question{
		{
			QuestionNumber: 3, Subject: "Chemistry", PageNumber: 1,
			QuestionText: `Which of the following is an "inert" gas, at STP?`,
			Options:      []byte(`{"A":"Argon","B":"Nitrogen"}`),
		},
		{
			QuestionNumber: 12, Subject: "Physics", PageNumber: 1,
			QuestionText: "A body of mass 2 kg moves with velocity 3 m/s. Its kinetic energy is",
			Options:      []byte(`{"A":"9 J","B":"6 J","C":"3 J","D":"18 J"}`),
		},
		{
			QuestionNumber: 40, Subject: "Biology", PageNumber: 2,
			QuestionText: "Which organelle is the site of photosynthesis?",
			Options:      []byte(`{"B":"Chloroplast","A":"Mitochondria"}`),
		},
	}
	return job, questions
}

func TestExportCSV(t *testing.T) {
	_, questions := exportFixture()
	out, err := exportCSV(questions)
	if err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(records))
	}

	wantHeader := []string{"question_number", "subject", "page_number", "question_text", "A", "B", "C", "D"}
	if strings.Join(records[0], ",") != strings.Join(wantHeader, ",") {
		t.Errorf("header = %v", records[0])
	}

	chem := records[1]
	if chem[3] != `Which of the following is an "inert" gas, at STP?` {
		t.Errorf("question text did not survive quoting: %q", chem[3])
	}
	if chem[4] != "Argon" || chem[5] != "Nitrogen" || chem[6] != "" || chem[7] != "" {
		t.Errorf("option columns = %v", chem[4:])
	}
	if records[2][0] != "12" || records[2][7] != "18 J" {
		t.Errorf("physics row = %v", records[2])
	}
}

func TestExportJSON(t *testing.T) {
	job, questions := exportFixture()
	out, err := exportJSON(job, questions)
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Summary   string `json:"summary"`
		Questions []struct {
			QuestionNumber int               `json:"questionNumber"`
			Options        map[string]string `json:"options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Summary != "3 questions extracted from 2 pages" {
		t.Errorf("summary = %q", doc.Summary)
	}
	if len(doc.Questions) != 3 || doc.Questions[1].Options["D"] != "18 J" {
		t.Errorf("questions = %+v", doc.Questions)
	}
}

func TestExportMarkdown(t *testing.T) {
	job, questions := exportFixture()
	out, err := exportMarkdown(job, questions)
	if err != nil {
		t.Fatal(err)
	}
	md := string(out)

	if !strings.HasPrefix(md, "# NEET 2024.pdf\n") {
		t.Errorf("missing title: %q", md[:30])
	}
	physics := strings.Index(md, "## Physics")
	chemistry := strings.Index(md, "## Chemistry")
	biology := strings.Index(md, "## Biology")
	if physics < 0 || !(physics < chemistry && chemistry < biology) {
		t.Errorf("sections out of order: physics=%d chemistry=%d biology=%d", physics, chemistry, biology)
	}
	if !strings.Contains(md, "**Q40.** Which organelle is the site of photosynthesis?\n\n- (A) Mitochondria\n- (B) Chloroplast\n") {
		t.Errorf("biology question not rendered with sorted options:\n%s", md)
	}
}

func TestExportText(t *testing.T) {
	_, questions := exportFixture()
	out, err := exportText(questions[1:2])
	if err != nil {
		t.Fatal(err)
	}
	want := "12. [Physics] A body of mass 2 kg moves with velocity 3 m/s. Its kinetic energy is\n" +
		"   (A) 9 J\n   (B) 6 J\n   (C) 3 J\n   (D) 18 J\n"
	if string(out) != want {
		t.Errorf("exportText() =\n%s\nwant\n%s", out, want)
	}
}

func TestRenderExport_Errors(t *testing.T) {
	job, _ := exportFixture()
	broken := []models.Question{{QuestionNumber: 1, Subject: "Physics", Options: []byte(`not json`)}}

	for _, format := range []string{"json", "csv", "md", "txt"} {
		t.Run(format, func(t *testing.T) {
			if _, err := renderExport(format, job, broken); err == nil {
				t.Error("expected error for invalid options JSON")
			}
		})
	}
	if _, err := renderExport("pdf", job, nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestGroupBySubject_SkipsEmptySubjects(t *testing.T) {
	_, questions := exportFixture()
	groups := groupBySubject(questions[:2])
	if len(groups) != 2 || groups[0].subject != "Physics" || groups[1].subject != "Chemistry" {
		t.Errorf("groups = %+v", groups)
	}
}

// TestSanitizeFilename verifies filename sanitization.
func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean filename", "NEET 2024 Phase 1", "NEET 2024 Phase 1"},
		{"slashes and colons", "NEET 2024 Paper/Set A: Code Q1", "NEET 2024 Paper-Set A- Code Q1"},
		{"special characters", "What is Go? <A Guide>", "What is Go- -A Guide-"},
		{"empty string", "", ""},
		{"long name gets truncated", strings.Repeat("a", 200), strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
