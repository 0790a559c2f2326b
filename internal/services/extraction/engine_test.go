package extraction

import (
	"reflect"
	"testing"
	"time"
)

func TestEngine_Process_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		pages       []string
		wantNumbers []int
		check       func(t *testing.T, qs []ExtractedQuestion)
	}{
		{
			name:        "numeric parenthesised options",
			pages:       []string{"1. What is the SI unit of force? (1) Newton (2) Joule (3) Watt (4) Pascal"},
			wantNumbers: []int{1},
			check: func(t *testing.T, qs []ExtractedQuestion) {
				q := qs[0]
				want := map[string]string{"A": "Newton", "B": "Joule", "C": "Watt", "D": "Pascal"}
				if !reflect.DeepEqual(q.Options, want) {
					t.Errorf("options = %v, want %v", q.Options, want)
				}
				if q.QuestionText != "What is the SI unit of force?" {
					t.Errorf("stem = %q", q.QuestionText)
				}
				if q.Subject != SubjectPhysics {
					t.Errorf("subject = %s, want Physics", q.Subject)
				}
				if q.PageNumber != 1 {
					t.Errorf("page = %d, want 1", q.PageNumber)
				}
			},
		},
		{
			name: "Q-prefixed question with lettered options",
			pages: []string{
				"Instructions for candidates",
				"Q.5 Which organelle is known as the powerhouse of the cell?\nA. Mitochondria\nB. Ribosome\nC. Golgi body\nD. Nucleus",
			},
			wantNumbers: []int{5},
			check: func(t *testing.T, qs []ExtractedQuestion) {
				q := qs[0]
				if q.Subject != SubjectBiology {
					t.Errorf("subject = %s, want Biology", q.Subject)
				}
				if q.Options["A"] != "Mitochondria" || q.Options["D"] != "Nucleus" {
					t.Errorf("options = %v", q.Options)
				}
				if q.PageNumber != 2 {
					t.Errorf("page = %d, want 2", q.PageNumber)
				}
			},
		},
		{
			name:        "Q-prefixed question on a single line",
			pages:       []string{"Q.5 Which organelle is the powerhouse of the cell? A. Nucleus B. Mitochondria C. Ribosome D. Golgi body"},
			wantNumbers: []int{5},
			check: func(t *testing.T, qs []ExtractedQuestion) {
				q := qs[0]
				want := map[string]string{"A": "Nucleus", "B": "Mitochondria", "C": "Ribosome", "D": "Golgi body"}
				if !reflect.DeepEqual(q.Options, want) {
					t.Errorf("options = %v, want %v", q.Options, want)
				}
				if q.Subject != SubjectBiology {
					t.Errorf("subject = %s, want Biology", q.Subject)
				}
			},
		},
		{
			name:        "bare number with numbered option rows",
			pages:       []string{"5. Which organelle is the powerhouse of the cell?\n1. Nucleus body\n2. Mitochondria\n3. Ribosome unit\n4. Golgi body"},
			wantNumbers: []int{5},
			check: func(t *testing.T, qs []ExtractedQuestion) {
				q := qs[0]
				want := map[string]string{"A": "Nucleus body", "B": "Mitochondria", "C": "Ribosome unit", "D": "Golgi body"}
				if !reflect.DeepEqual(q.Options, want) {
					t.Errorf("options = %v, want %v", q.Options, want)
				}
				if q.QuestionText != "Which organelle is the powerhouse of the cell?" {
					t.Errorf("stem = %q", q.QuestionText)
				}
				if q.Subject != SubjectBiology {
					t.Errorf("subject = %s, want Biology", q.Subject)
				}
			},
		},
		{
			name: "duplicate number keeps the longer capture",
			pages: []string{
				"Question 3: Which of the following has the highest electronegativity among the halogens? (1) Fluorine (2) Chlorine (3) Bromine (4) Iodine\n" +
					"3. Short copy of the stem",
			},
			wantNumbers: []int{3},
			check: func(t *testing.T, qs []ExtractedQuestion) {
				q := qs[0]
				if q.Options["A"] != "Fluorine" {
					t.Errorf("options = %v, want the longer capture's options", q.Options)
				}
				if q.Subject != SubjectChemistry {
					t.Errorf("subject = %s, want Chemistry", q.Subject)
				}
			},
		},
		{
			name:        "unsupported option labels are dropped",
			pages:       []string{"1. Some question text here A) Option text B) Other text"},
			wantNumbers: nil,
		},
		{
			name:        "no questions in the document",
			pages:       []string{"General instructions only.", ""},
			wantNumbers: nil,
		},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Process(rawPages(tt.pages...), time.Now())

			if result.TotalPages != len(tt.pages) {
				t.Errorf("TotalPages = %d, want %d", result.TotalPages, len(tt.pages))
			}
			if len(result.Questions) != len(tt.wantNumbers) {
				t.Fatalf("got %d questions, want %d: %+v", len(result.Questions), len(tt.wantNumbers), result.Questions)
			}
			for i, n := range tt.wantNumbers {
				if result.Questions[i].QuestionNumber != n {
					t.Errorf("question %d number = %d, want %d", i, result.Questions[i].QuestionNumber, n)
				}
			}
			if tt.check != nil {
				tt.check(t, result.Questions)
			}
		})
	}
}

func TestEngine_Process_ResultProperties(t *testing.T) {
	pages := rawPages(
		"Q.12 A body of mass 2 kg moves with velocity 3 m/s. Its momentum is (1) 6 kg m/s (2) 1.5 kg m/s (3) 5 kg m/s (4) 9 kg m/s\n"+
			"Q.3 Which of these is an alkane? (1) Ethene (2) Ethane (3) Ethyne (4) Benzene",
		"Q.40 Mendel worked on which plant?\nA. Garden pea\nB. Maize\nC. Wheat",
	)

	result := NewEngine().Process(pages, time.Now())
	if len(result.Questions) != 3 {
		t.Fatalf("got %d questions, want 3: %+v", len(result.Questions), result.Questions)
	}

	seen := make(map[int]bool)
	for i, q := range result.Questions {
		if i > 0 && result.Questions[i-1].QuestionNumber >= q.QuestionNumber {
			t.Errorf("questions not strictly ascending at index %d", i)
		}
		if seen[q.QuestionNumber] {
			t.Errorf("duplicate question number %d", q.QuestionNumber)
		}
		seen[q.QuestionNumber] = true

		if len(q.Options) < 2 || len(q.Options) > 4 {
			t.Errorf("question %d has %d options", q.QuestionNumber, len(q.Options))
		}
		for k := range q.Options {
			if k != "A" && k != "B" && k != "C" && k != "D" {
				t.Errorf("question %d has option key %q", q.QuestionNumber, k)
			}
		}
		if q.PageNumber < 1 || q.PageNumber > result.TotalPages {
			t.Errorf("question %d page %d out of range", q.QuestionNumber, q.PageNumber)
		}
	}

	wantSubjects := map[int]Subject{3: SubjectChemistry, 12: SubjectPhysics, 40: SubjectBiology}
	for _, q := range result.Questions {
		if q.Subject != wantSubjects[q.QuestionNumber] {
			t.Errorf("question %d subject = %s, want %s", q.QuestionNumber, q.Subject, wantSubjects[q.QuestionNumber])
		}
	}
}

func TestEngine_Process_Idempotent(t *testing.T) {
	pages := rawPages("1. What is the SI unit of force? (1) Newton (2) Joule (3) Watt (4) Pascal\n2. The unit of power is (1) watt (2) joule")
	engine := NewEngine()

	first := engine.Process(pages, time.Now())
	second := engine.Process(pages, time.Now())
	if !reflect.DeepEqual(first.Questions, second.Questions) {
		t.Errorf("runs differ:\n%+v\n%+v", first.Questions, second.Questions)
	}
	if first.ExtractedText != second.ExtractedText {
		t.Error("extracted text differs between runs")
	}
}

func TestEngine_Process_Progress(t *testing.T) {
	var got []int
	progress := func(percent int, _ string) { got = append(got, percent) }

	NewEngine().process(rawPages("1. What is the SI unit of force? (1) Newton (2) Joule"), time.Now(), progress)

	want := []int{60, 90, 100}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("progress = %v, want %v", got, want)
	}
}

func TestProcessingResult_Summary(t *testing.T) {
	tests := []struct {
		questions int
		pages     int
		want      string
	}{
		{0, 0, "0 questions extracted from 0 pages"},
		{1, 1, "1 question extracted from 1 page"},
		{45, 12, "45 questions extracted from 12 pages"},
	}
	for _, tt := range tests {
		r := &ProcessingResult{Questions: make([]ExtractedQuestion, tt.questions), TotalPages: tt.pages}
		if got := r.Summary(); got != tt.want {
			t.Errorf("Summary() = %q, want %q", got, tt.want)
		}
	}
}

func TestEngine_SetOCR(t *testing.T) {
	engine := NewEngine()
	engine.SetOCR(NewOCR("/nonexistent/pdftoppm", "/nonexistent/tesseract", ""))
	if engine.OCREnabled() {
		t.Error("OCR enabled with missing binaries")
	}
	engine.SetOCR(nil)
	if engine.OCREnabled() {
		t.Error("OCR enabled after SetOCR(nil)")
	}
}

func rawPages(texts ...string) []RawPage {
	pages := make([]RawPage, len(texts))
	for i, t := range texts {
		pages[i] = RawPage{Index: i, Text: t}
	}
	return pages
}
