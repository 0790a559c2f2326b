// export.go handles question export in multiple formats.
//
// Supported formats:
//   - json  Job metadata plus questions
//   - csv   One row per question, options in columns A-D
//   - md    Markdown question paper grouped by subject
//   - txt   Plain-text question paper
//
// Go Pattern: Each export format is its own render function returning bytes.
// The handler picks one and writes it as a download, and the renderers stay
// testable without an HTTP request.
package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/neet-question-api/internal/models"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/extraction"
)

// exportFormats maps each supported format to its MIME type.
var exportFormats = map[string]string{
	"json": "application/json; charset=utf-8",
	"csv":  "text/csv; charset=utf-8",
	"md":   "text/markdown; charset=utf-8",
	"txt":  "text/plain; charset=utf-8",
}

// optionLabels is the column order used by every format.
var optionLabels = []string{"A", "B", "C", "D"}

// ExportExtraction exports a completed job's questions.
// GET /api/v1/extractions/:id/export?format=json|csv|md|txt&subject=Biology
func (h *Handler) ExportExtraction(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	// Validate query parameters before doing any database work
	contentType, ok := exportFormats[format]
	if !ok {
		abortJSON(c, http.StatusBadRequest, "invalid_format", "Supported formats: json, csv, md, txt")
		return
	}
	subject, ok := subjectFilter(c)
	if !ok {
		return
	}

	job, ok := h.loadOwnedJob(c)
	if !ok {
		return
	}
	if job.Status != models.StatusCompleted {
		abortJSON(c, http.StatusConflict, "not_ready", "Extraction is not completed (status: "+string(job.Status)+")")
		return
	}

	questions, err := h.DB.ListQuestions(c.Request.Context(), job.ID, subject)
	if err != nil {
		abortJSON(c, http.StatusInternalServerError, "database_error", "Failed to load questions")
		return
	}

	body, err := renderExport(format, job, questions)
	if err != nil {
		abortJSON(c, http.StatusInternalServerError, "export_error", "Failed to generate "+format+" export")
		return
	}

	filename := sanitizeFilename(strings.TrimSuffix(job.OriginalName, ".pdf"))
	if filename == "" {
		filename = job.ID
	}
	if subject != "" {
		filename += "-" + strings.ToLower(subject)
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, filename, format))
	c.Data(http.StatusOK, contentType, body)
}

// renderExport dispatches to the formatter for format.
func renderExport(format string, job *models.ExtractionJob, questions []models.Question) ([]byte, error) {
	switch format {
	case "json":
		return exportJSON(job, questions)
	case "csv":
		return exportCSV(questions)
	case "md":
		return exportMarkdown(job, questions)
	case "txt":
		return exportText(questions)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// exportJSON returns job metadata and questions with options decoded.
func exportJSON(job *models.ExtractionJob, questions []models.Question) ([]byte, error) {
	type exportQuestion struct {
		QuestionNumber int               `json:"questionNumber"`
		QuestionText   string            `json:"questionText"`
		Options        map[string]string `json:"options"`
		Subject        string            `json:"subject"`
		PageNumber     int               `json:"pageNumber"`
	}

	out := make([]exportQuestion, 0, len(questions))
	for _, q := range questions {
		opts, err := decodeOptions(q)
		if err != nil {
			return nil, err
		}
		out = append(out, exportQuestion{
			QuestionNumber: q.QuestionNumber,
			QuestionText:   q.QuestionText,
			Options:        opts,
			Subject:        q.Subject,
			PageNumber:     q.PageNumber,
		})
	}

	return json.MarshalIndent(map[string]interface{}{
		"id":             job.ID,
		"source":         job.OriginalName,
		"totalPages":     job.TotalPages,
		"processingTime": job.ProcessingTimeMs,
		"summary":        extraction.FormatSummary(job.QuestionsExtracted, job.TotalPages),
		"questions":      out,
	}, "", "  ")
}

// exportCSV writes a header row then one row per question.
func exportCSV(questions []models.Question) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"question_number", "subject", "page_number", "question_text"}, optionLabels...)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, q := range questions {
		opts, err := decodeOptions(q)
		if err != nil {
			return nil, err
		}
		row := []string{strconv.Itoa(q.QuestionNumber), q.Subject, strconv.Itoa(q.PageNumber), q.QuestionText}
		for _, label := range optionLabels {
			row = append(row, opts[label])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// exportMarkdown renders a question paper with one section per subject.
func exportMarkdown(job *models.ExtractionJob, questions []models.Question) ([]byte, error) {
	var sb strings.Builder

	title := job.OriginalName
	if title == "" {
		title = job.ID
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("_%s_\n", extraction.FormatSummary(job.QuestionsExtracted, job.TotalPages)))

	for _, group := range groupBySubject(questions) {
		sb.WriteString(fmt.Sprintf("\n## %s\n", group.subject))
		for _, q := range group.questions {
			opts, err := decodeOptions(q)
			if err != nil {
				return nil, err
			}
			sb.WriteString(fmt.Sprintf("\n**Q%d.** %s\n\n", q.QuestionNumber, q.QuestionText))
			for _, label := range sortedLabels(opts) {
				sb.WriteString(fmt.Sprintf("- (%s) %s\n", label, opts[label]))
			}
		}
	}

	return []byte(sb.String()), nil
}

// exportText renders questions as plain text in question-number order.
func exportText(questions []models.Question) ([]byte, error) {
	var sb strings.Builder
	for i, q := range questions {
		opts, err := decodeOptions(q)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", q.QuestionNumber, q.Subject, q.QuestionText))
		for _, label := range sortedLabels(opts) {
			sb.WriteString(fmt.Sprintf("   (%s) %s\n", label, opts[label]))
		}
	}
	return []byte(sb.String()), nil
}

// --- Helper Functions ---

type subjectGroup struct {
	subject   string
	questions []models.Question
}

// groupBySubject keeps Physics, Chemistry, Biology order, the order of the
// paper, and leaves question order inside a group untouched.
func groupBySubject(questions []models.Question) []subjectGroup {
	order := []extraction.Subject{extraction.SubjectPhysics, extraction.SubjectChemistry, extraction.SubjectBiology}
	var groups []subjectGroup
	for _, s := range order {
		var qs []models.Question
		for _, q := range questions {
			if q.Subject == string(s) {
				qs = append(qs, q)
			}
		}
		if len(qs) > 0 {
			groups = append(groups, subjectGroup{subject: string(s), questions: qs})
		}
	}
	return groups
}

func decodeOptions(q models.Question) (map[string]string, error) {
	opts := map[string]string{}
	if len(q.Options) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil, fmt.Errorf("question %d has invalid options: %w", q.QuestionNumber, err)
	}
	return opts, nil
}

func sortedLabels(opts map[string]string) []string {
	labels := make([]string, 0, len(opts))
	for label := range opts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// sanitizeFilename removes characters that aren't safe for filenames.
// We don't need a full filesystem-safe sanitizer since this is just for
// the Content-Disposition header.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = replacer.Replace(name)

	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
