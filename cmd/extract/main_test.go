package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Shimizu-Technology/neet-question-api/internal/services/extraction"
	"github.com/Shimizu-Technology/neet-question-api/internal/testutil/pdffixture"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_ExitCodes(t *testing.T) {
	malformed := writeFile(t, "broken.pdf", []byte("%PDF-1.4\n1 0 obj"))
	blank := writeFile(t, "blank.pdf", pdffixture.Build(nil))

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no arguments", nil, exitUsage},
		{"two files", []string{"a.pdf", "b.pdf"}, exitUsage},
		{"unknown flag", []string{"-pages", "3", "a.pdf"}, exitUsage},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.pdf")}, exitNotFound},
		{"malformed file", []string{malformed}, exitMalformed},
		{"no questions is still success", []string{blank}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("run(%v) = %d, want %d (stderr %q)", tt.args, got, tt.want, stderr.String())
			}
		})
	}
}

func TestRun_PrintsJSON(t *testing.T) {
	path := writeFile(t, "paper.pdf", pdffixture.Build(
		pdffixture.Lines("1. What is the SI unit of force? (1) Newton (2) Joule (3) Watt (4) Pascal"),
	))

	var stdout, stderr bytes.Buffer
	if code := run([]string{path}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}

	var result extraction.ProcessingResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("stdout is not a ProcessingResult: %v", err)
	}
	if len(result.Questions) != 1 || result.Questions[0].Subject != extraction.SubjectPhysics {
		t.Errorf("questions = %+v", result.Questions)
	}
	if !strings.Contains(stderr.String(), "1 question extracted from 1 page") {
		t.Errorf("stderr = %q, want the run summary", stderr.String())
	}
}

func TestRun_TextOnly(t *testing.T) {
	path := writeFile(t, "paper.pdf", pdffixture.Build(pdffixture.Lines("Physics section")))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-text", path}, &stdout, &stderr); code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "Physics section") || strings.HasPrefix(stdout.String(), "{") {
		t.Errorf("stdout = %q, want plain text", stdout.String())
	}
}
