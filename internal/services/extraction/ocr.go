package extraction

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ocrPageTimeout bounds rendering plus recognition of a single page.
const ocrPageTimeout = 60 * time.Second

// OCR recognizes text on scanned pages by rasterizing them with pdftoppm
// (Poppler) and running tesseract on the image.
type OCR struct {
	pdftoppmPath  string
	tesseractPath string
	language      string
}

// NewOCR creates an OCR helper. Empty binary paths are resolved on PATH.
func NewOCR(pdftoppmPath, tesseractPath, language string) *OCR {
	if pdftoppmPath == "" {
		pdftoppmPath, _ = exec.LookPath("pdftoppm")
	}
	if tesseractPath == "" {
		tesseractPath, _ = exec.LookPath("tesseract")
	}
	if language == "" {
		language = "eng"
	}
	return &OCR{pdftoppmPath: pdftoppmPath, tesseractPath: tesseractPath, language: language}
}

// Available reports whether both external tools were found.
func (o *OCR) Available() bool {
	if o == nil || o.pdftoppmPath == "" || o.tesseractPath == "" {
		return false
	}
	if _, err := os.Stat(o.pdftoppmPath); err != nil {
		return false
	}
	_, err := os.Stat(o.tesseractPath)
	return err == nil
}

// RecognizePage returns the OCR text of the 1-based page of the PDF at path.
func (o *OCR) RecognizePage(ctx context.Context, pdfPath string, page int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ocrPageTimeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "neet-ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)
	render := exec.CommandContext(ctx, o.pdftoppmPath, "-png", "-r", "300", "-f", n, "-l", n, "-singlefile", pdfPath, prefix)
	if out, err := render.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(string(out)))
	}

	recognize := exec.CommandContext(ctx, o.tesseractPath, prefix+".png", "stdout", "-l", o.language)
	out, err := recognize.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract page %d: %w", page, err)
	}
	return string(out), nil
}
