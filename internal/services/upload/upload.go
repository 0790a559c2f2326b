// Package upload checks incoming files before they reach the extraction engine.
//
// Go Pattern: A custom error type carrying a machine-readable Code lets the
// HTTP layer map failures to responses with errors.As, without string matching.
package upload

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxBytes is the upload ceiling used when none is configured (50MB).
const DefaultMaxBytes int64 = 50 << 20

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// Error codes returned by Validate.
const (
	CodeInvalidFileType = "invalid_file_type"
	CodeFileTooLarge    = "file_too_large"
	CodeEmptyFile       = "empty_file"
	CodeInvalidPDF      = "invalid_pdf"
)

// Error is a rejected upload.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Validate checks the file name, size and leading bytes of an upload.
// head only needs to hold the first few bytes of the file.
func Validate(filename string, size int64, head []byte, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".pdf" {
		if ext == "" {
			ext = "(none)"
		}
		return &Error{
			Code:    CodeInvalidFileType,
			Message: fmt.Sprintf("Unsupported file extension %s. Only .pdf files are accepted.", ext),
		}
	}

	if size <= 0 {
		return &Error{Code: CodeEmptyFile, Message: "The uploaded file is empty"}
	}
	if size > maxBytes {
		return &Error{
			Code:    CodeFileTooLarge,
			Message: fmt.Sprintf("File is %s; the limit is %s", humanSize(size), humanSize(maxBytes)),
		}
	}

	if !IsPDF(head) {
		return &Error{Code: CodeInvalidPDF, Message: "The uploaded file does not appear to be a valid PDF"}
	}
	return nil
}

// IsPDF reports whether data starts with the PDF magic header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// HeadSize is how many leading bytes Validate needs.
const HeadSize = 8

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
