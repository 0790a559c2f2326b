// Command extract runs the question extraction engine on a local PDF.
//
//	extract [-ocr] [-lang eng] [-text] paper.pdf
//
// The ProcessingResult is printed as indented JSON; -text prints the
// extracted page text instead. Nothing touches the database.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Shimizu-Technology/neet-question-api/internal/services/extraction"
)

// Exit codes.
const (
	exitOK        = 0
	exitUsage     = 1
	exitNotFound  = 2
	exitMalformed = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, extracts the named PDF and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	useOCR := fs.Bool("ocr", false, "recognize pages without a text layer (needs pdftoppm and tesseract)")
	lang := fs.String("lang", "eng", "tesseract language for -ocr")
	textOnly := fs.Bool("text", false, "print the extracted text instead of JSON")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: extract [options] <PDF-file>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	path := fs.Arg(0)

	engine := extraction.NewEngine()
	if *useOCR {
		engine.SetOCR(extraction.NewOCR("", "", *lang))
		if !engine.OCREnabled() {
			fmt.Fprintln(stderr, "warning: pdftoppm or tesseract not found; continuing without OCR")
		}
	}

	result, err := engine.ExtractFile(path, nil)
	switch {
	case errors.Is(err, extraction.ErrFileNotFound):
		fmt.Fprintf(stderr, "extract: %v\n", err)
		return exitNotFound
	case errors.Is(err, extraction.ErrMalformedDocument):
		fmt.Fprintf(stderr, "extract: %v\n", err)
		return exitMalformed
	case err != nil:
		fmt.Fprintf(stderr, "extract: %v\n", err)
		return exitUsage
	}

	if *textOnly {
		fmt.Fprintln(stdout, result.ExtractedText)
	} else {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(stderr, "extract: %v\n", err)
			return exitUsage
		}
	}

	fmt.Fprintln(stderr, result.Summary())
	return exitOK
}
