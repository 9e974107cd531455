package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultPDFTimeout is how long we wait for pdftotext to run.
const DefaultPDFTimeout = 15 * time.Second

// ErrNoText is returned when extraction succeeded but produced no text,
// e.g. for an image-only PDF.
var ErrNoText = errors.New("no text extracted")

// TextExtractor turns an uploaded document into raw text.
type TextExtractor interface {
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// PDFTextExtractor shells out to the 'pdftotext' command-line tool.
//
// IMPORTANT: Requires 'pdftotext' (part of poppler-utils) on PATH.
//   - Ubuntu/Debian: apt-get install poppler-utils
//   - macOS (Homebrew): brew install poppler
type PDFTextExtractor struct {
	// Binary defaults to "pdftotext".
	Binary  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Extract feeds the PDF on stdin and returns the text written to stdout.
func (e *PDFTextExtractor) Extract(ctx context.Context, pdfStream io.Reader) (string, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}
	binary := e.Binary
	if binary == "" {
		binary = "pdftotext"
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// "-" for input reads stdin, "-" for output writes stdout.
	cmd := exec.CommandContext(ctx, binary, "-", "-")
	cmd.Stdin = pdfStream

	var outbuf, errbuf bytes.Buffer
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%s timed out after %v", binary, timeout)
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s command not found: install poppler-utils and ensure it is on PATH", binary)
		}
		return "", fmt.Errorf("%s execution failed: %w, stderr: %s", binary, err, strings.TrimSpace(errbuf.String()))
	}

	text := strings.TrimSpace(outbuf.String())
	if text == "" {
		logger.Warn("pdftotext produced no text; PDF might be image-based or empty")
		return "", ErrNoText
	}
	logger.Debug("pdf text extracted", "bytes", len(text))
	return text, nil
}
