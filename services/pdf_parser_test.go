package services

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFTextExtractorMissingBinary(t *testing.T) {
	e := &PDFTextExtractor{Binary: "pdftotext-not-installed"}
	_, err := e.Extract(context.Background(), strings.NewReader("%PDF-1.4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not found")
}

// cat with "- -" echoes stdin, standing in for pdftotext.
func TestPDFTextExtractorOutput(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	e := &PDFTextExtractor{Binary: "cat"}

	text, err := e.Extract(context.Background(), strings.NewReader("  Contains PVA film \n"))
	require.NoError(t, err)
	assert.Equal(t, "Contains PVA film", text)

	_, err = e.Extract(context.Background(), strings.NewReader("   "))
	assert.ErrorIs(t, err, ErrNoText)
}
