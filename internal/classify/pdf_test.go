package classify

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a minimal single-page PDF around the given content
// stream, computing the cross-reference offsets so the file is
// well-formed.
func buildPDF(content string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)
	return buf.Bytes()
}

func writePDF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, buildPDF(content), 0600))
	return path
}

func TestExtractPDFText(t *testing.T) {
	path := writePDF(t, "BT /F1 12 Tf 72 720 Td (Invoices March 2026) Tj ET")

	text, err := ExtractPDFText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Invoices")
	assert.Contains(t, text, "2026")
}

func TestExtractPDFTextImageOnlyPage(t *testing.T) {
	// A page drawing only graphics yields an empty string, which is a
	// valid classifier input, not an error.
	path := writePDF(t, "0 0 100 100 re f")

	text, err := ExtractPDFText(path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractPDFTextNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, no header"), 0600))

	_, err := ExtractPDFText(path)
	require.Error(t, err)
}

func TestExtractPDFTextMissingFile(t *testing.T) {
	_, err := ExtractPDFText(filepath.Join(t.TempDir(), "absent.pdf"))
	require.Error(t, err)
}
