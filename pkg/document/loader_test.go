package document

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDOCX(t *testing.T, path, body string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("report.PDF"))
	assert.True(t, IsSupported("notes.docx"))
	assert.True(t, IsSupported("a.txt"))
	assert.True(t, IsSupported("a.md"))
	assert.False(t, IsSupported("scan.png"))
	assert.False(t, IsSupported("noext"))
}

func TestLoad_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("blood pressure normal"), 0o644))

	text, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "blood pressure normal", text)
}

func TestLoad_DOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discharge.docx")
	writeDOCX(t, path, `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Diagnosis:</w:t></w:r><w:r><w:t xml:space="preserve"> bronchitis</w:t></w:r></w:p>
    <w:p><w:r><w:t>Take amoxicillin</w:t></w:r><w:r><w:tab/><w:t>500mg</w:t></w:r></w:p>
    <w:p></w:p>
  </w:body>
</w:document>`)

	text, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Diagnosis: bronchitis\nTake amoxicillin\t500mg\n", text)
}

func TestLoad_DOCXWithoutBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoad_Unsupported(t *testing.T) {
	_, err := Load("scan.png")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_InvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
