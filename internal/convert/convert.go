// Package convert upgrades legacy binary .doc files to .docx with a
// local LibreOffice, so the table extractor only ever parses one format.
package convert

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// DocToDocx converts .doc files via "soffice --headless --convert-to docx".
type DocToDocx struct {
	binPath string
}

// NewDocToDocx creates a converter. If binPath is empty, "soffice" is used.
func NewDocToDocx(binPath string) *DocToDocx {
	if binPath == "" {
		binPath = "soffice"
	}
	return &DocToDocx{binPath: binPath}
}

// Convert writes the .docx next to the source file and returns its path.
// LibreOffice names the output after the input stem, so the result is
// predictable and checked to exist before being returned.
func (c *DocToDocx) Convert(ctx context.Context, docPath string) (string, error) {
	outDir := filepath.Dir(docPath)
	cmd := exec.CommandContext(ctx, c.binPath,
		"--headless", "--convert-to", "docx", "--outdir", outDir, docPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "convert: soffice failed for %s: %s", docPath, stderr.String())
	}

	out := outputPath(docPath)
	if _, err := os.Stat(out); err != nil {
		return "", eris.Wrapf(err, "convert: expected output %s missing", out)
	}
	return out, nil
}

func outputPath(docPath string) string {
	base := filepath.Base(docPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(docPath), stem+".docx")
}
