package convert

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("dl", "tariffs.docx"), outputPath(filepath.Join("dl", "tariffs.doc")))
	assert.Equal(t, filepath.Join("dl", "прайс 2026.docx"), outputPath(filepath.Join("dl", "прайс 2026.doc")))
}

func TestConvertMissingBinary(t *testing.T) {
	c := NewDocToDocx("definitely-not-soffice")
	_, err := c.Convert(context.Background(), "nowhere.doc")
	assert.Error(t, err)
}
