package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectByExtension(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"price.html", KindHTML},
		{"price.HTM", KindHTML},
		{"tariffs.docx", KindDocx},
		{"tariffs.doc", KindLegacyDoc},
		{"list.pdf", KindPDF},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Detect(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectByMagicBytes(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		head []byte
		want Kind
	}{
		{"zip-archive", []byte("PK\x03\x04rest"), KindDocx},
		{"pdf", []byte("%PDF-1.7"), KindPDF},
		{"ole-compound", []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1}, KindLegacyDoc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name) // deliberately no extension
			require.NoError(t, os.WriteFile(path, tt.head, 0o644))

			got, err := Detect(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mystery")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0o644))

	_, err := Detect(path)
	assert.True(t, eris.Is(err, ErrUnsupportedFormat))
}
