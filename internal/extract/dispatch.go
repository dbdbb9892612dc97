// Package extract turns acquired documents (rendered tariff pages, Word
// price tables, batch PDF price lists) into partial per-region
// extractions. Failures degrade: a pattern that finds nothing leaves its
// field Unknown, a broken document contributes nothing, and only the
// caller decides whether a region or the batch is affected.
package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Kind identifies which extractor handles a document.
type Kind int

const (
	KindUnknown Kind = iota
	KindHTML
	KindDocx
	KindLegacyDoc // binary .doc; must be converted before the DOCX extractor runs
	KindPDF
)

// ErrUnsupportedFormat is returned for documents no extractor handles.
// Callers surface it as an all-Unknown contribution, not a batch abort.
var ErrUnsupportedFormat = eris.New("extract: unsupported document format")

var (
	zipMagic = []byte("PK\x03\x04")
	pdfMagic = []byte("%PDF")
	oleMagic = []byte{0xd0, 0xcf, 0x11, 0xe0}
)

// Detect classifies a file by extension, falling back to a content
// signature sniff when the extension is ambiguous or missing.
func Detect(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return KindHTML, nil
	case ".docx":
		return KindDocx, nil
	case ".doc":
		return KindLegacyDoc, nil
	case ".pdf":
		return KindPDF, nil
	}

	head := make([]byte, 4)
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, eris.Wrapf(err, "extract: open %s", path)
	}
	defer f.Close()
	if _, err := f.Read(head); err != nil {
		return KindUnknown, ErrUnsupportedFormat
	}

	switch {
	case bytes.Equal(head, zipMagic):
		return KindDocx, nil
	case bytes.Equal(head, pdfMagic):
		return KindPDF, nil
	case bytes.Equal(head, oleMagic):
		return KindLegacyDoc, nil
	}
	return KindUnknown, ErrUnsupportedFormat
}
