package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"tmpl-backend/internal/core"
	"tmpl-backend/internal/core/types"

	"github.com/gen2brain/go-fitz"
)

var pdfMagic = []byte("%PDF-")

type Inspector interface {
	// Inspect returns a ValidationError if the staged upload is not a usable
	// PDF. It never extracts text.
	Inspect(doc types.UploadedDocument) (Info, error)
}

type Info struct {
	Pages int
}

type FitzInspector struct{}

func NewFitzInspector() *FitzInspector {
	return &FitzInspector{}
}

func (i *FitzInspector) Inspect(doc types.UploadedDocument) (Info, error) {
	if err := checkMagic(doc.SourcePath); err != nil {
		return Info{}, err
	}

	pdf, err := fitz.New(doc.SourcePath)
	if err != nil {
		return Info{}, &core.ValidationError{Field: "userpdf", Reason: "file could not be opened as a PDF"}
	}
	defer pdf.Close()

	pages := pdf.NumPage()
	if pages <= 0 {
		return Info{}, &core.ValidationError{Field: "userpdf", Reason: "PDF has no pages"}
	}

	return Info{Pages: pages}, nil
}

// HeaderInspector only checks the PDF signature. It is used when the MuPDF
// backed inspector is disabled.
type HeaderInspector struct{}

func (HeaderInspector) Inspect(doc types.UploadedDocument) (Info, error) {
	return Info{}, checkMagic(doc.SourcePath)
}

func checkMagic(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening staged upload: %w", err)
	}
	defer file.Close()

	header := make([]byte, 1024)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("error reading staged upload: %w", err)
	}

	// The signature may be preceded by a little junk; readers accept it
	// anywhere in the first kilobyte.
	if !bytes.Contains(header[:n], pdfMagic) {
		return &core.ValidationError{Field: "userpdf", Reason: "file is not a PDF"}
	}
	return nil
}
