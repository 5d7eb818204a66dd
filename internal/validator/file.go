package validator

import (
	"bytes"
	"fmt"

	"github.com/studyflow/course-processor/internal/errs"
)

// pdfMagic is the literal signature every PDF starts with. A spoofed MIME
// type must not get past this check.
var pdfMagic = []byte("%PDF-")

// FileValidator checks an upload before any parsing work begins.
type FileValidator struct {
	maxFileSize int64
}

func NewFileValidator(maxFileSize int64) *FileValidator {
	if maxFileSize <= 0 {
		maxFileSize = 20 * 1024 * 1024
	}
	return &FileValidator{maxFileSize: maxFileSize}
}

// Validate checks declared MIME type, byte-size ceiling and the leading
// %PDF- signature, in that order. Size is checked before anything touches
// the bytes so oversize uploads are rejected cheaply.
func (v *FileValidator) Validate(data []byte, declaredMime string, size int64) error {
	if declaredMime != "application/pdf" {
		return errs.New(errs.CodeInvalidFile, fmt.Sprintf("unsupported file type %q, only PDF is accepted", declaredMime))
	}
	if size > v.maxFileSize {
		return errs.New(errs.CodeFileTooLarge, fmt.Sprintf("file size %d exceeds limit of %d bytes", size, v.maxFileSize))
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return errs.New(errs.CodeInvalidFile, "file content is not a valid PDF")
	}
	return nil
}
