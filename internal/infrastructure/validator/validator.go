package validator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/duuta/ocr-flavors/internal/core/domain"
)

const DefaultMaxFileSize = 10 * 1024 * 1024

// extensionMIME maps supported extensions to their declared MIME types.
var extensionMIME = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".txt":  "text/plain",
}

var defaultAllowed = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/tiff",
	"image/bmp",
	"image/webp",
	"text/plain",
}

// FileValidator enforces the ingestion policy: a size cap and a MIME
// allow-list. It also derives the content fingerprint the rest of the
// pipeline keys on.
type FileValidator struct {
	maxSize int64
	allowed map[string]struct{}
}

func New(maxSize int64, allowedTypes []string) *FileValidator {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if len(allowedTypes) == 0 {
		allowedTypes = defaultAllowed
	}
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &FileValidator{maxSize: maxSize, allowed: allowed}
}

func (v *FileValidator) Validate(_ context.Context, data []byte, filename string) (*domain.Document, error) {
	size := int64(len(data))
	if size == 0 {
		return nil, domain.WrapError(domain.ErrValidation, "validate file", fmt.Errorf("%s is empty", filename))
	}
	if size > v.maxSize {
		return nil, domain.WrapError(domain.ErrValidation, "validate file",
			fmt.Errorf("file size %d exceeds maximum %d", size, v.maxSize))
	}

	mimeType := DetectMIME(filename, data)
	if _, ok := v.allowed[mimeType]; !ok {
		return nil, domain.WrapError(domain.ErrValidation, "validate file",
			fmt.Errorf("file type %s is not allowed", mimeType))
	}

	sum := sha256.Sum256(data)
	return &domain.Document{
		Fingerprint: hex.EncodeToString(sum[:]),
		Filename:    filename,
		MimeType:    mimeType,
		Size:        size,
	}, nil
}

// DetectMIME resolves the MIME type from the extension map, falling back to
// content sniffing for unknown extensions.
func DetectMIME(filename string, data []byte) string {
	if mimeType, ok := extensionMIME[strings.ToLower(filepath.Ext(filename))]; ok {
		return mimeType
	}
	sniffed := http.DetectContentType(data)
	// Strip parameters like "; charset=utf-8".
	if idx := strings.Index(sniffed, ";"); idx >= 0 {
		sniffed = sniffed[:idx]
	}
	return strings.TrimSpace(sniffed)
}

// IsSupportedFile reports whether the extension is one the pipeline handles.
func IsSupportedFile(filename string) bool {
	_, ok := extensionMIME[strings.ToLower(filepath.Ext(filename))]
	return ok
}
