package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/duuta/ocr-flavors/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, doc *domain.Document, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("not valid utf-8 text: %s", doc.Filename)
	}
	return strings.TrimSpace(string(data)), nil
}
