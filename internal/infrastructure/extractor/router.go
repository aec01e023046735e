package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/duuta/ocr-flavors/internal/core/domain"
	"github.com/duuta/ocr-flavors/internal/core/ports"
)

// Router picks a text-extraction strategy by MIME type: local decode for text
// and PDF, a remote verbatim model pass for images.
type Router struct {
	plaintext ports.TextExtractor
	pdf       ports.TextExtractor
	vision    ports.ModelClient
}

func NewRouter(plaintext, pdf ports.TextExtractor, vision ports.ModelClient) *Router {
	return &Router{plaintext: plaintext, pdf: pdf, vision: vision}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document, data []byte) (string, error) {
	switch {
	case doc.MimeType == "application/pdf":
		return r.pdf.Extract(ctx, doc, data)
	case strings.HasPrefix(doc.MimeType, "text/"):
		return r.plaintext.Extract(ctx, doc, data)
	case strings.HasPrefix(doc.MimeType, "image/"):
		if r.vision == nil {
			return "", fmt.Errorf("no vision model configured for %s", doc.MimeType)
		}
		return r.vision.ExtractText(ctx, data)
	default:
		return "", fmt.Errorf("no text extractor for %s", doc.MimeType)
	}
}
