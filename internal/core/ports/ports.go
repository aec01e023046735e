package ports

import (
	"context"
	"io"
	"time"

	"github.com/duuta/ocr-flavors/internal/core/domain"
)

// Validator checks raw bytes for size/type violations and computes the
// content fingerprint.
type Validator interface {
	Validate(ctx context.Context, data []byte, filename string) (*domain.Document, error)
}

// TextExtractor produces plain text for classification. Depending on the
// document kind this may be a local decode or a remote verbatim model pass.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document, data []byte) (string, error)
}

// ModelClient is one vision-language model endpoint: given an image and a
// prompt, return structured fields or fail.
type ModelClient interface {
	Name() string
	ExtractText(ctx context.Context, image []byte) (string, error)
	ExtractFields(ctx context.Context, image []byte, prompt string) (map[string]any, error)
}

// DocumentClassifier maps extracted text to a document type and each type to
// an extraction prompt. The prompt mapping is total.
type DocumentClassifier interface {
	Classify(text string) domain.DocumentType
	ExtractionPrompt(docType domain.DocumentType) string
}

// CacheStore is a shared key/value store with per-key TTL. A miss is not an
// error; the second return value reports presence.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ResultRepository persists derived extraction results.
type ResultRepository interface {
	Save(ctx context.Context, res *domain.ExtractionResult) error
	GetByID(ctx context.Context, id string) (*domain.ExtractionResult, error)
	ListByFingerprint(ctx context.Context, fingerprint string) ([]domain.ExtractionResult, error)
	ListBetween(ctx context.Context, from, to *time.Time) ([]domain.ExtractionResult, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes extraction events carrying storage keys.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, storageKey string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}
