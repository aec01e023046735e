package domain

import "time"

type DocumentType string

const (
	TypeInvoice  DocumentType = "invoice"
	TypeReceipt  DocumentType = "receipt"
	TypeDocument DocumentType = "document"
)

// Document is the validated identity of an ingested file. The bytes themselves
// are not persisted by the pipeline; only derived results are.
type Document struct {
	Fingerprint string `json:"fingerprint"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mime_type"`
	Size        int64  `json:"size"`
}

// ProcessingParams affect the cache key. String values keep the canonical
// serialization trivially deterministic.
type ProcessingParams map[string]string

// ModelResponse is one model's structured answer for a document.
type ModelResponse struct {
	ModelName string         `json:"model_name"`
	Fields    map[string]any `json:"fields"`
	Timestamp time.Time      `json:"timestamp"`
	FromCache bool           `json:"from_cache,omitempty"`
}

// ModelScore is the per-request evaluation of one response. Ephemeral; lives
// only as long as the request that produced it.
type ModelScore struct {
	ModelName    string             `json:"model_name"`
	Completeness float64            `json:"completeness"`
	Confidence   float64            `json:"confidence"`
	Score        float64            `json:"score"`
	Response     ModelResponse      `json:"response"`
	Metrics      map[string]float64 `json:"metrics"`
}

// ExtractionResult is what the pipeline produces, caches and persists.
type ExtractionResult struct {
	ID           string         `json:"id"`
	Fingerprint  string         `json:"fingerprint"`
	Filename     string         `json:"filename"`
	DocumentType DocumentType   `json:"document_type"`
	ModelName    string         `json:"model_name"`
	Fields       map[string]any `json:"fields"`
	Completeness float64        `json:"completeness"`
	Confidence   float64        `json:"confidence"`
	Score        float64        `json:"score"`
	SchemaValid  bool           `json:"schema_valid"`
	FromCache    bool           `json:"from_cache"`
	ProcessedAt  time.Time      `json:"processed_at"`
}
