package fields

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/duuta/ocr-flavors/internal/core/domain"
)

// Per-type JSON Schemas sanity-check extracted payloads. Extraction is lossy
// by nature, so nothing is required; the schemas catch shape mistakes
// (objects where strings belong, malformed dates) without rejecting partial
// results.
var schemaSources = map[domain.DocumentType]string{
	domain.TypeInvoice: `{
		"type": "object",
		"properties": {
			"vendor":         {"type": "string"},
			"invoice_number": {"type": "string"},
			"date":           {"type": "string"},
			"subtotal":       {"type": ["string", "number"]},
			"tax":            {"type": ["string", "number"]},
			"total":          {"type": ["string", "number"]},
			"items":          {"type": "array"}
		}
	}`,
	domain.TypeReceipt: `{
		"type": "object",
		"properties": {
			"merchant":       {"type": "string"},
			"date":           {"type": "string"},
			"total":          {"type": ["string", "number"]},
			"payment_method": {"type": "string"},
			"items":          {"type": "array"}
		}
	}`,
	domain.TypeDocument: `{
		"type": "object"
	}`,
}

var compiled = mustCompileAll()

func mustCompileAll() map[domain.DocumentType]*jsonschema.Schema {
	out := make(map[domain.DocumentType]*jsonschema.Schema, len(schemaSources))
	for docType, raw := range schemaSources {
		compiler := jsonschema.NewCompiler()
		url := fmt.Sprintf("schema://%s.json", docType)
		if err := compiler.AddResource(url, bytes.NewReader([]byte(raw))); err != nil {
			panic(fmt.Sprintf("add schema resource %s: %v", docType, err))
		}
		out[docType] = compiler.MustCompile(url)
	}
	return out
}

// Validate checks an extracted payload against the schema for its document
// type. Unknown types validate against the generic document schema, keeping
// the mapping total.
func Validate(docType domain.DocumentType, payload map[string]any) error {
	schema, ok := compiled[docType]
	if !ok {
		schema = compiled[domain.TypeDocument]
	}

	// Round-trip through JSON so the validator sees plain decoded values.
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("payload does not match %s schema: %w", docType, err)
	}
	return nil
}
