package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/duuta/ocr-flavors/internal/core/domain"
)

func TestClassifyInvoice(t *testing.T) {
	c := New()
	text := "Invoice Number: 1042\nSubtotal: $90.00\nGrand Total: $99.00"
	if got := c.Classify(text); got != domain.TypeInvoice {
		t.Fatalf("expected invoice, got %s", got)
	}
}

func TestClassifyReceipt(t *testing.T) {
	c := New()
	text := "RECEIPT\npaid by: visa"
	if got := c.Classify(text); got != domain.TypeReceipt {
		t.Fatalf("expected receipt, got %s", got)
	}
}

func TestClassifyEmptyTextYieldsDefault(t *testing.T) {
	c := New()
	if got := c.Classify(""); got != domain.TypeDocument {
		t.Fatalf("expected document, got %s", got)
	}
}

func TestClassifyNoIndicatorsYieldsDefault(t *testing.T) {
	c := New()
	if got := c.Classify("a plain paragraph with nothing recognizable"); got != domain.TypeDocument {
		t.Fatalf("expected document, got %s", got)
	}
}

func TestClassifyTieBreaksByDeclarationOrder(t *testing.T) {
	c := New()
	// One invoice indicator and one receipt indicator; invoice is declared first.
	text := "subtotal due, receipt attached"
	if got := c.Classify(text); got != domain.TypeInvoice {
		t.Fatalf("expected invoice on tie, got %s", got)
	}
}

func TestClassifyIndicatorCountsOncePerPattern(t *testing.T) {
	c := New()
	// Three occurrences of one receipt indicator must not outrank two
	// distinct invoice indicators.
	text := "receipt receipt receipt subtotal grand total"
	if got := c.Classify(text); got != domain.TypeInvoice {
		t.Fatalf("expected invoice, got %s", got)
	}
}

func TestExtractionPromptIsTotal(t *testing.T) {
	c := New()
	if got := c.ExtractionPrompt(domain.TypeInvoice); got == "" {
		t.Fatalf("expected invoice prompt")
	}
	unknown := c.ExtractionPrompt(domain.DocumentType("contract"))
	fallback := c.ExtractionPrompt(domain.TypeDocument)
	if unknown != fallback {
		t.Fatalf("expected unknown type to fall back to default prompt, got %q", unknown)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	raw := `
default: document
types:
  - name: purchase_order
    indicators: ["purchase\\s*order", "po\\s*number"]
    prompt: "Extract: supplier, PO number, line items as JSON."
  - name: document
    prompt: "Extract all key information from this document as JSON."
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	c, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	if got := c.Classify("PO Number 7, purchase order"); got != domain.DocumentType("purchase_order") {
		t.Fatalf("expected purchase_order, got %s", got)
	}
	if got := c.Classify("nothing"); got != domain.TypeDocument {
		t.Fatalf("expected document default, got %s", got)
	}
}

func TestNewFromFileRejectsMissingDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	raw := `
default: document
types:
  - name: invoice
    indicators: ["invoice"]
    prompt: "p"
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatalf("expected error for undeclared default type")
	}
}
