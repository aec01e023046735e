package export

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/duuta/ocr-flavors/internal/core/domain"
	"github.com/duuta/ocr-flavors/internal/observability/logging"
)

type repoFake struct {
	results []domain.ExtractionResult
	gotFrom *time.Time
	gotTo   *time.Time
}

func (f *repoFake) Save(context.Context, *domain.ExtractionResult) error { return nil }

func (f *repoFake) GetByID(context.Context, string) (*domain.ExtractionResult, error) {
	return nil, domain.ErrResultNotFound
}

func (f *repoFake) ListByFingerprint(_ context.Context, fp string) ([]domain.ExtractionResult, error) {
	var out []domain.ExtractionResult
	for _, r := range f.results {
		if r.Fingerprint == fp {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *repoFake) ListBetween(_ context.Context, from, to *time.Time) ([]domain.ExtractionResult, error) {
	f.gotFrom = from
	f.gotTo = to
	return f.results, nil
}

func sampleResults() []domain.ExtractionResult {
	return []domain.ExtractionResult{
		{
			ID:           "r-1",
			Fingerprint:  "fp-1",
			Filename:     "invoice-march.pdf",
			DocumentType: domain.TypeInvoice,
			ModelName:    "llava",
			Fields:       map[string]any{"vendor": "Acme", "total": "99.00"},
			Completeness: 1.0,
			Confidence:   0.5,
			Score:        0.8,
			SchemaValid:  true,
			ProcessedAt:  time.Date(2026, 3, 12, 10, 30, 0, 0, time.UTC),
		},
		{
			ID:           "r-2",
			Fingerprint:  "fp-2",
			Filename:     "lunch.jpg",
			DocumentType: domain.TypeReceipt,
			ModelName:    "bakllava",
			Fields:       map[string]any{"merchant": "Diner"},
			Completeness: 0.5,
			Confidence:   0.4,
			Score:        0.46,
			ProcessedAt:  time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestExportResultsXLSXWritesRows(t *testing.T) {
	repo := &repoFake{results: sampleResults()}
	svc := NewService(repo, logging.NewJSONLoggerTo(io.Discard, "test", "error"))

	data, err := svc.ExportResultsXLSX(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows("Extractions")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Processed At" || rows[0][3] != "Model" {
		t.Fatalf("unexpected header row: %v", rows[0])
	}
	if rows[1][1] != "invoice-march.pdf" || rows[1][2] != "invoice" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][3] != "bakllava" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestExportResultsXLSXNormalizesDateWindow(t *testing.T) {
	repo := &repoFake{}
	svc := NewService(repo, logging.NewJSONLoggerTo(io.Discard, "test", "error"))

	from := time.Date(2026, 3, 1, 17, 45, 0, 0, time.UTC)
	if _, err := svc.ExportResultsXLSX(context.Background(), &from, nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	if repo.gotFrom == nil || repo.gotFrom.Hour() != 0 {
		t.Fatalf("expected from normalized to start of day, got %v", repo.gotFrom)
	}
	if repo.gotTo == nil {
		t.Fatalf("expected open-ended window closed at today")
	}
}

func TestExportDocumentXLSXFiltersByFingerprint(t *testing.T) {
	repo := &repoFake{results: sampleResults()}
	svc := NewService(repo, logging.NewJSONLoggerTo(io.Discard, "test", "error"))

	data, err := svc.ExportDocumentXLSX(context.Background(), "fp-2")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows("Extractions")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[1][1] != "lunch.jpg" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}
