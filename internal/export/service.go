package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/duuta/ocr-flavors/internal/core/domain"
	"github.com/duuta/ocr-flavors/internal/core/ports"
)

// Service turns persisted extraction results into XLSX workbooks.
type Service struct {
	results ports.ResultRepository
	logger  *slog.Logger
}

func NewService(results ports.ResultRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{results: results, logger: logger}
}

// ExportResultsXLSX returns an XLSX workbook (as bytes) for the given date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> every stored result.
func (s *Service) ExportResultsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}

	recs, err := s.results.ListBetween(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return s.render(recs, start)
}

// ExportDocumentXLSX exports every stored result for one document fingerprint,
// so reruns with different models or prompts can be compared side by side.
func (s *Service) ExportDocumentXLSX(ctx context.Context, fingerprint string) ([]byte, error) {
	start := time.Now()

	recs, err := s.results.ListByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return s.render(recs, start)
}

func (s *Service) render(recs []domain.ExtractionResult, start time.Time) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 && index != activeIndex {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Processed At",
		"Filename",
		"Document Type",
		"Model",
		"Score",
		"Completeness",
		"Confidence",
		"Schema Valid",
		"Fields",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if !r.ProcessedAt.IsZero() {
			write(1, r.ProcessedAt.UTC().Format("2006-01-02 15:04:05"))
		} else {
			write(1, "")
		}
		write(2, r.Filename)
		write(3, string(r.DocumentType))
		write(4, r.ModelName)
		write(5, r.Score)
		write(6, r.Completeness)
		write(7, r.Confidence)
		write(8, r.SchemaValid)
		write(9, truncate(flattenFields(r.Fields), 500))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "C", "D", 16)
	_ = f.SetColWidth(sheet, "E", "G", 13)
	_ = f.SetColWidth(sheet, "H", "H", 12)
	_ = f.SetColWidth(sheet, "I", "I", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func flattenFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Sprintf("%v", fields)
	}
	return string(b)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
