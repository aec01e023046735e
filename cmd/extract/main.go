package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/duuta/ocr-flavors/internal/bootstrap"
	"github.com/duuta/ocr-flavors/internal/config"
	"github.com/duuta/ocr-flavors/internal/core/usecase"
	"github.com/duuta/ocr-flavors/internal/infrastructure/validator"
	"github.com/duuta/ocr-flavors/internal/observability/logging"
)

var (
	filePath      = flag.String("file", "", "Single document to process")
	dirPath       = flag.String("dir", "", "Directory of documents to process")
	prompt        = flag.String("prompt", "", "Override the extraction prompt")
	minConfidence = flag.Float64("min-confidence", 0, "Override the confidence floor (0 keeps the configured value)")
	workers       = flag.Int("workers", 0, "Concurrent documents (0 keeps the configured value)")
	exportPath    = flag.String("export-xlsx", "", "Export stored results to an XLSX file instead of processing")
	enqueue       = flag.Bool("enqueue", false, "Hand documents to the worker via the queue instead of processing locally")
	verbose       = flag.Bool("v", false, "Print extracted fields as JSON")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("config error: %v", err)
	}
	if *minConfidence > 0 {
		cfg.MinConfidence = *minConfidence
	}
	if *workers > 0 {
		cfg.WorkerCount = *workers
	}
	logLevel := cfg.LogLevel
	if !*verbose {
		logLevel = "error"
	}
	logger := logging.Setup(cfg.ServiceName, logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{WithQueue: *enqueue})
	if err != nil {
		fatal("bootstrap error: %v", err)
	}
	defer app.Close()

	if *exportPath != "" {
		runExport(ctx, app, *exportPath)
		return
	}

	reqs, err := collectRequests(*filePath, *dirPath, *prompt)
	if err != nil {
		fatal("%v", err)
	}
	if len(reqs) == 0 {
		fatal("nothing to process: pass -file or -dir (see -h)")
	}

	if *enqueue {
		runEnqueue(ctx, app, reqs)
		return
	}

	items := app.ProcessUC.ProcessBatch(ctx, reqs, cfg.WorkerCount)
	failed := report(items, *verbose)
	if failed > 0 {
		os.Exit(1)
	}
}

func collectRequests(file, dir, prompt string) ([]usecase.Request, error) {
	var reqs []usecase.Request

	appendFile := func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		reqs = append(reqs, usecase.Request{
			Filename: filepath.Base(path),
			Data:     data,
			Prompt:   prompt,
		})
		return nil
	}

	if file != "" {
		if err := appendFile(file); err != nil {
			return nil, err
		}
	}
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !validator.IsSupportedFile(entry.Name()) {
				continue
			}
			if err := appendFile(filepath.Join(dir, entry.Name())); err != nil {
				return nil, err
			}
		}
	}
	return reqs, nil
}

func report(items []usecase.BatchItem, verbose bool) int {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			fmt.Printf("%s %s: %v\n", red("FAIL"), item.Request.Filename, item.Err)
			continue
		}
		res := item.Result
		origin := ""
		if res.FromCache {
			origin = " (cached)"
		}
		fmt.Printf("%s %s: %s via %s, score %.2f%s\n",
			green("OK"), item.Request.Filename, cyan(string(res.DocumentType)), res.ModelName, res.Score, origin)
		if verbose {
			printFields(res.Fields)
		}
	}
	fmt.Printf("\n%d processed, %d failed\n", len(items)-failed, failed)
	return failed
}

func printFields(fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := json.Marshal(fields[k])
		if err != nil {
			continue
		}
		fmt.Printf("  %s: %s\n", k, v)
	}
}

// runEnqueue drops documents into object storage and notifies workers over
// the queue; extraction happens out of process.
func runEnqueue(ctx context.Context, app *bootstrap.App, reqs []usecase.Request) {
	for _, req := range reqs {
		if err := app.Storage.Save(ctx, req.Filename, bytes.NewReader(req.Data)); err != nil {
			fatal("store %s: %v", req.Filename, err)
		}
		if err := app.Queue.PublishDocumentIngested(ctx, req.Filename); err != nil {
			fatal("enqueue %s: %v", req.Filename, err)
		}
		fmt.Printf("enqueued %s\n", req.Filename)
	}
}

func runExport(ctx context.Context, app *bootstrap.App, path string) {
	if app.Export == nil {
		fatal("export requires POSTGRES_DSN to be configured")
	}
	data, err := app.Export.ExportResultsXLSX(ctx, nil, nil)
	if err != nil {
		fatal("export error: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fatal("write %s: %v", path, err)
	}
	fmt.Printf("exported results to %s at %s\n", path, time.Now().Format(time.RFC3339))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
