package usecase

import (
	"context"
	"sync"

	"github.com/duuta/ocr-flavors/internal/core/domain"
)

// BatchItem pairs a request with its outcome. One item failing never aborts
// the batch.
type BatchItem struct {
	Request Request
	Result  *domain.ExtractionResult
	Err     error
}

// ProcessBatch fans independent documents out over a bounded worker pool.
// Results come back in input order.
func (uc *ProcessDocumentUseCase) ProcessBatch(ctx context.Context, reqs []Request, workers int) []BatchItem {
	if workers <= 0 {
		workers = 4
	}
	if workers > len(reqs) {
		workers = len(reqs)
	}

	items := make([]BatchItem, len(reqs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, r Request) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := uc.Process(ctx, r)
			items[idx] = BatchItem{Request: r, Result: res, Err: err}
		}(i, req)
	}
	wg.Wait()

	return items
}
