package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
	api "github.com/kailas-cloud/docsig/internal/transport/chi"
)

// batchSender is the API surface the ingester needs.
type batchSender interface {
	IngestBatch(ctx context.Context, docs []*domdoc.Document) (api.BatchResponse, error)
}

// ingester pushes documents through a pool of batch workers.
// reader -> channel(batch) -> N workers -> POST /documents/batch.
type ingester struct {
	client    batchSender
	workers   int
	batchSize int
	metrics   *loaderMetrics
	cursor    *cursorTracker
	logger    *zap.Logger
}

type batchItem struct {
	docs      []*domdoc.Document
	fileIndex int
	rowOffset int
}

type ingestResult struct {
	Processed int64
	Failed    int64
	Unsigned  int64
	Duration  time.Duration
}

// Run reads from the cursor position until the input or maxRows is exhausted.
func (ing *ingester) Run(ctx context.Context, reader *fileReader, maxRows int) (ingestResult, error) {
	if ing.workers <= 0 {
		ing.workers = 1
	}
	if ing.batchSize <= 0 {
		ing.batchSize = 100
	}
	cur := ing.cursor.Get()

	batches := make(chan batchItem, ing.workers*2)
	var wg sync.WaitGroup
	var processed, failed, unsigned atomic.Int64

	start := time.Now()

	for i := 0; i < ing.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for batch := range batches {
				ing.processBatch(ctx, workerID, batch, &processed, &failed, &unsigned)
			}
		}(i)
	}

	readerErr := ing.produce(ctx, reader, cur.FileIndex, cur.RowOffset, maxRows, batches)
	close(batches)
	wg.Wait()

	return ingestResult{
		Processed: processed.Load(),
		Failed:    failed.Load(),
		Unsigned:  unsigned.Load(),
		Duration:  time.Since(start),
	}, readerErr
}

func (ing *ingester) produce(
	ctx context.Context,
	reader *fileReader,
	fileIndex, rowOffset, maxRows int,
	out chan<- batchItem,
) error {
	batch := make([]*domdoc.Document, 0, ing.batchSize)
	batchFile := fileIndex

	flush := func(nextRow int) {
		if len(batch) == 0 {
			return
		}
		out <- batchItem{docs: batch, fileIndex: batchFile, rowOffset: nextRow}
		batch = make([]*domdoc.Document, 0, ing.batchSize)
	}

	lastRow := rowOffset
	_, err := reader.Read(fileIndex, rowOffset, maxRows, func(doc *domdoc.Document, fi, row int) bool {
		if ctx.Err() != nil {
			return false
		}
		// Batches never span files so the cursor stays exact.
		if fi != batchFile {
			flush(lastRow)
			batchFile = fi
		}
		batch = append(batch, doc)
		lastRow = row + 1
		if len(batch) >= ing.batchSize {
			flush(lastRow)
		}
		return true
	})
	flush(lastRow)
	return err
}

func (ing *ingester) processBatch(
	ctx context.Context,
	workerID int,
	batch batchItem,
	processed, failed, unsigned *atomic.Int64,
) {
	start := time.Now()
	resp, err := ing.client.IngestBatch(ctx, batch.docs)

	ing.metrics.batchDuration.Observe(time.Since(start).Seconds())
	ing.metrics.batchesTotal.Inc()

	if err != nil {
		ing.logger.Warn("Batch request failed",
			zap.Int("worker", workerID),
			zap.Int("size", len(batch.docs)),
			zap.Error(err),
		)
		failed.Add(int64(len(batch.docs)))
		ing.metrics.docsFailed.WithLabelValues("batch_error").Add(float64(len(batch.docs)))
		return
	}

	processed.Add(int64(resp.Succeeded))
	failed.Add(int64(resp.Failed))
	ing.metrics.docsProcessed.Add(float64(resp.Succeeded))

	var notSigned int
	var firstErr *api.BatchResultItem
	for i := range resp.Items {
		it := &resp.Items[i]
		if it.Error != nil && firstErr == nil {
			firstErr = it
		}
		if it.Error == nil && !it.Signature.Signed {
			notSigned++
		}
	}
	unsigned.Add(int64(notSigned))
	ing.metrics.docsUnsigned.Add(float64(notSigned))

	if resp.Failed > 0 {
		ing.metrics.docsFailed.WithLabelValues("item_error").Add(float64(resp.Failed))
		if firstErr != nil {
			ing.logger.Warn("Document rejected",
				zap.Int("worker", workerID),
				zap.String("doc", firstErr.ID),
				zap.String("error", firstErr.Error.Message),
			)
		}
	}

	ing.cursor.Advance(batch.fileIndex, batch.rowOffset, resp.Succeeded, resp.Failed)
	cur := ing.cursor.Get()
	ing.metrics.cursorPosition.Set(float64(cur.TotalProcessed + cur.TotalFailed))

	if total := processed.Load(); total%10000 < int64(len(batch.docs)) {
		ing.logger.Info("Load progress",
			zap.Int64("processed", total),
			zap.Int64("failed", failed.Load()),
		)
	}
}
