package worker

import (
	"context"
	"fmt"
	"sync"

	"s3up/internal/progress"

	"go.uber.org/zap"
)

// Pool runs N workers over a shared job channel. Workers claim jobs in
// queue order but finish in any order; the collector re-sorts.
type Pool struct {
	size      int
	processor *Processor
	newSink   func() progress.Sink
	logger    *zap.Logger
}

// NewPool creates a pool of size workers. newSink allocates the
// progress sink each worker exclusively owns.
func NewPool(size int, processor *Processor, newSink func() progress.Sink, logger *zap.Logger) *Pool {
	return &Pool{
		size:      size,
		processor: processor,
		newSink:   newSink,
		logger:    logger,
	}
}

// Run starts the workers and blocks until the job channel is closed
// and drained, then closes the results channel. Callers run it in a
// goroutine and consume results until close.
func (p *Pool) Run(ctx context.Context, jobs <-chan Job, results chan<- Result) {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go p.worker(ctx, i, jobs, results, &wg)
	}
	wg.Wait()
	close(results)
}

func (p *Pool) worker(ctx context.Context, id int, jobs <-chan Job, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	logger := p.logger.With(zap.Int("worker_id", id))
	logger.Debug("Worker started")

	sink := p.newSink()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				logger.Debug("Worker finished - no more jobs")
				return
			}
			results <- p.safeProcess(ctx, logger, job, sink)

		case <-ctx.Done():
			logger.Debug("Worker stopped - context cancelled")
			return
		}
	}
}

// safeProcess converts a worker panic into a Failed result so the
// in-flight file is reported rather than silently dropped.
func (p *Pool) safeProcess(ctx context.Context, logger *zap.Logger, job Job, sink progress.Sink) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Worker panic",
				zap.String("path", job.Path),
				zap.Any("panic", r),
			)
			sink.Finish()
			res = Result{
				Kind: Failed,
				Name: job.Path,
				Err:  fmt.Sprintf("worker panic: %v", r),
			}
		}
	}()
	return p.processor.Process(ctx, job, sink)
}
