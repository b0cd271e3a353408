package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bobmcallan/regradar/internal/models"
	"github.com/bobmcallan/regradar/internal/services/highlight"
)

// run holds all state for one analysis run. Chunk workers share nothing
// except the progress section, which is serialized under mu.
type run struct {
	id       string
	document string
	target   models.AnalysisTarget
	chunks   []models.Chunk

	ctx      context.Context
	cancelFn context.CancelFunc

	mu         sync.Mutex
	progress   models.Progress
	results    []models.ChunkResult // indexed by chunk index
	resolved   []bool
	elapsed    time.Duration // cumulative chunk latency, drives the rolling average
	report     *models.AnalysisReport
	err        error
	finishedAt time.Time
}

func newRun(id, docName string, target models.AnalysisTarget, chunks []models.Chunk) *run {
	ctx, cancel := context.WithCancel(context.Background())
	return &run{
		id:       id,
		document: docName,
		target:   target,
		chunks:   chunks,
		ctx:      ctx,
		cancelFn: cancel,
		results:  make([]models.ChunkResult, len(chunks)),
		resolved: make([]bool, len(chunks)),
		progress: models.Progress{
			RunID:       id,
			Status:      models.RunStatusRunning,
			ChunksTotal: len(chunks),
			StartedAt:   time.Now(),
		},
	}
}

// snapshot returns a copy of the progress state.
func (r *run) snapshot() models.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// completeChunk records a resolved chunk (success or degraded) and updates
// the progress counters: completed count, rolling average latency, and the
// remaining-time estimate. Workers serialize here under the run mutex.
func (r *run) completeChunk(res models.ChunkResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved[res.Index] {
		return
	}
	r.results[res.Index] = res
	r.resolved[res.Index] = true

	r.progress.ChunksCompleted++
	r.elapsed += res.Elapsed

	avg := r.elapsed.Seconds() / float64(r.progress.ChunksCompleted)
	remaining := r.progress.ChunksTotal - r.progress.ChunksCompleted
	r.progress.AvgChunkSeconds = avg
	r.progress.EstimatedSecondsRemaining = float64(remaining) * avg
}

// execute fans chunk analyses out over the worker pool, reassembles results
// by chunk index, and builds the final report. Runs on its own goroutine.
func (m *Manager) execute(r *run) {
	ctx := r.ctx
	defer r.cancelFn()

	workers := m.workerCount()
	if workers > len(r.chunks) {
		workers = len(r.chunks)
	}

	jobs := make(chan models.Chunk)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				res, fatal := m.analyzeChunk(ctx, r, chunk)
				if fatal != nil {
					r.fail(fatal)
					r.cancelFn()
					return
				}
				if ctx.Err() != nil {
					return
				}
				r.completeChunk(res)
				m.broadcast(models.EventChunkDone, r)
			}
		}()
	}

feed:
	for _, chunk := range r.chunks {
		select {
		case jobs <- chunk:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	r.mu.Lock()
	status := r.progress.Status
	failErr := r.err
	completed := r.progress.ChunksCompleted
	r.mu.Unlock()

	switch {
	case failErr != nil:
		m.logger.Error().Str("run_id", r.id).Err(failErr).Msg("Analysis run failed")
		m.broadcast(models.EventRunFailed, r)

	case status == models.RunStatusCancelled:
		// Cancel() already broadcast and removed the run.

	case completed < len(r.chunks):
		// Interrupted by shutdown before all chunks resolved.
		r.mu.Lock()
		r.progress.Status = models.RunStatusCancelled
		r.finishedAt = time.Now()
		r.mu.Unlock()
		m.broadcast(models.EventRunCancelled, r)

	default:
		report := m.buildReport(r)
		r.mu.Lock()
		r.report = report
		r.progress.Status = models.RunStatusCompleted
		r.progress.EstimatedSecondsRemaining = 0
		r.finishedAt = time.Now()
		r.mu.Unlock()

		m.setLatest(report)
		m.logger.Info().
			Str("run_id", r.id).
			Str("severity", string(report.OverallSeverity)).
			Int("degraded", report.DegradedChunks).
			Msg("Analysis run completed")
		m.broadcast(models.EventRunCompleted, r)
	}
}

// fail records a fatal run error. First writer wins.
func (r *run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil && r.progress.Status == models.RunStatusRunning {
		r.err = err
		r.progress.Status = models.RunStatusFailed
		r.finishedAt = time.Now()
	}
}

// analyzeChunk issues the AI query for one chunk with bounded timeout,
// exponential backoff, and a capped attempt count. Exhausting retries
// degrades the chunk instead of aborting the run; a non-retryable provider
// error is returned as fatal and aborts the run.
func (m *Manager) analyzeChunk(ctx context.Context, r *run, chunk models.Chunk) (models.ChunkResult, error) {
	maxAttempts := m.maxAttempts()
	backoff := m.config.GetBackoffBase()
	started := time.Now()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, m.config.GetCallTimeout())
		raw, err := m.gemini.AnalyzeChunk(callCtx, r.target, chunk, len(r.chunks))
		cancel()

		if err == nil {
			res, ok := parseChunkResponse(chunk.Index, raw)
			if !ok {
				m.logger.Warn().
					Str("run_id", r.id).
					Int("chunk", chunk.Index).
					Msg("Unparseable AI response, degrading chunk")
			} else {
				res.Highlights = highlight.Find(res.Impact, m.vocabulary)
			}
			res.Attempts = attempt
			res.Elapsed = time.Since(started)
			return res, nil
		}

		if errors.Is(err, models.ErrAnalysisFailed) {
			return models.ChunkResult{}, err
		}

		m.logger.Warn().
			Str("run_id", r.id).
			Int("chunk", chunk.Index).
			Int("attempt", attempt).
			Int("max", maxAttempts).
			Err(err).
			Msg("Chunk analysis attempt failed")

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	res := degradedResult(chunk.Index)
	res.Attempts = maxAttempts
	res.Elapsed = time.Since(started)
	return res, nil
}
