// Package analysis drives chunked regulatory document analysis: it splits
// a document into chunks, fans AI impact queries out over a bounded worker
// pool, tracks per-run progress, and merges chunk findings into one report.
package analysis

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/regradar/internal/common"
	"github.com/bobmcallan/regradar/internal/document"
	"github.com/bobmcallan/regradar/internal/interfaces"
	"github.com/bobmcallan/regradar/internal/models"
	"github.com/bobmcallan/regradar/internal/services/highlight"
)

// Manager implements AnalysisService. It owns the run registry: runs are
// created on StartAnalysis, looked up by ID for progress polling, and torn
// down on report retrieval, cancellation, or retention expiry. There is no
// persistence: a run's state lives in memory for the run's duration only.
type Manager struct {
	gemini     interfaces.GeminiClient
	validator  interfaces.TargetValidator
	logger     *common.Logger
	config     common.AnalysisConfig
	hub        *ProgressHub
	vocabulary []string

	mu   sync.RWMutex
	runs map[string]*run

	latestMu sync.RWMutex
	latest   *models.AnalysisReport

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a new analysis manager.
func NewManager(
	gemini interfaces.GeminiClient,
	validator interfaces.TargetValidator,
	logger *common.Logger,
	config common.AnalysisConfig,
) *Manager {
	return &Manager{
		gemini:     gemini,
		validator:  validator,
		logger:     logger,
		config:     config,
		hub:        NewProgressHub(logger),
		vocabulary: highlight.DefaultVocabulary(),
		runs:       make(map[string]*run),
	}
}

// safeGo launches a goroutine with panic recovery and logging.
func (m *Manager) safeGo(name string, fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in analysis goroutine")
			}
		}()
		fn()
	}()
}

// Start launches the WebSocket hub and the retention sweeper.
func (m *Manager) Start() {
	if m.cancel != nil {
		m.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.safeGo("progress-hub", func() { m.hub.Run() })
	m.safeGo("sweeper", func() { m.sweepLoop(ctx) })

	m.logger.Info().
		Int("workers", m.workerCount()).
		Int("max_attempts", m.maxAttempts()).
		Int("chunk_size", m.config.ChunkSize).
		Msg("Analysis manager started")
}

// Stop cancels background loops and waits for in-flight runs to unwind.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	m.mu.Lock()
	for _, r := range m.runs {
		r.cancelFn()
	}
	m.mu.Unlock()

	m.hub.Stop()
	m.wg.Wait()
	m.logger.Info().Msg("Analysis manager stopped")
}

// Hub returns the progress WebSocket hub for handler registration.
func (m *Manager) Hub() *ProgressHub {
	return m.hub
}

func (m *Manager) workerCount() int {
	if m.config.Workers > 0 {
		return m.config.Workers
	}
	return 4
}

func (m *Manager) maxAttempts() int {
	if m.config.MaxAttempts > 0 {
		return m.config.MaxAttempts
	}
	return 3
}

// StartAnalysis validates the document and target, creates the run, and
// launches the worker pool. Format, empty-document, chunking, and target
// errors all surface here, before any AI call is made; no run state is
// created for a rejected request.
func (m *Manager) StartAnalysis(ctx context.Context, doc models.Document, ticker string) (string, int, error) {
	if m.gemini == nil {
		return "", 0, fmt.Errorf("no AI provider configured: %w", models.ErrAnalysisFailed)
	}

	nt, err := document.Extract(doc)
	if err != nil {
		return "", 0, err
	}

	chunks, err := document.SplitChunks(nt, m.config.ChunkSize, m.config.Lookback)
	if err != nil {
		return "", 0, err
	}

	target, err := m.validator.ValidateTicker(ctx, ticker)
	if err != nil {
		return "", 0, err
	}

	r := newRun(uuid.NewString(), doc.Name, *target, chunks)

	m.mu.Lock()
	m.runs[r.id] = r
	m.mu.Unlock()

	m.logger.Info().
		Str("run_id", r.id).
		Str("ticker", target.Ticker).
		Str("document", doc.Name).
		Int("chunks", len(chunks)).
		Msg("Analysis run started")

	m.broadcast(models.EventRunStarted, r)
	m.safeGo("run-"+r.id, func() { m.execute(r) })

	return r.id, len(chunks), nil
}

// GetProgress returns the current progress for a run.
func (m *Manager) GetProgress(runID string) (*models.Progress, error) {
	m.mu.RLock()
	r, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("run %q: %w", runID, models.ErrUnknownRun)
	}

	p := r.snapshot()
	return &p, nil
}

// GetReport returns the finished report, or the run's terminal error.
// The run is discarded from the registry once its outcome is retrieved.
func (m *Manager) GetReport(runID string) (*models.AnalysisReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %q: %w", runID, models.ErrUnknownRun)
	}

	r.mu.Lock()
	status, report, runErr := r.progress.Status, r.report, r.err
	r.mu.Unlock()

	switch status {
	case models.RunStatusRunning:
		return nil, fmt.Errorf("run %q: %w", runID, models.ErrReportPending)
	case models.RunStatusCancelled:
		delete(m.runs, runID)
		return nil, fmt.Errorf("run %q: %w", runID, models.ErrRunCancelled)
	case models.RunStatusFailed:
		delete(m.runs, runID)
		return nil, runErr
	default:
		delete(m.runs, runID)
		return report, nil
	}
}

// Cancel aborts an in-flight run. Terminal: the run is removed from the
// registry and no partial report is produced.
func (m *Manager) Cancel(runID string) error {
	m.mu.Lock()
	r, ok := m.runs[runID]
	if ok {
		delete(m.runs, runID)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %q: %w", runID, models.ErrUnknownRun)
	}

	r.mu.Lock()
	running := r.progress.Status == models.RunStatusRunning
	if running {
		r.progress.Status = models.RunStatusCancelled
		r.finishedAt = time.Now()
	}
	r.mu.Unlock()

	if running {
		r.cancelFn()
		m.logger.Info().Str("run_id", runID).Msg("Analysis run cancelled")
		m.broadcast(models.EventRunCancelled, r)
	}
	return nil
}

// LatestReportSummary returns regulation context from the most recently
// completed run, or "" when none exists.
func (m *Manager) LatestReportSummary() string {
	m.latestMu.RLock()
	defer m.latestMu.RUnlock()
	if m.latest == nil {
		return ""
	}

	narrative := m.latest.Narrative
	if len(narrative) > 2000 {
		narrative = narrative[:2000]
	}
	return m.latest.Summary() + "\n\n" + narrative
}

func (m *Manager) setLatest(report *models.AnalysisReport) {
	m.latestMu.Lock()
	m.latest = report
	m.latestMu.Unlock()
}

// RunCount returns the number of registered runs.
func (m *Manager) RunCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// broadcast pushes a progress event to WebSocket clients.
func (m *Manager) broadcast(eventType string, r *run) {
	m.hub.Broadcast(models.ProgressEvent{
		Type:      eventType,
		Progress:  r.snapshot(),
		Timestamp: time.Now(),
	})
}

// sweepLoop evicts finished runs whose reports were never retrieved.
func (m *Manager) sweepLoop(ctx context.Context) {
	retain := m.config.GetRetainFor()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-retain)
			m.mu.Lock()
			for id, r := range m.runs {
				r.mu.Lock()
				expired := r.progress.Status != models.RunStatusRunning && r.finishedAt.Before(cutoff)
				r.mu.Unlock()
				if expired {
					delete(m.runs, id)
					m.logger.Debug().Str("run_id", id).Msg("Expired finished run")
				}
			}
			m.mu.Unlock()
		}
	}
}

// Ensure Manager implements AnalysisService
var _ interfaces.AnalysisService = (*Manager)(nil)
