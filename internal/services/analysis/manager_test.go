package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/regradar/internal/common"
	"github.com/bobmcallan/regradar/internal/models"
)

// --- mocks ---

type mockGemini struct {
	mu        sync.Mutex
	calls     map[int]int // chunk index -> attempt count
	analyzeFn func(ctx context.Context, chunk models.Chunk, attempt int) (string, error)
}

func newMockGemini() *mockGemini {
	return &mockGemini{calls: make(map[int]int)}
}

func (m *mockGemini) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return "generated", nil
}

func (m *mockGemini) AnalyzeChunk(ctx context.Context, target models.AnalysisTarget, chunk models.Chunk, totalChunks int) (string, error) {
	m.mu.Lock()
	m.calls[chunk.Index]++
	attempt := m.calls[chunk.Index]
	m.mu.Unlock()

	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, chunk, attempt)
	}
	return fmt.Sprintf("SEVERITY: low\nIMPACT: Finding for segment %d.", chunk.Index), nil
}

func (m *mockGemini) callCount(index int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[index]
}

func (m *mockGemini) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

type mockValidator struct {
	err   error
	calls int
}

func (m *mockValidator) ValidateTicker(ctx context.Context, symbol string) (*models.AnalysisTarget, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &models.AnalysisTarget{Ticker: strings.ToUpper(symbol), Name: "Acme Corp", Exchange: "US"}, nil
}

// --- helpers ---

func testConfig() common.AnalysisConfig {
	return common.AnalysisConfig{
		ChunkSize:   50,
		Lookback:    50,
		Workers:     2,
		MaxAttempts: 3,
		CallTimeout: "2s",
		BackoffBase: "1ms",
		RetainFor:   "1h",
	}
}

// threeParagraphDoc splits into exactly three chunks under testConfig.
func threeParagraphDoc() models.Document {
	text := strings.Repeat("a", 40) + "\n\n" + strings.Repeat("b", 40) + "\n\n" + strings.Repeat("c", 40)
	return models.Document{Name: "doc.txt", Format: models.FormatPlain, Data: []byte(text)}
}

func newTestManager(gemini *mockGemini) (*Manager, *mockValidator) {
	validator := &mockValidator{}
	m := NewManager(gemini, validator, common.NewSilentLogger(), testConfig())
	return m, validator
}

func waitForFinish(t *testing.T, m *Manager, runID string) models.Progress {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p, err := m.GetProgress(runID)
		if err != nil {
			t.Fatalf("GetProgress failed while waiting: %v", err)
		}
		if p.Status != models.RunStatusRunning {
			return *p
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("run did not finish within deadline")
	return models.Progress{}
}

// --- tests ---

func TestStartAnalysisRunsToCompletion(t *testing.T) {
	gemini := newMockGemini()
	m, _ := newTestManager(gemini)
	defer m.Stop()

	runID, total, err := m.StartAnalysis(context.Background(), threeParagraphDoc(), "acme.us")
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("chunks_total = %d, want 3", total)
	}

	p := waitForFinish(t, m, runID)
	if p.Status != models.RunStatusCompleted {
		t.Fatalf("status = %s, want completed", p.Status)
	}
	if p.ChunksCompleted != 3 {
		t.Errorf("chunks_completed = %d, want 3", p.ChunksCompleted)
	}

	report, err := m.GetReport(runID)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if report.Target.Ticker != "ACME.US" {
		t.Errorf("report ticker = %s", report.Target.Ticker)
	}
	for i, c := range report.Chunks {
		if c.Index != i {
			t.Errorf("report chunk %d out of order (index %d)", i, c.Index)
		}
	}
	if !strings.Contains(report.Narrative, "Finding for segment 0.") {
		t.Errorf("narrative missing chunk text: %q", report.Narrative)
	}
	if report.OverallSeverity != models.SeverityLow {
		t.Errorf("overall severity = %s, want low", report.OverallSeverity)
	}

	// Retrieval is terminal: the run is gone.
	if _, err := m.GetReport(runID); !errors.Is(err, models.ErrUnknownRun) {
		t.Errorf("second GetReport err = %v, want ErrUnknownRun", err)
	}
	if n := m.RunCount(); n != 0 {
		t.Errorf("run count after retrieval = %d, want 0", n)
	}
}

func TestStartAnalysisInvalidTickerCreatesNoRun(t *testing.T) {
	gemini := newMockGemini()
	m, validator := newTestManager(gemini)
	defer m.Stop()
	validator.err = fmt.Errorf("ticker %q: %w", "ZZZZINVALID", models.ErrInvalidTarget)

	_, _, err := m.StartAnalysis(context.Background(), threeParagraphDoc(), "ZZZZINVALID")
	if !errors.Is(err, models.ErrInvalidTarget) {
		t.Fatalf("err = %v, want ErrInvalidTarget", err)
	}
	if n := m.RunCount(); n != 0 {
		t.Errorf("run count = %d, want 0 for rejected request", n)
	}
	if gemini.totalCalls() != 0 {
		t.Errorf("AI was called %d times for an invalid target", gemini.totalCalls())
	}
}

func TestStartAnalysisRejectsEmptyDocument(t *testing.T) {
	gemini := newMockGemini()
	m, validator := newTestManager(gemini)
	defer m.Stop()

	doc := models.Document{Name: "empty.txt", Format: models.FormatPlain, Data: []byte("   \n\n ")}
	_, _, err := m.StartAnalysis(context.Background(), doc, "ACME.US")
	if !errors.Is(err, models.ErrEmptyDocument) {
		t.Fatalf("err = %v, want ErrEmptyDocument", err)
	}
	if validator.calls != 0 {
		t.Errorf("validator called %d times before document checks", validator.calls)
	}
}

func TestTransientFailureRetriesThenSucceeds(t *testing.T) {
	gemini := newMockGemini()
	gemini.analyzeFn = func(ctx context.Context, chunk models.Chunk, attempt int) (string, error) {
		if chunk.Index == 0 && attempt < 3 {
			return "", fmt.Errorf("transient: connection reset")
		}
		return fmt.Sprintf("SEVERITY: medium\nIMPACT: Finding for segment %d.", chunk.Index), nil
	}
	m, _ := newTestManager(gemini)
	defer m.Stop()

	runID, _, err := m.StartAnalysis(context.Background(), threeParagraphDoc(), "ACME.US")
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}

	p := waitForFinish(t, m, runID)
	if p.Status != models.RunStatusCompleted {
		t.Fatalf("status = %s, want completed", p.Status)
	}

	report, err := m.GetReport(runID)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if report.Chunks[0].Attempts != 3 {
		t.Errorf("chunk 0 attempts = %d, want 3", report.Chunks[0].Attempts)
	}
	if report.Chunks[0].Degraded {
		t.Error("chunk 0 degraded despite eventual success")
	}
	if report.DegradedChunks != 0 {
		t.Errorf("degraded chunks = %d, want 0", report.DegradedChunks)
	}
}

func TestRetryExhaustionDegradesChunkOnly(t *testing.T) {
	gemini := newMockGemini()
	gemini.analyzeFn = func(ctx context.Context, chunk models.Chunk, attempt int) (string, error) {
		if chunk.Index == 1 {
			return "", fmt.Errorf("transient: timeout")
		}
		return fmt.Sprintf("SEVERITY: high\nIMPACT: Finding for segment %d.", chunk.Index), nil
	}
	m, _ := newTestManager(gemini)
	defer m.Stop()

	runID, _, err := m.StartAnalysis(context.Background(), threeParagraphDoc(), "ACME.US")
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}

	p := waitForFinish(t, m, runID)
	if p.Status != models.RunStatusCompleted {
		t.Fatalf("status = %s, want completed despite one degraded chunk", p.Status)
	}

	report, err := m.GetReport(runID)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got := gemini.callCount(1); got != 3 {
		t.Errorf("chunk 1 attempts = %d, want 3", got)
	}
	c := report.Chunks[1]
	if !c.Degraded {
		t.Fatal("chunk 1 not degraded after retry exhaustion")
	}
	if c.Impact != models.DegradedMarker {
		t.Errorf("chunk 1 impact = %q, want degraded marker", c.Impact)
	}
	if report.DegradedChunks != 1 {
		t.Errorf("degraded chunks = %d, want 1", report.DegradedChunks)
	}
	// The surviving chunks still drive the overall severity.
	if report.OverallSeverity != models.SeverityHigh {
		t.Errorf("overall severity = %s, want high", report.OverallSeverity)
	}
}

func TestFatalProviderErrorFailsRun(t *testing.T) {
	gemini := newMockGemini()
	gemini.analyzeFn = func(ctx context.Context, chunk models.Chunk, attempt int) (string, error) {
		return "", fmt.Errorf("status 401: %w", models.ErrAnalysisFailed)
	}
	m, _ := newTestManager(gemini)
	defer m.Stop()

	runID, _, err := m.StartAnalysis(context.Background(), threeParagraphDoc(), "ACME.US")
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}

	p := waitForFinish(t, m, runID)
	if p.Status != models.RunStatusFailed {
		t.Fatalf("status = %s, want failed", p.Status)
	}

	_, err = m.GetReport(runID)
	if !errors.Is(err, models.ErrAnalysisFailed) {
		t.Fatalf("GetReport err = %v, want ErrAnalysisFailed", err)
	}
	// Failure retrieval is terminal too.
	if _, err := m.GetReport(runID); !errors.Is(err, models.ErrUnknownRun) {
		t.Errorf("second GetReport err = %v, want ErrUnknownRun", err)
	}
}

func TestReportPendingWhileRunning(t *testing.T) {
	release := make(chan struct{})
	gemini := newMockGemini()
	gemini.analyzeFn = func(ctx context.Context, chunk models.Chunk, attempt int) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return fmt.Sprintf("SEVERITY: low\nIMPACT: Finding for segment %d.", chunk.Index), nil
	}
	m, _ := newTestManager(gemini)
	defer m.Stop()

	runID, _, err := m.StartAnalysis(context.Background(), threeParagraphDoc(), "ACME.US")
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}

	if _, err := m.GetReport(runID); !errors.Is(err, models.ErrReportPending) {
		t.Fatalf("GetReport err = %v, want ErrReportPending", err)
	}

	close(release)
	p := waitForFinish(t, m, runID)
	if p.Status != models.RunStatusCompleted {
		t.Fatalf("status = %s, want completed", p.Status)
	}
}

func TestCancelRemovesRunImmediately(t *testing.T) {
	gemini := newMockGemini()
	gemini.analyzeFn = func(ctx context.Context, chunk models.Chunk, attempt int) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	m, _ := newTestManager(gemini)
	defer m.Stop()

	runID, _, err := m.StartAnalysis(context.Background(), threeParagraphDoc(), "ACME.US")
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}

	if err := m.Cancel(runID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if _, err := m.GetProgress(runID); !errors.Is(err, models.ErrUnknownRun) {
		t.Errorf("GetProgress after cancel err = %v, want ErrUnknownRun", err)
	}
	if _, err := m.GetReport(runID); !errors.Is(err, models.ErrUnknownRun) {
		t.Errorf("GetReport after cancel err = %v, want ErrUnknownRun", err)
	}
	if err := m.Cancel(runID); !errors.Is(err, models.ErrUnknownRun) {
		t.Errorf("second Cancel err = %v, want ErrUnknownRun", err)
	}
}

func TestProgressCountsAreMonotonic(t *testing.T) {
	gemini := newMockGemini()
	gemini.analyzeFn = func(ctx context.Context, chunk models.Chunk, attempt int) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return fmt.Sprintf("SEVERITY: low\nIMPACT: Finding for segment %d.", chunk.Index), nil
	}
	m, _ := newTestManager(gemini)
	defer m.Stop()

	runID, total, err := m.StartAnalysis(context.Background(), threeParagraphDoc(), "ACME.US")
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}

	last := 0
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p, err := m.GetProgress(runID)
		if err != nil {
			t.Fatalf("GetProgress failed: %v", err)
		}
		if p.ChunksCompleted < last {
			t.Fatalf("chunks_completed went backwards: %d -> %d", last, p.ChunksCompleted)
		}
		if p.ChunksCompleted > p.ChunksTotal {
			t.Fatalf("chunks_completed %d exceeds total %d", p.ChunksCompleted, p.ChunksTotal)
		}
		last = p.ChunksCompleted
		if p.Status != models.RunStatusRunning {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if last != total {
		t.Errorf("final chunks_completed = %d, want %d", last, total)
	}
}

func TestGetProgressUnknownRun(t *testing.T) {
	m, _ := newTestManager(newMockGemini())
	defer m.Stop()

	if _, err := m.GetProgress("no-such-run"); !errors.Is(err, models.ErrUnknownRun) {
		t.Errorf("err = %v, want ErrUnknownRun", err)
	}
}

func TestLatestReportSummaryAfterCompletion(t *testing.T) {
	gemini := newMockGemini()
	m, _ := newTestManager(gemini)
	defer m.Stop()

	if s := m.LatestReportSummary(); s != "" {
		t.Errorf("summary before any run = %q, want empty", s)
	}

	runID, _, err := m.StartAnalysis(context.Background(), threeParagraphDoc(), "ACME.US")
	if err != nil {
		t.Fatalf("StartAnalysis failed: %v", err)
	}
	waitForFinish(t, m, runID)

	summary := m.LatestReportSummary()
	if !strings.Contains(summary, "Acme Corp") {
		t.Errorf("summary %q missing company name", summary)
	}
	if !strings.Contains(summary, "Finding for segment") {
		t.Errorf("summary %q missing narrative excerpt", summary)
	}
}
