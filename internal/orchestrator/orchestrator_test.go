package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valpere/peredit/internal"
	"github.com/valpere/peredit/internal/rewriter"
	"github.com/valpere/peredit/internal/store"
)

type mockService struct {
	nameVal     string
	rewriteFunc func(ctx context.Context, req rewriter.RewriteRequest) (*rewriter.ServiceResult, error)
	callCount   atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (m *mockService) Name() string  { return m.nameVal }
func (m *mockService) Model() string { return "mock-model" }

func (m *mockService) Rewrite(ctx context.Context, req rewriter.RewriteRequest) (*rewriter.ServiceResult, error) {
	m.callCount.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if m.rewriteFunc != nil {
		return m.rewriteFunc(ctx, req)
	}
	return &rewriter.ServiceResult{ServiceName: m.nameVal, RewrittenText: strings.ToUpper(req.Text)}, nil
}

func (m *mockService) IsAvailable(ctx context.Context) error { return nil }

func paper(paragraphs ...string) string {
	return strings.Join(paragraphs, "\n\n")
}

func TestOrchestrator_New_Defaults(t *testing.T) {
	o := New(&mockService{nameVal: "mock"}, OrchestratorConfig{})

	if o.config.Concurrency != DefaultConcurrency {
		t.Errorf("expected Concurrency=%d, got %d", DefaultConcurrency, o.config.Concurrency)
	}
	if o.config.Timeout != DefaultTimeout {
		t.Errorf("expected Timeout=%v, got %v", DefaultTimeout, o.config.Timeout)
	}
	if o.validator == nil {
		t.Error("expected validator to be created by default")
	}
}

func TestOrchestrator_New_SkipValidation(t *testing.T) {
	o := New(&mockService{nameVal: "mock"}, OrchestratorConfig{SkipValidation: true})
	if o.validator != nil {
		t.Error("expected nil validator when SkipValidation is true")
	}
}

func TestOrchestrator_Rewrite_PreservesOrder(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		rewriteFunc: func(ctx context.Context, req rewriter.RewriteRequest) (*rewriter.ServiceResult, error) {
			// later chunks finish first
			if strings.HasPrefix(req.Text, "alpha") {
				time.Sleep(30 * time.Millisecond)
			}
			return &rewriter.ServiceResult{ServiceName: "mock", RewrittenText: strings.ToUpper(req.Text)}, nil
		},
	}
	o := New(svc, OrchestratorConfig{MaxChars: 12, Concurrency: 3, SkipValidation: true})

	res, err := o.Rewrite(context.Background(), internal.RewriteRequest{Paper: paper("alpha one.", "beta two.", "gamma three.")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Chunks != 3 {
		t.Errorf("expected 3 chunks, got %d", res.Chunks)
	}
	if want := "ALPHA ONE.\n\nBETA TWO.\n\nGAMMA THREE."; res.Text != want {
		t.Errorf("got %q, want %q", res.Text, want)
	}
}

func TestOrchestrator_Rewrite_BoundsConcurrency(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		rewriteFunc: func(ctx context.Context, req rewriter.RewriteRequest) (*rewriter.ServiceResult, error) {
			time.Sleep(10 * time.Millisecond)
			return &rewriter.ServiceResult{ServiceName: "mock", RewrittenText: req.Text}, nil
		},
	}
	o := New(svc, OrchestratorConfig{MaxChars: 5, Concurrency: 2, SkipValidation: true})

	_, err := o.Rewrite(context.Background(), internal.RewriteRequest{Paper: paper("a.", "b.", "c.", "d.", "e.", "f.")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := svc.maxInFlight.Load(); got > 2 {
		t.Errorf("expected at most 2 calls in flight, saw %d", got)
	}
	if got := svc.callCount.Load(); got != 6 {
		t.Errorf("expected 6 calls, got %d", got)
	}
}

func TestOrchestrator_Rewrite_FirstErrorCancelsRest(t *testing.T) {
	upstream := &rewriter.StatusError{Service: "mock", StatusCode: 500}
	svc := &mockService{
		nameVal: "mock",
		rewriteFunc: func(ctx context.Context, req rewriter.RewriteRequest) (*rewriter.ServiceResult, error) {
			if strings.HasPrefix(req.Text, "bad") {
				return &rewriter.ServiceResult{ServiceName: "mock", Error: upstream.Error()}, upstream
			}
			select {
			case <-ctx.Done():
				return &rewriter.ServiceResult{ServiceName: "mock", Error: ctx.Err().Error()}, ctx.Err()
			case <-time.After(2 * time.Second):
				return &rewriter.ServiceResult{ServiceName: "mock", RewrittenText: req.Text}, nil
			}
		},
	}
	o := New(svc, OrchestratorConfig{MaxChars: 8, Concurrency: 2, SkipValidation: true})

	start := time.Now()
	_, err := o.Rewrite(context.Background(), internal.RewriteRequest{Paper: paper("slow.", "bad.")})
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *rewriter.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 500 {
		t.Errorf("expected upstream StatusError to be preserved, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("expected the slow chunk to be cancelled")
	}
}

func TestOrchestrator_Rewrite_ChunkTimeout(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		rewriteFunc: func(ctx context.Context, req rewriter.RewriteRequest) (*rewriter.ServiceResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	o := New(svc, OrchestratorConfig{Timeout: 20 * time.Millisecond, SkipValidation: true})

	_, err := o.Rewrite(context.Background(), internal.RewriteRequest{Paper: "Something."})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestOrchestrator_Rewrite_ProtectsCitations(t *testing.T) {
	var seen rewriter.RewriteRequest
	svc := &mockService{
		nameVal: "mock",
		rewriteFunc: func(ctx context.Context, req rewriter.RewriteRequest) (*rewriter.ServiceResult, error) {
			seen = req
			return &rewriter.ServiceResult{ServiceName: "mock", RewrittenText: strings.Replace(req.Text, "Prior work", "Earlier studies", 1)}, nil
		},
	}
	o := New(svc, OrchestratorConfig{SkipValidation: true})

	res, err := o.Rewrite(context.Background(), internal.RewriteRequest{Paper: "Prior work [1] agrees (Smith, 2020)."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(seen.Text, "[1]") || strings.Contains(seen.Text, "Smith") {
		t.Errorf("citations reached the model: %q", seen.Text)
	}
	if seen.Instructions == "" {
		t.Error("expected the placeholder hint in the instructions")
	}
	if want := "Earlier studies [1] agrees (Smith, 2020)."; res.Text != want {
		t.Errorf("got %q, want %q", res.Text, want)
	}
}

func TestOrchestrator_Rewrite_ReportsDroppedMarkers(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		rewriteFunc: func(ctx context.Context, req rewriter.RewriteRequest) (*rewriter.ServiceResult, error) {
			return &rewriter.ServiceResult{ServiceName: "mock", RewrittenText: "Prior work agrees."}, nil
		},
	}
	o := New(svc, OrchestratorConfig{SkipValidation: true})

	res, err := o.Rewrite(context.Background(), internal.RewriteRequest{Paper: "Prior work [1] agrees."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.MissingMarkers) != 1 || res.MissingMarkers[0] != "[1]" {
		t.Errorf("expected [1] reported missing, got %v", res.MissingMarkers)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning")
	}
}

func TestOrchestrator_Rewrite_UsesRewriteMemory(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	svc := &mockService{nameVal: "mock"}
	o := New(svc, OrchestratorConfig{SkipValidation: true}, WithStore(st))
	req := internal.RewriteRequest{ID: "req-1", Paper: "Some paper text.", Timestamp: time.Now()}

	first, err := o.Rewrite(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.ID = "req-2"
	second, err := o.Rewrite(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if svc.callCount.Load() != 1 {
		t.Errorf("expected 1 model call, got %d", svc.callCount.Load())
	}
	if second.CacheHits != 1 || first.CacheHits != 0 {
		t.Errorf("unexpected cache hits: first=%d second=%d", first.CacheHits, second.CacheHits)
	}
	if first.Text != second.Text {
		t.Errorf("cached text differs: %q vs %q", first.Text, second.Text)
	}

	stats, _ := st.Stats(context.Background())
	if stats.Requests != 2 {
		t.Errorf("expected 2 logged requests, got %d", stats.Requests)
	}
}

func TestOrchestrator_Rewrite_ValidationWarnings(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		rewriteFunc: func(ctx context.Context, req rewriter.RewriteRequest) (*rewriter.ServiceResult, error) {
			return &rewriter.ServiceResult{ServiceName: "mock", RewrittenText: req.Text + " " + req.Text}, nil
		},
	}
	o := New(svc, OrchestratorConfig{})

	res, err := o.Rewrite(context.Background(), internal.RewriteRequest{Paper: "The participants slept longer after the intervention."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Report == nil || res.Report.OK() {
		t.Fatalf("expected a length warning, got %+v", res.Report)
	}
}

func TestOrchestrator_Rewrite_EmptyPaper(t *testing.T) {
	o := New(&mockService{nameVal: "mock"}, OrchestratorConfig{SkipValidation: true})
	if _, err := o.Rewrite(context.Background(), internal.RewriteRequest{Paper: "  "}); err == nil {
		t.Error("expected error for empty paper")
	}
}
