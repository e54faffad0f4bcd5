// Package orchestrator runs a paper through the model rewrite: protect
// citations and equations, split into chunks, rewrite the chunks with
// bounded concurrency, put the pieces back in order and restore the
// protected spans.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/peredit/internal"
	"github.com/valpere/peredit/internal/chunker"
	"github.com/valpere/peredit/internal/placeholder"
	"github.com/valpere/peredit/internal/rewriter"
	"github.com/valpere/peredit/internal/store"
	"github.com/valpere/peredit/internal/validator"
)

const (
	DefaultConcurrency = 2
	DefaultTimeout     = 120 * time.Second
)

type OrchestratorConfig struct {
	// MaxChars bounds a chunk in runes; ≤ 0 uses chunker.DefaultMaxChars.
	MaxChars int
	// Concurrency bounds the number of model calls in flight.
	Concurrency int
	// Timeout applies to each chunk's model call.
	Timeout time.Duration
	// LengthTolerance is passed to the validator (0 = ±10%).
	LengthTolerance float64
	SkipValidation  bool
	// NoProtect sends citations, equations and references to the model as is.
	NoProtect bool
	// NoCache disables the rewrite memory lookup (results are still saved).
	NoCache bool
}

type OrchestratorResult struct {
	Text      string
	Chunks    int
	CacheHits int
	// MissingMarkers lists protected spans the model dropped; they cannot be
	// put back and are reported as warnings.
	MissingMarkers []string
	Report         *validator.Report
	Warnings       []string
	Latency        time.Duration
}

type Orchestrator struct {
	service   rewriter.Service
	store     *store.Store
	validator *validator.Validator
	config    OrchestratorConfig
	logger    *zap.Logger
}

type Option func(*Orchestrator)

// WithStore enables the rewrite memory and the job log.
func WithStore(s *store.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(service rewriter.Service, config OrchestratorConfig, opts ...Option) *Orchestrator {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxChars <= 0 {
		config.MaxChars = chunker.DefaultMaxChars
	}

	o := &Orchestrator{
		service: service,
		config:  config,
		logger:  zap.NewNop(),
	}
	if !config.SkipValidation {
		o.validator = validator.New(config.LengthTolerance)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Rewrite sends req.Paper through the model. Chunks are rewritten
// concurrently and reassembled in source order; the first failing chunk
// cancels the others and its error is returned wrapped.
func (o *Orchestrator) Rewrite(ctx context.Context, req internal.RewriteRequest) (*OrchestratorResult, error) {
	start := time.Now()
	log := o.logger.With(zap.String("request_id", req.ID), zap.String("service", o.service.Name()))

	if o.store != nil && req.ID != "" {
		if err := o.store.SaveRequest(ctx, req); err != nil {
			log.Warn("failed to save request", zap.Error(err))
		}
	}

	text := req.Paper
	var originals []string
	if !o.config.NoProtect {
		text, originals = placeholder.Protect(text)
	}
	var instructions string
	if len(originals) > 0 {
		instructions = placeholder.InstructionHint()
	}

	pieces := chunker.Split(text, o.config.MaxChars)
	if len(pieces) == 0 {
		return nil, errors.New("paper is empty")
	}
	log.Debug("rewriting paper",
		zap.Int("chunks", len(pieces)),
		zap.Int("protected", len(originals)),
		zap.Int("concurrency", o.config.Concurrency))

	out := make([]string, len(pieces))
	hits := make([]bool, len(pieces))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Concurrency)
	for i, piece := range pieces {
		g.Go(func() error {
			rewritten, hit, err := o.rewriteChunk(gctx, req.ID, i, piece.Text, instructions)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(pieces), err)
			}
			out[i], hits[i] = rewritten, hit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("rewrite failed", zap.Error(err))
		return nil, err
	}

	result := &OrchestratorResult{Chunks: len(pieces)}
	for _, hit := range hits {
		if hit {
			result.CacheHits++
		}
	}

	joined := chunker.Join(pieces, out)
	for _, idx := range placeholder.Validate(joined, originals) {
		result.MissingMarkers = append(result.MissingMarkers, originals[idx])
	}
	if n := len(result.MissingMarkers); n > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("model dropped %d protected span(s)", n))
	}
	result.Text = placeholder.Restore(joined, originals)

	if o.validator != nil {
		report, err := o.validator.Check(req.Paper, result.Text)
		if err != nil {
			return nil, fmt.Errorf("rewrite rejected: %w", err)
		}
		result.Report = report
		result.Warnings = append(result.Warnings, report.Warnings...)
	}

	result.Latency = time.Since(start)
	log.Info("paper rewritten",
		zap.Int("chunks", result.Chunks),
		zap.Int("cache_hits", result.CacheHits),
		zap.Strings("warnings", result.Warnings),
		zap.Duration("latency", result.Latency))

	return result, nil
}

func (o *Orchestrator) rewriteChunk(ctx context.Context, requestID string, idx int, text, instructions string) (string, bool, error) {
	model := o.service.Model()

	if o.store != nil && !o.config.NoCache {
		cached, ok, err := o.store.GetCachedRewrite(ctx, text, model)
		if err != nil {
			o.logger.Warn("rewrite memory lookup failed", zap.Error(err))
		} else if ok {
			return cached, true, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	res, err := o.service.Rewrite(callCtx, rewriter.RewriteRequest{Text: text, Instructions: instructions})
	o.record(ctx, requestID, idx, res)
	if err != nil {
		return "", false, err
	}

	if o.store != nil {
		if err := o.store.SaveToMemory(ctx, text, model, res.RewrittenText, res.ServiceName); err != nil {
			o.logger.Warn("failed to save rewrite memory", zap.Error(err))
		}
	}
	return res.RewrittenText, false, nil
}

func (o *Orchestrator) record(ctx context.Context, requestID string, idx int, res *rewriter.ServiceResult) {
	if o.store == nil || requestID == "" || res == nil {
		return
	}
	err := o.store.SaveResult(context.WithoutCancel(ctx), requestID, store.ChunkResult{
		ChunkIdx:      idx,
		ServiceName:   res.ServiceName,
		Model:         o.service.Model(),
		RewrittenText: res.RewrittenText,
		Latency:       res.Latency,
		Error:         res.Error,
	})
	if err != nil {
		o.logger.Warn("failed to save chunk result", zap.Error(err))
	}
}
