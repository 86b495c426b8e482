package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/history"
	"github.com/user/cyberpulse/pkg/logging"
	"github.com/user/cyberpulse/pkg/meter"
	"github.com/user/cyberpulse/pkg/metrics"
)

// SourceDefault names the built-in crosswalk in reports and history
const SourceDefault = "default"

// Upstream is the metered API: one gate call per batch and the optional
// crosswalk download. *meter.Client implements it.
type Upstream interface {
	Gate(ctx context.Context) error
	FetchCrosswalk(ctx context.Context, url string) (engine.Crosswalk, error)
}

// Recorder persists finished runs. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, r history.Run) (string, error)
}

// Batch is one evaluation request
type Batch struct {
	Items  []engine.Item
	Policy engine.FailurePolicy
	// CrosswalkURL, when set, is fetched once and replaces Crosswalk
	CrosswalkURL string
	// Crosswalk is the table used when no URL is given; nil means the default
	Crosswalk       engine.Crosswalk
	CrosswalkSource string
}

// Report is what a finished (or aborted) batch produced
type Report struct {
	RunID           string          `json:"run_id"`
	CrosswalkSource string          `json:"crosswalk_source"`
	Policy          string          `json:"policy"`
	Outputs         []engine.Output `json:"outputs"`
	Duration        time.Duration   `json:"-"`
	Recorded        bool            `json:"recorded"`
}

// Runner wires the upstream calls, the engine and the optional sinks
type Runner struct {
	upstream Upstream
	metrics  *metrics.Collector
	recorder Recorder
	log      *slog.Logger
}

type Option func(*Runner)

func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = c }
}

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

func New(upstream Upstream, opts ...Option) *Runner {
	r := &Runner{upstream: upstream, log: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "runner")
	return r
}

// Run gates the batch, resolves the crosswalk once and evaluates every item
// in order. Gate and crosswalk failures are *meter.OperationError and stop
// the batch before any item; an aborted item returns the outputs so far
// together with an *engine.ItemError.
func (r *Runner) Run(ctx context.Context, b Batch) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.NewString(), Policy: b.Policy.String()}
	log := r.log.With("run_id", rep.RunID)

	err := r.upstream.Gate(ctx)
	r.observeUpstream(meter.OpGate, err)
	if err != nil {
		return rep, err
	}

	cw, source, err := r.resolveCrosswalk(ctx, b)
	if err != nil {
		return rep, err
	}
	rep.CrosswalkSource = source

	outputs, err := engine.NewEvaluator(cw, b.Policy).EvaluateBatch(b.Items)
	rep.Outputs = outputs
	rep.Duration = time.Since(start)
	r.logOutputs(log, outputs)
	if r.metrics != nil {
		r.metrics.ObserveOutputs(outputs)
		r.metrics.ObserveBatch(rep.Duration)
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.ObserveItemFailure()
		}
		log.Error("batch aborted", "error", err, "evaluated", len(outputs))
		return rep, err
	}

	if r.recorder != nil {
		if _, err := r.recorder.Record(ctx, history.Run{
			ID:              rep.RunID,
			CreatedAt:       start,
			CrosswalkSource: source,
			Policy:          rep.Policy,
			Outputs:         outputs,
		}); err != nil {
			return rep, err
		}
		rep.Recorded = true
	}

	log.Info("batch evaluated",
		"items", len(b.Items),
		"crosswalk", source,
		"duration", rep.Duration,
	)
	return rep, nil
}

func (r *Runner) resolveCrosswalk(ctx context.Context, b Batch) (engine.Crosswalk, string, error) {
	fallback, source := b.Crosswalk, b.CrosswalkSource
	if source == "" {
		source = SourceDefault
	}
	if b.CrosswalkURL == "" {
		return fallback, source, nil
	}

	cw, err := r.upstream.FetchCrosswalk(ctx, b.CrosswalkURL)
	r.observeUpstream(meter.OpCrosswalk, err)
	if err != nil {
		return nil, "", err
	}
	if cw == nil {
		return fallback, source, nil
	}
	return cw, b.CrosswalkURL, nil
}

func (r *Runner) observeUpstream(op string, err error) {
	if r.metrics != nil {
		r.metrics.ObserveUpstream(op, err)
	}
}

func (r *Runner) logOutputs(log *slog.Logger, outputs []engine.Output) {
	for _, o := range outputs {
		if o.Failed() {
			log.Warn("item failed, continuing", "item", o.PairedItem, "error", o.Error)
			continue
		}
		log.Debug("item evaluated",
			"item", o.PairedItem,
			"categories", o.Result.Categories,
			"score", o.Result.Score,
			"status", o.Result.Status,
		)
	}
}
