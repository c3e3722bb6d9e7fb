package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Parallel Processing

type parallel[Payload any] struct {
	procs []Processing[Payload]
}

func NewParallelProcessing[Payload any](p ...Processing[Payload]) Processing[Payload] {
	return parallel[Payload]{
		procs: p,
	}
}

func (p parallel[Payload]) Process(ctx context.Context, payload Payload) error {
	group, ctx := errgroup.WithContext(ctx)

	for _, proc := range p.procs {
		processing := proc

		group.Go(func() error {
			return processing.Process(ctx, payload)
		})
	}

	return group.Wait()
}

// Panic handler Stage

type panicHandler[In, Out any] struct {
	stage Stage[In, Out]
}

func NewPanicHandlerStage[In, Out any](s Stage[In, Out]) Stage[In, Out] {
	return panicHandler[In, Out]{
		stage: s,
	}
}

func (p panicHandler[In, Out]) Run(ctx context.Context, in In) (out Out, err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = NewErrProcessingError(
				fmt.Errorf("unexpected error: %v", r),
				PanicCategory,
				nil,
			)
		}
	}()

	out, err = p.stage.Run(ctx, in)

	return
}

// Retry Stage

type retryStage[In, Out any] struct {
	stage  Stage[In, Out]
	config RetryConfig
}

type RetryConfig struct {
	MaxAttempt uint
	Delay      time.Duration
}

func NewRetryStage[In, Out any](s Stage[In, Out], config RetryConfig) Stage[In, Out] {
	return retryStage[In, Out]{
		stage:  s,
		config: config,
	}
}

func (p retryStage[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	return retry.DoWithData(
		func() (Out, error) {
			return p.stage.Run(ctx, in)
		},
		retry.Context(ctx),
		retry.Attempts(p.config.MaxAttempt),
		retry.RetryIf(IsRetryable),
		retry.Delay(p.config.Delay),
		retry.LastErrorOnly(true),
	)
}

// Retry Processing

type retryProcessing[Payload any] struct {
	processing Processing[Payload]
	config     RetryConfig
}

func NewRetryProcessing[Payload any](p Processing[Payload], config RetryConfig) Processing[Payload] {
	return retryProcessing[Payload]{
		processing: p,
		config:     config,
	}
}

func (p retryProcessing[Payload]) Process(ctx context.Context, payload Payload) error {
	return retry.Do(
		func() error {
			return p.processing.Process(ctx, payload)
		},
		retry.Context(ctx),
		retry.Attempts(p.config.MaxAttempt),
		retry.RetryIf(IsRetryable),
		retry.Delay(p.config.Delay),
		retry.LastErrorOnly(true),
	)
}

// Duration Metric Stage

type MetricsConfig struct {
	Namespace string
	Buckets   []float64
}

type durationDecorator[In, Out any] struct {
	stage     Stage[In, Out]
	histogram *prometheus.HistogramVec
	clock     clockwork.Clock
}

func NewDurationMetricsDecoratorStage[In, Out any](s Stage[In, Out], registry prometheus.Registerer, clock clockwork.Clock, config MetricsConfig) (Stage[In, Out], error) {
	ret := durationDecorator[In, Out]{
		stage: s,
		clock: clock,
	}

	buckets := config.Buckets
	if len(buckets) == 0 {
		buckets = []float64{10, 20, 50, 100, 200, 500, 1000, 2000, 5000}
	}

	opts := prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Name:      "processing_duration_milliseconds",
		Help:      "Time taken to process payload.",
		Buckets:   buckets,
	}

	histogram := prometheus.NewHistogramVec(opts, []string{"failed"})

	err := registry.Register(histogram)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret.histogram = histogram

	return ret, nil
}

func (p durationDecorator[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	start := p.clock.Now()

	out, err := p.stage.Run(ctx, in)

	duration := p.clock.Since(start)
	durationMilli := float64(duration/time.Millisecond) + float64(duration%time.Millisecond)/float64(time.Millisecond)

	p.histogram.WithLabelValues(fmt.Sprintf("%v", err != nil)).Observe(durationMilli)

	return out, err
}

// Error Metric Processing

type errorCountProcessing struct {
	counter *prometheus.CounterVec
}

func NewErrorCountProcessing(registry prometheus.Registerer, config MetricsConfig) (Processing[ErrProcessingError], error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "processing_error_total",
		Help:      "Error counter by category and source.",
	}, []string{"category", "source"})

	err := registry.Register(counter)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	ret := errorCountProcessing{
		counter: counter,
	}

	return ret, nil
}

func (p errorCountProcessing) Process(ctx context.Context, processingError ErrProcessingError) error {
	category := processingError.Category
	if category == "" {
		category = "empty_category"
	}

	p.counter.WithLabelValues(category, processingError.Source).Inc()

	return nil
}

// Log Processing

type logProcessing struct {
	logger logr.Logger
}

// NewLogProcessing dumps every processing error with its context. It never fails.
func NewLogProcessing(logger logr.Logger) Processing[ErrProcessingError] {
	return logProcessing{logger: logger}
}

func (p logProcessing) Process(ctx context.Context, err ErrProcessingError) error {
	keys := make([]string, 0, len(err.AdditionalInputs))
	for _, input := range err.AdditionalInputs {
		keys = append(keys, input.Source+"/"+input.Key)
	}

	p.logger.Error(err,
		"Processing failed",
		"category", err.Category,
		"source", err.Source,
		"additionalInputs", keys,
	)

	return nil
}
