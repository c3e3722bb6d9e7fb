package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"
	"github.com/prometheus/client_golang/prometheus"
	promdto "github.com/prometheus/client_model/go"
	"go.uber.org/mock/gomock"

	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
	"github.com/openshift-assisted/inventory-sync/pkg/pipeline/mock"
)

// Helper

type request struct {
	Provider string
}

var (
	vmware = request{Provider: "vmware"}

	errDown   = errors.New("backend down")
	transient = pipeline.NewRetryableErrProcessingError(errDown, "transport", nil)
)

// timedStage advances the fake clock by the duration asked for the provider.
func timedStage(clock clockwork.FakeClock, durations map[string]time.Duration, err error) pipeline.Stage[request, int] {
	return pipeline.StageFunc[request, int](func(_ context.Context, r request) (int, error) {
		clock.Advance(durations[r.Provider])

		return 1, err
	})
}

// find returns the metric holding the label value, nil if none does.
func find(registry *prometheus.Registry, label, value string) *promdto.Metric {
	families, err := registry.Gather()
	Expect(err).NotTo(HaveOccurred())

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return metric
				}
			}
		}
	}

	return nil
}

func cumulative(h *promdto.Histogram) map[float64]uint64 {
	ret := map[float64]uint64{}
	for _, bucket := range h.GetBucket() {
		ret[bucket.GetUpperBound()] = bucket.GetCumulativeCount()
	}

	return ret
}

// Test

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline test suite")
}

var _ = Describe("Parallel processing", func() {
	var ctrl *gomock.Controller
	var first, second *mock.MockProcessing[request]

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		first = mock.NewMockProcessing[request](ctrl)
		second = mock.NewMockProcessing[request](ctrl)
	})

	DescribeTable("should run every processing and report a failure",
		func(firstErr, secondErr error, expected types.GomegaMatcher) {
			first.EXPECT().Process(gomock.Any(), vmware).Return(firstErr).Times(1)
			second.EXPECT().Process(gomock.Any(), vmware).Return(secondErr).Times(1)

			err := pipeline.NewParallelProcessing[request](first, second).Process(context.TODO(), vmware)
			Expect(err).To(expected)
		},
		Entry("when both succeed", nil, nil, Succeed()),
		Entry("when the first fails with a retryable error", transient, nil, MatchError(pipeline.ErrRetryableError)),
		Entry("when the second fails", nil, errDown, MatchError(errDown)),
	)

	It("should keep the category of a processing error", func(ctx SpecContext) {
		first.EXPECT().Process(gomock.Any(), vmware).Return(transient)
		second.EXPECT().Process(gomock.Any(), vmware).Return(nil)

		err := pipeline.NewParallelProcessing[request](first, second).Process(ctx, vmware)

		processingError := pipeline.ErrProcessingError{}
		Expect(errors.As(err, &processingError)).To(BeTrue())
		Expect(processingError.Category).To(Equal("transport"))
	})
})

var _ = Describe("Panic handler stage", func() {
	It("should turn a panic into a processing error", func(ctx SpecContext) {
		stage := pipeline.NewPanicHandlerStage[request, int](pipeline.StageFunc[request, int](func(_ context.Context, r request) (int, error) {
			panic("nil snapshot for " + r.Provider)
		}))

		_, err := stage.Run(ctx, vmware)
		Expect(err).To(MatchError(ContainSubstring("nil snapshot for vmware")))

		processingError := pipeline.ErrProcessingError{}
		Expect(errors.As(err, &processingError)).To(BeTrue())
		Expect(processingError.Category).To(Equal(pipeline.PanicCategory))
	})

	It("should pass results and errors through", func(ctx SpecContext) {
		ctrl := gomock.NewController(GinkgoT())
		inner := mock.NewMockStage[request, int](ctrl)
		stage := pipeline.NewPanicHandlerStage[request, int](inner)

		gomock.InOrder(
			inner.EXPECT().Run(gomock.Any(), vmware).Return(42, nil),
			inner.EXPECT().Run(gomock.Any(), vmware).Return(0, errDown),
		)

		out, err := stage.Run(ctx, vmware)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(42))

		_, err = stage.Run(ctx, vmware)
		Expect(err).To(MatchError(errDown))
	})
})

var _ = Describe("Retry stage", func() {
	var ctrl *gomock.Controller
	var inner *mock.MockStage[request, int]
	var stage pipeline.Stage[request, int]

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		inner = mock.NewMockStage[request, int](ctrl)
		stage = pipeline.NewRetryStage[request, int](inner, pipeline.RetryConfig{MaxAttempt: 3, Delay: 10 * time.Millisecond})
	})

	It("should return the result of the first successful attempt", func(ctx SpecContext) {
		gomock.InOrder(
			inner.EXPECT().Run(gomock.Any(), vmware).Return(0, transient),
			inner.EXPECT().Run(gomock.Any(), vmware).Return(0, fmt.Errorf("fetching vmware: %w", transient)),
			inner.EXPECT().Run(gomock.Any(), vmware).Return(2, nil),
		)

		out, err := stage.Run(ctx, vmware)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(2))
	})

	It("should not retry other errors", func(ctx SpecContext) {
		inner.EXPECT().Run(gomock.Any(), vmware).Return(0, errDown).Times(1)

		_, err := stage.Run(ctx, vmware)
		Expect(err).To(MatchError(errDown))
	})

	It("should give up after the last attempt", func(ctx SpecContext) {
		inner.EXPECT().Run(gomock.Any(), vmware).Return(0, transient).Times(3)

		_, err := stage.Run(ctx, vmware)
		Expect(err).To(MatchError(pipeline.ErrRetryableError))

		processingError := pipeline.ErrProcessingError{}
		Expect(errors.As(err, &processingError)).To(BeTrue())
		Expect(processingError.Category).To(Equal("transport"))
	})
})

var _ = Describe("Retry processing", func() {
	var ctrl *gomock.Controller
	var inner *mock.MockProcessing[request]
	var processing pipeline.Processing[request]

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		inner = mock.NewMockProcessing[request](ctrl)
		processing = pipeline.NewRetryProcessing[request](inner, pipeline.RetryConfig{MaxAttempt: 3, Delay: 10 * time.Millisecond})
	})

	It("should retry retryable errors", func(ctx SpecContext) {
		gomock.InOrder(
			inner.EXPECT().Process(gomock.Any(), vmware).Return(transient).Times(2),
			inner.EXPECT().Process(gomock.Any(), vmware).Return(nil).Times(1),
		)

		Expect(processing.Process(ctx, vmware)).To(Succeed())
	})

	It("should give up after the last attempt", func(ctx SpecContext) {
		inner.EXPECT().Process(gomock.Any(), vmware).Return(transient).Times(3)

		Expect(processing.Process(ctx, vmware)).To(MatchError(pipeline.ErrRetryableError))
	})

	It("should not retry other errors", func(ctx SpecContext) {
		inner.EXPECT().Process(gomock.Any(), vmware).Return(errDown).Times(1)

		Expect(processing.Process(ctx, vmware)).To(MatchError(errDown))
	})
})

var _ = Describe("Duration metrics stage", func() {
	var registry *prometheus.Registry
	var clock clockwork.FakeClock

	durations := map[string]time.Duration{
		"vmware": 5 * time.Millisecond,
		"hyperv": 50 * time.Millisecond,
		"azure":  500 * time.Millisecond,
	}

	BeforeEach(func() {
		registry = prometheus.NewPedanticRegistry()
		clock = clockwork.NewFakeClock()
	})

	decorate := func(err error) pipeline.Stage[request, int] {
		ret, createErr := pipeline.NewDurationMetricsDecoratorStage[request, int](timedStage(clock, durations, err), registry, clock,
			pipeline.MetricsConfig{Namespace: "test", Buckets: []float64{20, 200, 2000}},
		)
		Expect(createErr).NotTo(HaveOccurred())

		return ret
	}

	It("should observe successful fetches in milliseconds", func(ctx SpecContext) {
		stage := decorate(nil)

		for _, provider := range []string{"vmware", "vmware", "hyperv", "azure"} {
			_, err := stage.Run(ctx, request{Provider: provider})
			Expect(err).NotTo(HaveOccurred())
		}

		metric := find(registry, "failed", "false")
		Expect(metric).NotTo(BeNil())
		Expect(metric.GetHistogram().GetSampleCount()).To(BeEquivalentTo(4))
		Expect(cumulative(metric.GetHistogram())).To(Equal(map[float64]uint64{20: 2, 200: 3, 2000: 4}))
		Expect(find(registry, "failed", "true")).To(BeNil())
	})

	It("should observe failed fetches apart", func(ctx SpecContext) {
		_, err := decorate(errDown).Run(ctx, request{Provider: "hyperv"})
		Expect(err).To(MatchError(errDown))

		metric := find(registry, "failed", "true")
		Expect(metric).NotTo(BeNil())
		Expect(cumulative(metric.GetHistogram())).To(Equal(map[float64]uint64{20: 0, 200: 1, 2000: 1}))
	})

	It("should register once per registry", func() {
		decorate(nil)

		_, err := pipeline.NewDurationMetricsDecoratorStage[request, int](timedStage(clock, durations, nil), registry, clock, pipeline.MetricsConfig{Namespace: "test"})
		Expect(err).To(MatchError(ContainSubstring("failed to register metric")))
	})
})

var _ = Describe("Error count processing", func() {
	It("should count errors by category and source", func(ctx SpecContext) {
		registry := prometheus.NewPedanticRegistry()

		processing, err := pipeline.NewErrorCountProcessing(registry, pipeline.MetricsConfig{Namespace: "test"})
		Expect(err).NotTo(HaveOccurred())

		for _, pErr := range []pipeline.ErrProcessingError{
			pipeline.NewErrProcessingError(errDown, "transport", nil).WithSource("vmware"),
			pipeline.NewErrProcessingError(errDown, "transport", nil).WithSource("vmware"),
			pipeline.NewErrProcessingError(errDown, "normalization", nil).WithSource("cedia"),
			pipeline.NewErrProcessingError(errDown, "", nil),
		} {
			Expect(processing.Process(ctx, pErr)).To(Succeed())
		}

		Expect(find(registry, "category", "transport").GetCounter().GetValue()).To(BeEquivalentTo(2))
		Expect(find(registry, "category", "normalization").GetCounter().GetValue()).To(BeEquivalentTo(1))
		Expect(find(registry, "source", "cedia")).NotTo(BeNil())
		Expect(find(registry, "category", "empty_category").GetCounter().GetValue()).To(BeEquivalentTo(1))
	})
})

var _ = Describe("Log processing", func() {
	It("should never fail", func(ctx SpecContext) {
		processing := pipeline.NewLogProcessing(GinkgoLogr)

		pErr := pipeline.NewErrProcessingError(errDown, "normalization", []pipeline.Input{{Source: "cedia", Key: "vm-1"}}).WithSource("cedia")
		Expect(processing.Process(ctx, pErr)).To(Succeed())
	})
})
