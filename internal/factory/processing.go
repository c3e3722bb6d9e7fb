package factory

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openshift-assisted/inventory-sync/internal/config"
	"github.com/openshift-assisted/inventory-sync/internal/provider"
	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

const Namespace = "inventory_sync"

/*
 * DecorateFetch decorates the snapshot fetch as follow:
 *
 * panic --> duration --> retry --> main (back end request)
 */
func DecorateFetch(mainStage provider.FetchStage, registry prometheus.Registerer, conf config.Retry) (provider.FetchStage, error) {
	ret := mainStage

	ret = pipeline.NewRetryStage(ret, retryConfig(conf))

	ret, err := pipeline.NewDurationMetricsDecoratorStage(ret, registry, clockwork.NewRealClock(), pipeline.MetricsConfig{Namespace: Namespace + "_fetch"})
	if err != nil {
		return nil, fmt.Errorf("failed to create duration metrics stage: %w", err)
	}

	ret = pipeline.NewPanicHandlerStage(ret)

	return ret, nil
}

/*
 * DecorateErrorProcessing decorates the error processing as follow:
 *
 *				---> retry --> main (dlq), when configured
 *	parallel ---|---> error count
 *				---> log
 */
func DecorateErrorProcessing(mainProcessing pipeline.ErrorProcessing, registry prometheus.Registerer, logger logr.Logger, conf config.Retry) (pipeline.ErrorProcessing, error) {
	errorCount, err := pipeline.NewErrorCountProcessing(registry, pipeline.MetricsConfig{Namespace: Namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to create error count processing: %w", err)
	}

	procs := []pipeline.Processing[pipeline.ErrProcessingError]{
		errorCount,
		pipeline.NewLogProcessing(logger),
	}

	if mainProcessing != nil {
		procs = append(procs, pipeline.NewRetryProcessing[pipeline.ErrProcessingError](mainProcessing, retryConfig(conf)))
	}

	return pipeline.NewParallelProcessing(procs...), nil
}

// retryConfig never returns 0 attempts, which means unlimited retries.
func retryConfig(conf config.Retry) pipeline.RetryConfig {
	ret := pipeline.RetryConfig{MaxAttempt: conf.MaxAttempt, Delay: conf.Delay}
	if ret.MaxAttempt == 0 {
		ret.MaxAttempt = 1
	}

	return ret
}
