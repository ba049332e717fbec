package container

import (
	"github.com/samber/do"
	"github.com/serroba/ratelimit-go/internal/messaging"
	"github.com/serroba/ratelimit-go/internal/metrics"
	"github.com/serroba/ratelimit-go/internal/policy"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"github.com/serroba/ratelimit-go/internal/requestlog"
	"go.uber.org/zap"
)

// MetricsPackage provides the Prometheus decision recorder.
func MetricsPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*metrics.Recorder, error) {
		opts := do.MustInvoke[*Options](i)

		return metrics.NewRecorder(opts.StoreType), nil
	})
}

// RateLimitPackage provides the orchestrator and, when a logs directory is
// configured, the request log.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*requestlog.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return requestlog.New(opts.LogsDirectory)
	})

	do.Provide(i, newOrchestrator)
}

func newOrchestrator(i *do.Injector) (*ratelimit.Orchestrator, error) {
	opts := do.MustInvoke[*Options](i)
	logger := do.MustInvoke[*zap.Logger](i)
	store, err := do.Invoke[ratelimit.Store](i)
	if err != nil {
		return nil, err
	}

	publish, err := do.Invoke[messaging.Publish[ratelimit.Event]](i)
	if err != nil {
		return nil, err
	}

	recorder, err := do.Invoke[*metrics.Recorder](i)
	if err != nil {
		return nil, err
	}

	quotaFn, skip, err := quotaPolicy(opts)
	if err != nil {
		return nil, err
	}

	options := ratelimit.Options{
		Skip:               skip,
		SkipFailedRequests: opts.SkipFailedRequests,
		Message:            opts.Message,
		StatusCode:         opts.StatusCode,
		Dialect:            ratelimit.Dialect(opts.Dialect),
		QuotaFn:            ratelimit.OperationQuota(quotaFn),
		Metrics:            recorder,
		Publish:            publish,
	}

	if opts.KeyHeader != "" {
		options.KeyFn = ratelimit.HeaderKey(opts.KeyHeader)
	}

	if opts.LogsDirectory != "" {
		requestLog, err := do.Invoke[*requestlog.Logger](i)
		if err != nil {
			return nil, err
		}

		options.RequestLog = requestLog
	}

	return ratelimit.NewOrchestrator(store, options, logger)
}

// quotaPolicy resolves the fallback quota and skip list, from the policy file
// when one is configured and from the flat options otherwise.
func quotaPolicy(opts *Options) (ratelimit.QuotaFunc, []string, error) {
	skip := opts.SkipKeys()

	if opts.PolicyFile != "" {
		p, err := policy.Load(opts.PolicyFile)
		if err != nil {
			return nil, nil, err
		}

		return p.QuotaFunc(), append(skip, p.Skip...), nil
	}

	quota := ratelimit.Quota{Max: int64(opts.Max), Window: int64(opts.Window)}
	if err := quota.Validate(); err != nil {
		return nil, nil, ratelimit.NewConfigError("quota", err)
	}

	return ratelimit.StaticQuota(quota), skip, nil
}
