package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"

	"github.com/openshift-assisted/inventory-sync/internal/backend"
	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
	"github.com/openshift-assisted/inventory-sync/internal/snapshot"
	"github.com/openshift-assisted/inventory-sync/pkg/pipeline"
)

const DefaultPollInterval = 2500 * time.Millisecond

// Hooks are called from the polling goroutine.
type Hooks struct {
	// OnStatus is called after every poll with the job as seen so far.
	OnStatus func(entity.RefreshJob)
	// OnPartial is called once, the first time a host fails or the job reports a partial result.
	OnPartial func(entity.RefreshJob)
}

// Request is the body of POST /{provider}/refresh.
type Request struct {
	Force bool     `json:"force"`
	Hosts []string `json:"hosts,omitempty"`
}

type refreshResponse struct {
	JobID         string     `json:"job_id"`
	Message       string     `json:"message"`
	CooldownUntil *time.Time `json:"cooldown_until"`
}

type jobResponse struct {
	JobID         string      `json:"job_id"`
	Status        string      `json:"status"`
	Message       *string     `json:"message"`
	HostsStatus   interface{} `json:"hosts_status"`
	CooldownUntil *time.Time  `json:"cooldown_until"`
}

// Controller triggers server side refresh jobs and follows them to completion. It does not
// enforce single flight: its caller allows one active job per provider.
type Controller struct {
	api      backend.API
	clock    clockwork.Clock
	interval time.Duration
	logger   logr.Logger
}

func NewController(api backend.API, clock clockwork.Clock, interval time.Duration, logger logr.Logger) *Controller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Controller{
		api:      api,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// RequestRefresh posts a refresh intent and returns the created job id. A cooldown answer
// is returned as a common.CooldownRejected error and no job exists.
func (c *Controller) RequestRefresh(ctx context.Context, provider entity.Provider, hosts []string, force bool) (string, error) {
	resp, err := c.api.Post(ctx, fmt.Sprintf("/%s/refresh", provider), Request{Force: force, Hosts: hosts})
	if err != nil {
		// cooldowns may come back as 429
		if resp.Status == http.StatusTooManyRequests {
			cooldown, ok := parseCooldown(resp.Body)
			if ok {
				return "", cooldown
			}
		}

		return "", fmt.Errorf("failed to request %s refresh: %w", provider, err)
	}

	payload := refreshResponse{}
	if !resp.Empty {
		err = backend.Decode(resp, &payload)
		if err != nil {
			return "", fmt.Errorf("failed to read %s refresh response: %w", provider, err)
		}
	}

	if payload.Message == entity.JobMessageCooldown {
		c.logger.V(1).Info("Refresh rejected by cooldown", "provider", provider, "until", payload.CooldownUntil)

		return "", common.CooldownRejected{Until: payload.CooldownUntil}
	}

	if payload.JobID == "" {
		return "", fmt.Errorf("%w: %s refresh response carries no job id", common.ErrTransport, provider)
	}

	c.logger.V(1).Info("Refresh job created", "provider", provider, "jobID", payload.JobID, "force", force)

	return payload.JobID, nil
}

// Poll follows jobID until it reaches a terminal status. Polls are strictly sequential and
// spaced by the poll interval. A job unknown to the server is reported expired. Transient
// failures are logged and polling goes on; ctx cancellation stops it.
func (c *Controller) Poll(ctx context.Context, provider entity.Provider, jobID string, hooks Hooks) (entity.RefreshJob, error) {
	job := entity.RefreshJob{
		JobID:       jobID,
		Status:      entity.JobStatusQueued,
		HostsStatus: entity.HostsStatus{},
	}

	logger := c.logger.WithValues("provider", provider, "jobID", jobID)
	partialNotified := false

	for {
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-c.clock.After(c.interval):
		}

		observed, err := c.getJob(ctx, provider, jobID)

		switch {
		case errors.Is(err, common.ErrNotFound):
			logger.V(1).Info("Job no longer known, considering it expired")

			observed = entity.RefreshJob{Status: entity.JobStatusExpired}
		case err != nil && ctx.Err() != nil:
			return job, ctx.Err()
		case err != nil && pipeline.IsRetryable(err):
			logger.V(1).Info("Transient failure while polling job", "err", err.Error())

			continue
		case err != nil:
			return job, err
		}

		job = merge(job, observed)

		if hooks.OnStatus != nil {
			hooks.OnStatus(job)
		}

		if job.Partial() && !partialNotified {
			partialNotified = true

			logger.Info("Refresh job reports a partial result", "failingHosts", job.HostsStatus.Failing())

			if hooks.OnPartial != nil {
				hooks.OnPartial(job)
			}
		}

		if job.Status.Terminal() {
			logger.V(1).Info("Refresh job done", "status", job.Status)

			return job, nil
		}
	}
}

func (c *Controller) getJob(ctx context.Context, provider entity.Provider, jobID string) (entity.RefreshJob, error) {
	resp, err := c.api.Get(ctx, fmt.Sprintf("/%s/jobs/%s", provider, jobID), nil)
	if err != nil {
		return entity.RefreshJob{}, err
	}

	if resp.Empty {
		return entity.RefreshJob{}, pipeline.NewErrRetryableError(fmt.Errorf("%w: empty job status", common.ErrTransport))
	}

	payload := jobResponse{}

	err = backend.Decode(resp, &payload)
	if err != nil {
		return entity.RefreshJob{}, err
	}

	ret := entity.RefreshJob{
		JobID:         payload.JobID,
		Status:        entity.JobStatus(payload.Status),
		HostsStatus:   snapshot.ReadHostsStatus(payload.HostsStatus),
		CooldownUntil: payload.CooldownUntil,
	}

	if payload.Message != nil {
		ret.Message = *payload.Message
	}

	return ret, nil
}

// merge applies a poll result without letting the status regress.
func merge(job, observed entity.RefreshJob) entity.RefreshJob {
	job.Status = job.Status.Advance(observed.Status)

	if observed.Message != "" {
		job.Message = observed.Message
	}

	if len(observed.HostsStatus) > 0 {
		job.HostsStatus = observed.HostsStatus
	}

	if observed.CooldownUntil != nil {
		job.CooldownUntil = observed.CooldownUntil
	}

	return job
}

func parseCooldown(body []byte) (common.CooldownRejected, bool) {
	payload := refreshResponse{}

	err := json.Unmarshal(body, &payload)
	if err != nil || payload.Message != entity.JobMessageCooldown {
		return common.CooldownRejected{}, false
	}

	return common.CooldownRejected{Until: payload.CooldownUntil}, true
}
