package refresh

import (
	"context"
	"sync"

	"github.com/openshift-assisted/inventory-sync/internal/domain/entity"
)

// Task is a background refresh: request then poll. Cancel must be called when its owner
// goes away; it is safe to call more than once.
type Task struct {
	Provider entity.Provider

	cancel context.CancelFunc
	done   chan struct{}

	lock sync.Mutex
	job  entity.RefreshJob
	err  error
}

// Start requests a refresh and polls it in the background.
func (c *Controller) Start(ctx context.Context, provider entity.Provider, hosts []string, force bool, hooks Hooks) *Task {
	ctx, cancel := context.WithCancel(ctx)

	task := &Task{
		Provider: provider,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(task.done)
		defer cancel()

		jobID, err := c.RequestRefresh(ctx, provider, hosts, force)
		if err != nil {
			task.finish(entity.RefreshJob{}, err)

			return
		}

		task.finish(entity.RefreshJob{JobID: jobID, Status: entity.JobStatusQueued}, nil)

		job, err := c.Poll(ctx, provider, jobID, hooks)
		task.finish(job, err)
	}()

	return task
}

func (t *Task) finish(job entity.RefreshJob, err error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.job = job
	t.err = err
}

func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed once the task stopped.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task stopped or ctx is done.
func (t *Task) Wait(ctx context.Context) (entity.RefreshJob, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		return entity.RefreshJob{}, ctx.Err()
	}

	return t.Result()
}

// Result returns the last known job and error.
func (t *Task) Result() (entity.RefreshJob, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.job, t.err
}
