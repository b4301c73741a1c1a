// Package urlsremover implements background bulk deletion of links.
// Jobs are queued through a buffered channel and applied in batches on a
// ticker, grouped by owning user so the storage can enforce ownership in a
// single pass.
package urlsremover

import (
	"context"
	"time"

	"github.com/patric-chuzhbe/tinylink/internal/logger"
	"github.com/patric-chuzhbe/tinylink/internal/models"
)

type userLinksRemover interface {
	RemoveUserLinks(ctx context.Context, usersLinks map[string][]string) error
}

type task struct {
	userID        string
	shortToDelete string
}

type URLsRemover struct {
	queue                    chan *task
	db                       userLinksRemover
	delayBetweenQueueFetches time.Duration
	errorChannel             chan error
}

func New(
	db userLinksRemover,
	channelCapacity int,
	delayBetweenQueueFetches time.Duration,
) *URLsRemover {
	return &URLsRemover{
		db:                       db,
		queue:                    make(chan *task, channelCapacity),
		delayBetweenQueueFetches: delayBetweenQueueFetches,
		errorChannel:             make(chan error, channelCapacity),
	}
}

// EnqueueJob splits a bulk deletion job into per-link tasks and queues them.
func (r *URLsRemover) EnqueueJob(job *models.URLDeleteJob) {
	for _, short := range job.URLsToDelete {
		r.queue <- &task{
			userID:        job.UserID,
			shortToDelete: short,
		}
	}
}

// ListenErrors invokes the callback for every error produced by the
// background loop.
func (r *URLsRemover) ListenErrors(callback func(error)) {
	go func() {
		for err := range r.errorChannel {
			callback(err)
		}
	}()
}

// Run starts the background loop. Accumulated tasks are flushed every
// delayBetweenQueueFetches; a canceled context flushes the remainder and
// stops the loop.
func (r *URLsRemover) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.delayBetweenQueueFetches)
		defer ticker.Stop()

		var tasks []task

		for {
			select {
			case t := <-r.queue:
				tasks = append(tasks, *t)

			case <-ticker.C:
				if r.flush(ctx, tasks) {
					tasks = nil
				}

			case <-ctx.Done():
				tasks = r.drainQueue(tasks)
				r.flush(context.Background(), tasks)
				close(r.errorChannel)
				return
			}
		}
	}()
}

// drainQueue collects the tasks still buffered in the channel so a shutdown
// flush covers jobs that were enqueued but never picked up by the loop.
func (r *URLsRemover) drainQueue(tasks []task) []task {
	for {
		select {
		case t := <-r.queue:
			tasks = append(tasks, *t)
		default:
			return tasks
		}
	}
}

func (r *URLsRemover) flush(ctx context.Context, tasks []task) bool {
	if len(tasks) == 0 {
		return true
	}

	err := r.db.RemoveUserLinks(ctx, collectLinksByUser(tasks))
	if err != nil {
		r.errorChannel <- err
		return false
	}

	logger.Log.Infof("processed removing of %d URLs", len(tasks))

	return true
}

func collectLinksByUser(tasks []task) map[string][]string {
	result := map[string][]string{}
	for _, t := range tasks {
		result[t.userID] = append(result[t.userID], t.shortToDelete)
	}

	return result
}
