// Package notify sends account lifecycle emails through the river job queue.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/riverqueue/river"
)

const (
	TemplateWelcome      = "welcome"
	TemplateCancellation = "cancellation"
)

// EmailJobArgs is the payload of an account email job.
type EmailJobArgs struct {
	Template string `json:"template"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

func (EmailJobArgs) Kind() string { return "account_email" }

// InsertFunc enqueues a job. It is set from the river client in main.
type InsertFunc func(ctx context.Context, args river.JobArgs) error

const enqueueTimeout = 5 * time.Second

// Queue turns account events into email jobs. Inserts run in the background
// so the request returns without waiting on the queue. Enqueue errors are
// logged and dropped. Call Wait before stopping the river client.
type Queue struct {
	insert InsertFunc
	log    *slog.Logger
	wg     sync.WaitGroup
}

func NewQueue(insert InsertFunc, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{insert: insert, log: log}
}

func (q *Queue) AccountCreated(ctx context.Context, email, name string) {
	q.enqueue(ctx, EmailJobArgs{Template: TemplateWelcome, Email: email, Name: name})
}

func (q *Queue) AccountDeleted(ctx context.Context, email, name string) {
	q.enqueue(ctx, EmailJobArgs{Template: TemplateCancellation, Email: email, Name: name})
}

// Wait blocks until every pending insert has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) enqueue(ctx context.Context, args EmailJobArgs) {
	// The account change is already committed; a client hanging up must not
	// drop the email.
	ctx = context.WithoutCancel(ctx)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
		defer cancel()
		if err := q.insert(ctx, args); err != nil {
			q.log.Warn("enqueue account email failed",
				slog.String("template", args.Template),
				slog.Any("error", fmt.Errorf("insert %s job: %w", args.Kind(), err)))
		}
	}()
}
