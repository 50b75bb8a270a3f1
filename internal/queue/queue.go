// Package queue provides the fire-and-forget job dispatch bridge, backed by
// a watermill gochannel. The supervisor enqueues work here; consumers are
// registered by external code and are responsible for idempotent handling,
// since dispatch is best effort and jobs with no consumer are dropped.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/DFN-master/izing-main/internal/logging"
)

// Job is one unit of queued work.
type Job struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Queue dispatches named jobs to registered consumers.
type Queue struct {
	pubsub *gochannel.GoChannel
	log    zerolog.Logger
}

// New creates a queue.
func New() *Queue {
	return &Queue{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 100,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		log: logging.ForComponent("queue"),
	}
}

// Add enqueues a job. Failures are logged, never returned: enqueueing is a
// best-effort trigger and must not block or fail the caller.
func (q *Queue) Add(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		q.log.Error().Err(err).Str("job", name).Msg("job payload not serializable")
		return
	}

	job := Job{ID: ulid.Make().String(), Name: name, Payload: data}
	raw, err := json.Marshal(job)
	if err != nil {
		q.log.Error().Err(err).Str("job", name).Msg("job not serializable")
		return
	}

	if err := q.pubsub.Publish(name, message.NewMessage(job.ID, raw)); err != nil {
		q.log.Error().Err(err).Str("job", name).Msg("job dispatch failed")
		return
	}
	q.log.Debug().Str("job", name).Str("jobId", job.ID).Msg("job dispatched")
}

// Consume registers a handler for a job name. The handler runs on a dedicated
// goroutine until ctx is cancelled or the queue is closed.
func (q *Queue) Consume(ctx context.Context, name string, handler func(Job)) error {
	msgs, err := q.pubsub.Subscribe(ctx, name)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", name, err)
	}

	go func() {
		for msg := range msgs {
			var job Job
			if err := json.Unmarshal(msg.Payload, &job); err != nil {
				q.log.Error().Err(err).Str("job", name).Msg("malformed job payload")
				msg.Ack()
				continue
			}
			handler(job)
			msg.Ack()
		}
	}()

	return nil
}

// Close shuts the queue down; pending undelivered jobs are dropped.
func (q *Queue) Close() error {
	return q.pubsub.Close()
}
