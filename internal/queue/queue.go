// Package queue provides the async job dispatcher used for audit logging,
// email delivery, KYC verification and payment follow-ups. Production runs on
// a redis list with a worker pool; tests run jobs inline.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Job names.
const (
	JobAuditLogCreate   = "audit.log.create"
	JobAuditLogUpdate   = "audit.log.update"
	JobActivityReport   = "activity.report"
	JobEmailSend        = "email.send"
	JobKYCVerify        = "kyc.verify"
	JobPaymentRecipient = "payment.recipient"
	JobPaymentTransfer  = "payment.transfer"
)

// Job is one unit of background work. Payload is JSON the handler decodes.
type Job struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes one job. Returned errors are logged; delivery is
// at-least-once, so handlers must tolerate replays.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher enqueues background jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, payload any) error
}

// Registry maps job names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a job name. Last registration wins.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) handler(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Run executes the named job's handler.
func (r *Registry) Run(ctx context.Context, job Job) error {
	h, ok := r.handler(job.Name)
	if !ok {
		return fmt.Errorf("queue: no handler for job %q", job.Name)
	}
	return h(ctx, job.Payload)
}

// RedisQueue is a redis-list backed Dispatcher with a blocking worker pool.
type RedisQueue struct {
	client   *redis.Client
	registry *Registry
	key      string
}

// NewRedisQueue builds the production queue. prefix namespaces the list key.
func NewRedisQueue(client *redis.Client, registry *Registry, prefix string) *RedisQueue {
	return &RedisQueue{client: client, registry: registry, key: prefix + ":jobs"}
}

// Dispatch pushes a job onto the list.
func (q *RedisQueue) Dispatch(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("queue: marshal payload for %s: %w", name, err)
	}
	raw, err := json.Marshal(Job{Name: name, Payload: data})
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// StartWorkers launches n workers that pop and run jobs until ctx ends.
func (q *RedisQueue) StartWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go q.worker(ctx, i)
	}
}

func (q *RedisQueue) worker(ctx context.Context, id int) {
	log := logrus.WithField("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Warnf("pop job: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			log.Warnf("decode job: %v", err)
			continue
		}
		if err := q.registry.Run(ctx, job); err != nil {
			log.WithField("job", job.Name).Errorf("job failed: %v", err)
		}
	}
}

// InlineQueue runs jobs synchronously at dispatch time. Used in tests and
// when redis is unavailable.
type InlineQueue struct {
	registry *Registry
}

func NewInlineQueue(registry *Registry) *InlineQueue {
	return &InlineQueue{registry: registry}
}

func (q *InlineQueue) Dispatch(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := q.registry.Run(ctx, Job{Name: name, Payload: data}); err != nil {
		logrus.WithField("job", name).Errorf("job failed: %v", err)
	}
	return nil
}
