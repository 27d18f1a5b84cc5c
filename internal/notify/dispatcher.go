package notify

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sheikh-saqib/banking-ledger-system/internal/metrics"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models"
	"go.uber.org/zap"
)

// Deliverer performs one delivery attempt on a channel.
type Deliverer interface {
	Deliver(ctx context.Context, task models.NotificationTask) error
}

// SimulatedDeliverer stands in for real email/SMS/push providers during
// development. It waits the channel's fixed latency and succeeds.
type SimulatedDeliverer struct {
	Latency map[models.NotificationChannel]time.Duration
}

// NewSimulatedDeliverer returns a deliverer with the default per-channel
// latencies.
func NewSimulatedDeliverer() *SimulatedDeliverer {
	return &SimulatedDeliverer{
		Latency: map[models.NotificationChannel]time.Duration{
			models.ChannelEmail: 150 * time.Millisecond,
			models.ChannelSMS:   80 * time.Millisecond,
			models.ChannelPush:  20 * time.Millisecond,
		},
	}
}

func (d *SimulatedDeliverer) Deliver(ctx context.Context, task models.NotificationTask) error {
	select {
	case <-time.After(d.Latency[task.Channel]):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatcher delivers notification tasks on worker goroutines, decoupled
// from the transfer path. Enqueue never blocks and a delivery failure is
// only visible through Status; it never resurfaces to the transfer caller.
type Dispatcher struct {
	deliverer Deliverer
	logger    *zap.Logger

	queue   chan string
	mu      sync.Mutex
	tasks   map[string]models.NotificationTask
	workers int

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given worker count and queue
// capacity.
func NewDispatcher(deliverer Deliverer, logger *zap.Logger, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		deliverer: deliverer,
		logger:    logger,
		queue:     make(chan string, queueSize),
		tasks:     make(map[string]models.NotificationTask),
		workers:   workers,
	}
}

// Start launches the delivery workers.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		d.cancel = cancel
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker(ctx)
		}
	})
}

// Stop cancels in-flight deliveries and shuts the workers down. Tasks
// still queued are drained and fail with the cancellation reason.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		close(d.queue)
		d.wg.Wait()
	})
}

// Enqueue accepts a task for delivery and returns its ID immediately.
// A full queue fails the task on the spot rather than blocking the caller.
func (d *Dispatcher) Enqueue(task models.NotificationTask) (string, error) {
	if task.Target == "" {
		return "", models.NewValidationError("target", "must not be empty")
	}
	if !task.Channel.Valid() {
		return "", models.NewValidationError("channel", "must be email, sms or push")
	}

	task.ID = ulid.Make().String()
	task.Status = models.NotificationQueued
	task.CreatedAt = time.Now()

	d.mu.Lock()
	d.tasks[task.ID] = task
	d.mu.Unlock()

	select {
	case d.queue <- task.ID:
	default:
		d.markFailed(task.ID, "queue full")
	}
	return task.ID, nil
}

// Status returns the task's current state.
func (d *Dispatcher) Status(taskID string) (models.NotificationTask, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	task, exists := d.tasks[taskID]
	if !exists {
		return models.NotificationTask{}, models.ErrNotFound
	}
	return task, nil
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for taskID := range d.queue {
		d.mu.Lock()
		task, exists := d.tasks[taskID]
		d.mu.Unlock()
		if !exists {
			continue
		}

		// Delivery is attempted at most once; failures are recorded,
		// never retried.
		err := d.deliverer.Deliver(ctx, task)
		if err != nil {
			d.markFailed(taskID, err.Error())
			d.logger.Warn("notification delivery failed",
				zap.String("task_id", taskID),
				zap.String("channel", string(task.Channel)),
				zap.Error(err))
			continue
		}

		now := time.Now()
		d.mu.Lock()
		task = d.tasks[taskID]
		task.Status = models.NotificationDelivered
		task.DeliveredAt = &now
		d.tasks[taskID] = task
		d.mu.Unlock()
		metrics.NotificationsTotal.WithLabelValues(string(task.Channel), string(models.NotificationDelivered)).Inc()
	}
}

func (d *Dispatcher) markFailed(taskID, reason string) {
	d.mu.Lock()
	task, exists := d.tasks[taskID]
	if exists {
		task.Status = models.NotificationFailed
		task.FailureReason = reason
		d.tasks[taskID] = task
	}
	d.mu.Unlock()
	if exists {
		metrics.NotificationsTotal.WithLabelValues(string(task.Channel), string(models.NotificationFailed)).Inc()
	}
}
