package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopsence/user-service/internal/api/metrics"
	"github.com/shopsence/user-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 128
	sendTimeout    = 15 * time.Second
)

// Dispatcher delivers verification emails off the request path. Jobs are
// sharded by user id so mails for one user go out in the order they were queued.
type Dispatcher struct {
	workers []chan ports.VerificationJob
	sender  ports.VerificationSender
	log     zerolog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender ports.VerificationSender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.VerificationJob, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.VerificationJob, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// use Shutdown to let them finish the jobs already queued.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown stops accepting jobs and waits for the workers to deliver what is
// still buffered. If ctx ends first the workers are cancelled, the remaining
// jobs are dropped and ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if d.cancel != nil {
			d.cancel()
		}
		<-done
		return ctx.Err()
	}
}

// Enqueue hands job to its worker without blocking. It returns false when
// that worker's buffer is full or the dispatcher is shutting down.
func (d *Dispatcher) Enqueue(job ports.VerificationJob) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.VerificationEmailsTotal.WithLabelValues("dropped").Inc()
		return false
	}

	idx := d.shardIndex(job.UserID)
	select {
	case d.workers[idx] <- job:
		metrics.VerificationEmailsTotal.WithLabelValues("queued").Inc()
		metrics.VerificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		metrics.VerificationEmailsTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.VerificationJob) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)

	for {
		select {
		case <-ctx.Done():
			if n := len(ch); n > 0 {
				metrics.VerificationEmailsTotal.WithLabelValues("dropped").Add(float64(n))
				d.log.Warn().Int("worker_id", id).Int("pending", n).Msg("mail worker stopped with queued jobs")
			}
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			metrics.VerificationQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))
			d.deliver(ctx, id, job)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, job ports.VerificationJob) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := d.sender.SendVerification(sendCtx, job); err != nil {
		metrics.VerificationEmailsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("user_id", job.UserID).
			Int("worker_id", worker).
			Msg("verification email failed")
		return
	}
	metrics.VerificationEmailsTotal.WithLabelValues("sent").Inc()
}
