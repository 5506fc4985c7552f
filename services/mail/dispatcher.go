package mail

import (
	"context"
	"sync"
	"time"

	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dispatcher sends mail in the background. Callers never wait for delivery
// and never see its outcome; failures are logged.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
	timeout time.Duration
	logger  *logging.Service

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	base   context.Context
	cancel context.CancelFunc
}

func NewDispatcher(sender Sender, perSecond float64, burst int, timeout time.Duration, logger *logging.Service) *Dispatcher {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:  sender,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
		logger:  logger,
		base:    base,
		cancel:  cancel,
	}
}

// Dispatch queues msg and returns immediately.
func (d *Dispatcher) Dispatch(msg Message) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("mail dispatcher closed, dropping message", zap.String("subject", msg.Subject))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(d.base, d.timeout)
		defer cancel()

		if err := d.limiter.Wait(ctx); err != nil {
			d.logger.Error("mail send throttled past deadline", zap.Error(err), zap.String("subject", msg.Subject))
			return
		}

		if err := d.sender.Send(ctx, msg); err != nil {
			d.logger.Error("failed to deliver email", zap.Error(err), zap.String("subject", msg.Subject))
		}
	}()
}

// Close stops accepting messages and waits for in-flight sends. When ctx
// ends first the remaining sends are cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
