package events

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"pharmpos/m/domain"
	"pharmpos/m/internal/logging"
)

// ErrStopped is returned by Publish after Stop.
var ErrStopped = errors.New("events: bus stopped")

// Handler processes a published event.
type Handler func(ctx context.Context, e domain.Event) error

const handlerTimeout = 30 * time.Second

// Bus is an in-memory fan-out of domain events. Events are delivered
// asynchronously by a single dispatch goroutine and are not durable.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]Handler
	queue       chan domain.Event
	done        chan struct{}
	closeMu     sync.RWMutex // guards stopped and sends on queue
	stopped     bool
	startOnce   sync.Once
	stopOnce    sync.Once
	concurrency int
	log         *zap.Logger
}

// NewBus creates a bus with a buffered queue.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:        make(map[string][]Handler),
		queue:       make(chan domain.Event, 1024),
		done:        make(chan struct{}),
		concurrency: 8,
		log:         logger.With(zap.String("component", "event_bus")),
	}
}

func (b *Bus) Subscribe(eventName string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

// Start launches the dispatch loop. It drains queued events until Stop.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		b.log.Info("event_bus_started")
	})
}

// Stop closes the queue and waits for queued events to be delivered or ctx
// to expire.
func (b *Bus) Stop(ctx context.Context) error {
	var err error
	b.stopOnce.Do(func() {
		b.closeMu.Lock()
		b.stopped = true
		close(b.queue)
		b.closeMu.Unlock()

		b.startOnce.Do(func() { close(b.done) })
		select {
		case <-b.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		b.log.Info("event_bus_stopped")
	})
	return err
}

func (b *Bus) Publish(ctx context.Context, e domain.Event) error {
	if e == nil {
		return nil
	}
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.stopped {
		return ErrStopped
	}
	select {
	case b.queue <- e:
		logging.FromContextOr(ctx, b.log).Debug("event_enqueued", zap.String("event", e.EventName()))
		return nil
	case <-ctx.Done():
		logging.FromContextOr(ctx, b.log).Warn("event_enqueue_aborted",
			zap.String("event", e.EventName()),
			zap.Error(ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for e := range b.queue {
		b.fanout(ctx, e)
	}
}

func (b *Bus) fanout(ctx context.Context, e domain.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", zap.String("event", name))
		return
	}

	logger := b.log.With(zap.String("event", name))
	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(logging.ContextWithLogger(ctx, logger), handlerTimeout)
			defer cancel()
			if err := h(hctx, e); err != nil {
				logger.Warn("event_handler_error", zap.Error(err))
			}
		}()
	}

	wg.Wait()
	logger.Debug("event_fanned_out", zap.Int("handlers", len(handlers)))
}
