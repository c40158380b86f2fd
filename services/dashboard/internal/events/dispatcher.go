package events

import (
	"context"
	"sync"
	"time"

	"BileePlatform/pkg/logger"
)

// Dispatcher публикует события в фоне, чтобы ожидание подтверждения брокера
// не задерживало ответ мерчанту. Ошибки только логируются.
type Dispatcher struct {
	publisher Publisher
	logger    logger.Logger
	timeout   time.Duration
	queue     chan Event

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher создает диспетчер с очередью размера buffer
func NewDispatcher(publisher Publisher, buffer int, timeout time.Duration, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		logger:    log,
		timeout:   timeout,
		queue:     make(chan Event, buffer),
		done:      make(chan struct{}),
	}
}

// Emit ставит событие в очередь. При переполнении событие отбрасывается.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.queue <- event:
	default:
		d.logger.Warn("очередь событий аудита переполнена, событие отброшено",
			logger.CtxField(ctx),
			logger.String("type", event.Type))
	}
}

// Run публикует события из очереди до вызова Close или отмены контекста
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			d.drain()
			return
		case event := <-d.queue:
			d.publish(ctx, event)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event Event) {
	pubCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.publisher.Publish(pubCtx, event); err != nil {
		d.logger.Error("не удалось опубликовать событие аудита",
			logger.String("type", event.Type),
			logger.String("event_id", event.ID),
			logger.String("trace_id", event.TraceID),
			logger.Error(err))
		return
	}
	d.logger.Debug("событие аудита опубликовано",
		logger.String("type", event.Type),
		logger.String("event_id", event.ID))
}

// Close прекращает прием событий. Run публикует оставшиеся в очереди и завершается.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}
