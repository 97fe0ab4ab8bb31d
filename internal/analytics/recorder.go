package analytics

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// DefaultQueueSize bounds the number of pending events when none is configured.
const DefaultQueueSize = 256

var errMissingService = errors.New("analytics service is required")

// Notifier is told when a profile's counters changed.
type Notifier interface {
	AnalyticsChanged(profileID string)
}

type eventRecorder interface {
	RecordView(ctx context.Context, event ViewEvent) (bool, error)
	RecordClick(ctx context.Context, event ClickEvent) (bool, error)
}

type RecorderConfig struct {
	Service   eventRecorder
	Notifier  Notifier
	QueueSize int
	Logger    *zap.Logger
}

type queuedEvent struct {
	view  *ViewEvent
	click *ClickEvent
}

// Recorder decouples request handlers from analytics writes. Enqueue never
// blocks; events arriving while the queue is full or after Close are dropped.
type Recorder struct {
	service  eventRecorder
	notifier Notifier
	queue    chan queuedEvent
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.Service == nil {
		return nil, errMissingService
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Recorder{
		service:  cfg.Service,
		notifier: cfg.Notifier,
		queue:    make(chan queuedEvent, size),
		logger:   logger,
	}, nil
}

// EnqueueView schedules a page view. It reports false when the event was dropped.
func (r *Recorder) EnqueueView(event ViewEvent) bool {
	return r.enqueue(queuedEvent{view: &event}, event.ProfileID, "view")
}

// EnqueueClick schedules a link click. It reports false when the event was dropped.
func (r *Recorder) EnqueueClick(event ClickEvent) bool {
	return r.enqueue(queuedEvent{click: &event}, event.ProfileID, "click")
}

func (r *Recorder) enqueue(event queuedEvent, profileID, kind string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Debug("analytics recorder closed, dropping event",
			zap.String("kind", kind),
			zap.String("profile_id", profileID))
		return false
	}
	select {
	case r.queue <- event:
		return true
	default:
		r.logger.Warn("analytics queue full, dropping event",
			zap.String("kind", kind),
			zap.String("profile_id", profileID))
		return false
	}
}

// Close stops accepting events. Once it returns no further event can enter
// the queue, so a drain after Close sees everything that was accepted.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Run writes queued events until ctx is cancelled, then closes the recorder
// and writes whatever was accepted before that. Cancel ctx only once request
// handlers have stopped enqueueing.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case event := <-r.queue:
			r.handle(ctx, event)
		case <-ctx.Done():
			r.Close()
			r.drain(context.WithoutCancel(ctx))
			return nil
		}
	}
}

func (r *Recorder) drain(ctx context.Context) {
	for {
		select {
		case event := <-r.queue:
			r.handle(ctx, event)
		default:
			return
		}
	}
}

func (r *Recorder) handle(ctx context.Context, event queuedEvent) {
	var (
		profileID string
		recorded  bool
		err       error
	)
	switch {
	case event.view != nil:
		profileID = event.view.ProfileID
		recorded, err = r.service.RecordView(ctx, *event.view)
	case event.click != nil:
		profileID = event.click.ProfileID
		recorded, err = r.service.RecordClick(ctx, *event.click)
	default:
		return
	}
	if err != nil {
		r.logger.Warn("analytics event not recorded",
			zap.String("profile_id", profileID),
			zap.Error(err))
		return
	}
	if recorded && r.notifier != nil {
		r.notifier.AnalyticsChanged(profileID)
	}
}
