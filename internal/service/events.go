package service

import (
	"context"
	"sync"
	"time"

	"questbot/internal/model"
	"questbot/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultEventBuffer = 256

// EventSink persists analytics events on a background worker. Track never
// blocks: when the buffer is full the event is dropped and logged.
type EventSink struct {
	repo   EventRepository
	events chan *model.Event
	now    func() time.Time

	closeOnce sync.Once
	done      chan struct{}
}

func NewEventSink(repo EventRepository, buffer int) *EventSink {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &EventSink{
		repo:   repo,
		events: make(chan *model.Event, buffer),
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

func (s *EventSink) Track(userID int64, name string, payload map[string]any) {
	event := &model.Event{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Payload:   payload,
		CreatedAt: s.now().UTC(),
	}

	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- event:
	default:
		logger.Logger().Warn("analytics buffer full, dropping event",
			zap.String("event", name),
			zap.Int64("user_id", userID))
	}
}

// Run drains events until ctx is cancelled or Close is called. Pending
// events are flushed before it returns.
func (s *EventSink) Run(ctx context.Context) {
	for {
		select {
		case event := <-s.events:
			s.save(ctx, event)
		case <-ctx.Done():
			s.flush()
			return
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *EventSink) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *EventSink) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case event := <-s.events:
			s.save(ctx, event)
		default:
			return
		}
	}
}

func (s *EventSink) save(ctx context.Context, event *model.Event) {
	if err := s.repo.SaveEvent(ctx, event); err != nil {
		logger.Logger().Warn("failed to save analytics event",
			zap.String("event", event.Name),
			zap.Int64("user_id", event.UserID),
			zap.Error(err))
	}
}
