package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"questbot/internal/model"
	"questbot/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestEventSink_SavesTrackedEvents(t *testing.T) {
	repo := &mocks.MockEventRepository{}
	saved := make(chan string, 2)
	repo.On("SaveEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved <- args.Get(1).(*model.Event).Name }).
		Return(nil)

	sink := NewEventSink(repo, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	sink.Track(1, model.EventQuestCreated, map[string]any{"xp": 12})
	sink.Track(1, model.EventQuestCompleted, nil)

	for _, expected := range []string{model.EventQuestCreated, model.EventQuestCompleted} {
		select {
		case name := <-saved:
			assert.Equal(t, expected, name)
		case <-time.After(time.Second):
			t.Fatalf("event %s was not saved", expected)
		}
	}
}

func TestEventSink_SwallowsStorageFailures(t *testing.T) {
	repo := &mocks.MockEventRepository{}
	repo.On("SaveEvent", mock.Anything, mock.Anything).Return(errors.New("db is down"))

	sink := NewEventSink(repo, 4)
	sink.Track(1, model.EventReminderSent, nil)
	sink.Track(2, model.EventReminderSent, nil)
	sink.Close()

	done := make(chan struct{})
	go func() {
		sink.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sink did not stop after Close")
	}
	repo.AssertNumberOfCalls(t, "SaveEvent", 2)
}

func TestEventSink_DropsWhenBufferFull(t *testing.T) {
	repo := &mocks.MockEventRepository{}
	repo.On("SaveEvent", mock.Anything, mock.Anything).Return(nil)

	sink := NewEventSink(repo, 1)
	sink.Track(1, model.EventQuestCreated, nil)
	sink.Track(1, model.EventQuestDeleted, nil)
	sink.Close()
	sink.Run(context.Background())

	repo.AssertNumberOfCalls(t, "SaveEvent", 1)

	// tracking after close is a no-op
	sink.Track(1, model.EventQuestCreated, nil)
	assert.Len(t, sink.events, 0)
}
