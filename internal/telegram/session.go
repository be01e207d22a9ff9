package telegram

import (
	"errors"
	"sync"
	"time"
)

// State is where a chat is in a multi-step conversation.
type State int

const (
	StateIdle State = iota
	StateAwaitingTaskText
	StateAwaitingFeedback
	StateAwaitingReminderTime
)

func (s State) String() string {
	switch s {
	case StateAwaitingTaskText:
		return "awaiting_task_text"
	case StateAwaitingFeedback:
		return "awaiting_feedback"
	case StateAwaitingReminderTime:
		return "awaiting_reminder_time"
	default:
		return "idle"
	}
}

type Event int

const (
	EventAddRequested Event = iota
	EventFeedbackRequested
	EventReminderRequested
	EventInputAccepted
	EventCancelled
)

var ErrInvalidTransition = errors.New("invalid session transition")

const DefaultSessionTTL = 15 * time.Minute

// Starting a new prompt replaces whatever prompt was pending.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventAddRequested:      StateAwaitingTaskText,
		EventFeedbackRequested: StateAwaitingFeedback,
		EventReminderRequested: StateAwaitingReminderTime,
		EventCancelled:         StateIdle,
	},
	StateAwaitingTaskText: {
		EventAddRequested:      StateAwaitingTaskText,
		EventFeedbackRequested: StateAwaitingFeedback,
		EventReminderRequested: StateAwaitingReminderTime,
		EventInputAccepted:     StateIdle,
		EventCancelled:         StateIdle,
	},
	StateAwaitingFeedback: {
		EventAddRequested:      StateAwaitingTaskText,
		EventFeedbackRequested: StateAwaitingFeedback,
		EventReminderRequested: StateAwaitingReminderTime,
		EventInputAccepted:     StateIdle,
		EventCancelled:         StateIdle,
	},
	StateAwaitingReminderTime: {
		EventAddRequested:      StateAwaitingTaskText,
		EventFeedbackRequested: StateAwaitingFeedback,
		EventReminderRequested: StateAwaitingReminderTime,
		EventInputAccepted:     StateIdle,
		EventCancelled:         StateIdle,
	},
}

type session struct {
	state     State
	updatedAt time.Time
}

// Sessions holds the conversation state of every chat. Prompts left
// unanswered for longer than the TTL fall back to idle.
type Sessions struct {
	mu       sync.Mutex
	sessions map[int64]session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		sessions: make(map[int64]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *Sessions) State(chatID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(chatID)
}

// Fire applies ev to the chat's state and returns the new state.
func (s *Sessions) Fire(chatID int64, ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.current(chatID)
	to, ok := transitions[from][ev]
	if !ok {
		return from, ErrInvalidTransition
	}

	if to == StateIdle {
		delete(s.sessions, chatID)
	} else {
		s.sessions[chatID] = session{state: to, updatedAt: s.now()}
	}
	return to, nil
}

func (s *Sessions) current(chatID int64) State {
	sess, ok := s.sessions[chatID]
	if !ok {
		return StateIdle
	}
	if s.now().Sub(sess.updatedAt) > s.ttl {
		delete(s.sessions, chatID)
		return StateIdle
	}
	return sess.state
}
