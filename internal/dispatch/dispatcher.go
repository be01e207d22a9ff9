package dispatch

import (
	"context"
	"fmt"

	"questbot/internal/model"
	"questbot/pkg/logger"

	"go.uber.org/zap"
)

// Messenger delivers a chat message and returns its id.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons [][]model.Button) (int, error)
}

// Dispatcher sends notifications to the chat and mirrors them to live
// websocket sessions.
type Dispatcher struct {
	messenger Messenger
	hub       *Hub
}

func NewDispatcher(messenger Messenger, hub *Hub) *Dispatcher {
	return &Dispatcher{messenger: messenger, hub: hub}
}

func (d *Dispatcher) Notify(ctx context.Context, n *model.Notification) error {
	if d.hub != nil {
		payload := map[string]any{"text": n.Text}
		if n.QuestID != nil {
			payload["questId"] = n.QuestID.String()
		}
		d.hub.Publish(n.UserID, Message{Type: string(n.Kind), Payload: payload})
	}

	if _, err := d.messenger.SendMessage(ctx, n.UserID, n.Text, n.Buttons); err != nil {
		logger.Logger().Warn("failed to send notification",
			zap.Int64("telegram_id", n.UserID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
		return fmt.Errorf("failed to send %s notification: %w", n.Kind, err)
	}

	return nil
}
