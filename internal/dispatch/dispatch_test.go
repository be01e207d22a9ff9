package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"questbot/internal/model"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMessenger struct {
	mock.Mock
}

func (m *mockMessenger) SendMessage(ctx context.Context, chatID int64, text string, buttons [][]model.Button) (int, error) {
	args := m.Called(ctx, chatID, text, buttons)
	return args.Int(0), args.Error(1)
}

func dialHub(t *testing.T, hub *Hub, userID int64) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, userID)
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Connected(userID) == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestDispatcher_Notify(t *testing.T) {
	questID := uuid.New()
	notification := &model.Notification{
		UserID:  7,
		Kind:    model.NotificationDeadlineSoon,
		Text:    "deadline is close",
		QuestID: &questID,
		Buttons: [][]model.Button{{{Text: "Done", Data: "done_" + questID.String()}}},
	}

	tests := []struct {
		name      string
		sendErr   error
		expectErr bool
	}{
		{name: "Delivered"},
		{name: "Messenger failure", sendErr: errors.New("bot was blocked by the user"), expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messenger := &mockMessenger{}
			messenger.On("SendMessage", mock.Anything, int64(7), "deadline is close", notification.Buttons).Return(101, tt.sendErr)

			hub := NewHub()
			conn := dialHub(t, hub, 7)

			err := NewDispatcher(messenger, hub).Notify(context.Background(), notification)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			msg := readMessage(t, conn)
			assert.Equal(t, string(model.NotificationDeadlineSoon), msg.Type)
			assert.Equal(t, questID.String(), msg.Payload["questId"])
			messenger.AssertExpectations(t)
		})
	}
}

func TestDispatcher_WithoutHub(t *testing.T) {
	messenger := &mockMessenger{}
	messenger.On("SendMessage", mock.Anything, int64(1), "hi", [][]model.Button(nil)).Return(1, nil)

	err := NewDispatcher(messenger, nil).Notify(context.Background(), &model.Notification{UserID: 1, Text: "hi"})
	assert.NoError(t, err)
}

func TestHub_PingAndDisconnect(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, 42)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, "pong", readMessage(t, conn).Type)

	// other users' events are not delivered here
	hub.Publish(43, Message{Type: "reminder"})
	hub.Publish(42, Message{Type: "reminder"})
	assert.Equal(t, "reminder", readMessage(t, conn).Type)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connected(42) == 0 }, time.Second, 5*time.Millisecond)
}
