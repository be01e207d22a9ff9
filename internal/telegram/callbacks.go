package telegram

import (
	"errors"
	"fmt"
	"strings"

	"questbot/internal/model"

	"github.com/google/uuid"
)

const (
	actionMenu     = "menu"
	actionDone     = "done"
	actionDelete   = "delete"
	actionDeadline = "deadline"
	actionSetTime  = "set_time"
	actionTimeZone = "tz"
	actionTheme    = "theme"

	// deadlinePick opens the preset picker for a quest.
	deadlinePick = "pick"
)

var ErrUnknownCallback = errors.New("unknown callback")

type callback struct {
	action  string
	arg     string
	questID uuid.UUID
}

func parseCallback(data string) (callback, error) {
	switch {
	case strings.HasPrefix(data, "menu_"):
		return callback{action: actionMenu, arg: strings.TrimPrefix(data, "menu_")}, nil

	case strings.HasPrefix(data, "done_"):
		return questCallback(actionDone, "", strings.TrimPrefix(data, "done_"))

	case strings.HasPrefix(data, "delete_"):
		return questCallback(actionDelete, "", strings.TrimPrefix(data, "delete_"))

	case strings.HasPrefix(data, "deadline_"):
		preset, id, ok := strings.Cut(strings.TrimPrefix(data, "deadline_"), "_")
		if !ok {
			return callback{}, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
		}
		if preset != deadlinePick && !model.DeadlinePreset(preset).IsValid() {
			return callback{}, fmt.Errorf("%w: unknown deadline preset %q", ErrUnknownCallback, preset)
		}
		return questCallback(actionDeadline, preset, id)

	case strings.HasPrefix(data, "set_time_"):
		return callback{action: actionSetTime, arg: strings.TrimPrefix(data, "set_time_")}, nil

	case strings.HasPrefix(data, "tz_"):
		return callback{action: actionTimeZone, arg: strings.TrimPrefix(data, "tz_")}, nil

	case strings.HasPrefix(data, "theme_"):
		return callback{action: actionTheme, arg: strings.TrimPrefix(data, "theme_")}, nil
	}

	return callback{}, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
}

func questCallback(action, arg, rawID string) (callback, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return callback{}, fmt.Errorf("%w: bad quest id %q", ErrUnknownCallback, rawID)
	}
	return callback{action: action, arg: arg, questID: id}, nil
}

// reminderClock turns a set_time argument into a reminder value: "08" means
// 08:00, "off" disables reminders.
func reminderClock(arg string) (string, bool) {
	if arg == "off" {
		return arg, true
	}
	if len(arg) != 2 || arg[0] < '0' || arg[0] > '2' || arg[1] < '0' || arg[1] > '9' || arg > "23" {
		return "", false
	}
	return arg + ":00", true
}
