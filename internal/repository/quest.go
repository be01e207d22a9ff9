package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"questbot/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Quest struct {
	ID               uuid.UUID  `db:"id"`
	UserID           int64      `db:"user_id"`
	QuestNumber      int        `db:"quest_number"`
	Title            string     `db:"title"`
	Story            string     `db:"story"`
	XP               int        `db:"xp"`
	Theme            string     `db:"theme"`
	Completed        bool       `db:"completed"`
	CreatedAt        time.Time  `db:"created_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	Deadline         *time.Time `db:"deadline"`
	DeadlineNotified bool       `db:"deadline_notified"`
	Overdue          bool       `db:"overdue"`
}

func (q *Quest) toModel() *model.Quest {
	return &model.Quest{
		ID:               q.ID,
		UserID:           q.UserID,
		QuestNumber:      q.QuestNumber,
		Title:            q.Title,
		Story:            q.Story,
		XP:               q.XP,
		Theme:            model.Theme(q.Theme),
		Completed:        q.Completed,
		CreatedAt:        q.CreatedAt,
		CompletedAt:      q.CompletedAt,
		Deadline:         q.Deadline,
		DeadlineNotified: q.DeadlineNotified,
		Overdue:          q.Overdue,
	}
}

func toQuestModels(rows []Quest) []*model.Quest {
	quests := make([]*model.Quest, 0, len(rows))
	for i := range rows {
		quests = append(quests, rows[i].toModel())
	}
	return quests
}

// CreateQuest allocates the next per-user quest number and inserts the quest
// in one transaction. quest.QuestNumber is set on success.
func (r *Repository) CreateQuest(ctx context.Context, quest *model.Quest) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		counterQuery, counterArgs, err := squirrel.
			Update("users").
			Set("next_quest_number", squirrel.Expr("next_quest_number + 1")).
			Where(squirrel.Eq{"telegram_id": quest.UserID}).
			Suffix("RETURNING next_quest_number").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build quest counter query: %w", err)
		}

		var number int
		if err := tx.GetContext(ctx, &number, counterQuery, counterArgs...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to allocate quest number: %w", err)
		}

		query, args, err := squirrel.
			Insert("quests").
			SetMap(map[string]interface{}{
				"id":           quest.ID,
				"user_id":      quest.UserID,
				"quest_number": number,
				"title":        quest.Title,
				"story":        quest.Story,
				"xp":           quest.XP,
				"theme":        string(quest.Theme),
				"completed":    false,
				"created_at":   quest.CreatedAt,
				"deadline":     quest.Deadline,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build quest insert query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert quest: %w", err)
		}

		quest.QuestNumber = number
		return nil
	})
}

func (r *Repository) GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	var quest Quest
	query, args, err := squirrel.
		Select("*").
		From("quests").
		Where(squirrel.Eq{"id": questID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	if err := r.db.GetContext(ctx, &quest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return quest.toModel(), nil
}

// ListActiveQuests returns the user's uncompleted quests, newest first.
func (r *Repository) ListActiveQuests(ctx context.Context, userID int64) ([]*model.Quest, error) {
	return r.selectQuests(ctx, squirrel.
		Select("*").
		From("quests").
		Where(squirrel.Eq{"user_id": userID, "completed": false}).
		OrderBy("created_at DESC", "quest_number DESC"))
}

// ListActiveQuestsCreatedBetween narrows ListActiveQuests to [from, to).
func (r *Repository) ListActiveQuestsCreatedBetween(ctx context.Context, userID int64, from, to time.Time) ([]*model.Quest, error) {
	return r.selectQuests(ctx, squirrel.
		Select("*").
		From("quests").
		Where(squirrel.Eq{"user_id": userID, "completed": false}).
		Where(squirrel.GtOrEq{"created_at": from}).
		Where(squirrel.Lt{"created_at": to}).
		OrderBy("created_at DESC", "quest_number DESC"))
}

// ListQuestsWithDeadline returns every active quest that has a deadline.
func (r *Repository) ListQuestsWithDeadline(ctx context.Context) ([]*model.Quest, error) {
	return r.selectQuests(ctx, squirrel.
		Select("*").
		From("quests").
		Where(squirrel.Eq{"completed": false}).
		Where(squirrel.NotEq{"deadline": nil}).
		OrderBy("deadline"))
}

func (r *Repository) selectQuests(ctx context.Context, builder squirrel.SelectBuilder) ([]*model.Quest, error) {
	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Quest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select quests: %w", err)
	}

	return toQuestModels(rows), nil
}

func (r *Repository) DeleteQuest(ctx context.Context, questID uuid.UUID) error {
	query, args, err := squirrel.
		Delete("quests").
		Where(squirrel.Eq{"id": questID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest delete query: %w", err)
	}

	return r.execAffecting(ctx, r.db, query, args)
}

// SetQuestDeadline replaces the deadline and re-arms both alerts.
func (r *Repository) SetQuestDeadline(ctx context.Context, questID uuid.UUID, deadline *time.Time) error {
	query, args, err := squirrel.
		Update("quests").
		SetMap(map[string]interface{}{
			"deadline":          deadline,
			"deadline_notified": false,
			"overdue":           false,
		}).
		Where(squirrel.Eq{"id": questID, "completed": false}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build deadline update query: %w", err)
	}

	return r.execAffecting(ctx, r.db, query, args)
}

// CompleteQuest locks the quest and its owner, lets apply mutate the user's
// progression, then persists both. apply runs inside the transaction and any
// error it returns rolls everything back.
func (r *Repository) CompleteQuest(ctx context.Context, questID uuid.UUID, apply func(user *model.User, quest *model.Quest) error) (*model.User, *model.Quest, error) {
	var (
		outUser  *model.User
		outQuest *model.Quest
	)

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var row Quest
		query, args, err := squirrel.
			Select("*").
			From("quests").
			Where(squirrel.Eq{"id": questID}).
			Suffix("FOR UPDATE").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		if err := tx.GetContext(ctx, &row, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock quest: %w", err)
		}
		if row.Completed {
			return ErrAlreadyCompleted
		}

		userRow, err := r.getUserForUpdate(ctx, tx, row.UserID)
		if err != nil {
			return err
		}
		user, err := userRow.toModel()
		if err != nil {
			return err
		}

		quest := row.toModel()
		if err := apply(user, quest); err != nil {
			return err
		}

		updateQuery, updateArgs, err := squirrel.
			Update("quests").
			Set("completed", true).
			Set("completed_at", quest.CompletedAt).
			Where(squirrel.Eq{"id": questID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build quest complete query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
			return fmt.Errorf("failed to complete quest: %w", err)
		}

		if err := r.saveProgressWithTx(ctx, tx, user); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}

		quest.Completed = true
		outUser, outQuest = user, quest
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return outUser, outQuest, nil
}

// MarkDeadlineNotified claims the approaching-deadline alert. It reports
// false when another sweep already claimed it.
func (r *Repository) MarkDeadlineNotified(ctx context.Context, questID uuid.UUID) (bool, error) {
	query, args, err := squirrel.
		Update("quests").
		Set("deadline_notified", true).
		Where(squirrel.Eq{"id": questID, "deadline_notified": false, "completed": false}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build deadline notified query: %w", err)
	}

	err = r.execAffecting(ctx, r.db, query, args)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkOverdue claims the overdue alert and resets the owner's streak in the
// same transaction. It reports false when the quest was already overdue.
func (r *Repository) MarkOverdue(ctx context.Context, questID uuid.UUID) (bool, error) {
	claimed := false

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("quests").
			Set("overdue", true).
			Where(squirrel.Eq{"id": questID, "overdue": false, "completed": false}).
			Suffix("RETURNING user_id").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build overdue query: %w", err)
		}

		var userID int64
		if err := tx.GetContext(ctx, &userID, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to mark quest overdue: %w", err)
		}

		streakQuery, streakArgs, err := squirrel.
			Update("users").
			Set("streak", 0).
			Where(squirrel.Eq{"telegram_id": userID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build streak reset query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, streakQuery, streakArgs...); err != nil {
			return fmt.Errorf("failed to reset streak: %w", err)
		}

		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return claimed, nil
}
