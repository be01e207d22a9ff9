package telegram

import (
	"context"
	"fmt"

	"questbot/internal/model"
	"questbot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers = 16
	shardQueueLen  = 32
)

type Config struct {
	BotToken string  `yaml:"botToken"`
	Debug    bool    `yaml:"debug"`
	AdminIDs []int64 `yaml:"adminIds"`
	Workers  int     `yaml:"workers"`
}

// Client talks to the Bot API.
type Client struct {
	bot     *tgbotapi.BotAPI
	workers int
}

func NewClient(cfg Config) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = cfg.Debug

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	logger.Logger().Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
	return &Client{bot: bot, workers: workers}, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, buttons [][]model.Button) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if len(buttons) > 0 {
		msg.ReplyMarkup = createKeyboard(buttons)
	}

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, fileName string, data []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: fileName, Bytes: data})
	doc.Caption = caption

	_, err := c.bot.Send(doc)
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// Run long-polls for updates and hands them to handle. It returns after ctx
// is cancelled and queued updates finish.
func (c *Client) Run(ctx context.Context, handle func(ctx context.Context, update tgbotapi.Update)) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := c.bot.GetUpdatesChan(updateConfig)

	logger.Logger().Info("listening for telegram updates", zap.Int("workers", c.workers))

	err := serveUpdates(ctx, updates, c.workers, handle)
	c.bot.StopReceivingUpdates()
	return err
}

// serveUpdates runs workers goroutines. Every chat is pinned to one worker,
// so updates from the same chat are handled one at a time and in order.
func serveUpdates(ctx context.Context, updates <-chan tgbotapi.Update, workers int, handle func(ctx context.Context, update tgbotapi.Update)) error {
	if workers <= 0 {
		workers = defaultWorkers
	}

	var g errgroup.Group
	shards := make([]chan tgbotapi.Update, workers)
	for i := range shards {
		queue := make(chan tgbotapi.Update, shardQueueLen)
		shards[i] = queue
		g.Go(func() error {
			for update := range queue {
				handleSafely(ctx, update, handle)
			}
			return nil
		})
	}

	stop := func() error {
		for _, queue := range shards {
			close(queue)
		}
		return g.Wait()
	}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return stop()
			}
			select {
			case shards[shardFor(update, workers)] <- update:
			case <-ctx.Done():
				return stop()
			}

		case <-ctx.Done():
			return stop()
		}
	}
}

func shardFor(update tgbotapi.Update, workers int) int {
	var id int64
	if chat := update.FromChat(); chat != nil {
		id = chat.ID
	} else if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		id = update.CallbackQuery.From.ID
	}
	if id < 0 {
		id = -id
	}
	return int(id % int64(workers))
}

func handleSafely(ctx context.Context, update tgbotapi.Update, handle func(ctx context.Context, update tgbotapi.Update)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger().Error("update handler panicked",
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", r))
		}
	}()
	handle(ctx, update)
}
