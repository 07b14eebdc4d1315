package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/therapy-overrides/internal/bot/handlers"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
	"github.com/vladimiradmaev/therapy-overrides/internal/state"
)

type Bot struct {
	api           *tgbotapi.BotAPI
	updateHandler *handlers.UpdateHandler
	errs          *apperrors.Handler
}

func NewBot(token string, deps handlers.Dependencies, stateManager state.StateManager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot authorized", "account", api.Self.UserName)
	return &Bot{
		api:           api,
		updateHandler: handlers.NewUpdateHandler(api, deps, stateManager),
		errs:          apperrors.NewHandler(logger.GetLogger()),
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	logger.Info("Bot is now listening for updates...")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Bot is shutting down...")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil && update.Message.From != nil {
				logger.Debug("Received message", "user_id", update.Message.From.ID, "text", update.Message.Text)
			}
			if err := b.updateHandler.Handle(ctx, update); err != nil {
				b.errs.Handle(ctx, fmt.Errorf("update %d: %w", update.UpdateID, err))
			}
		}
	}
}

// Stop ends long polling; Start returns once the update channel closes.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}
