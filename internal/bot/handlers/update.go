package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/therapy-overrides/internal/domain"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
	"github.com/vladimiradmaev/therapy-overrides/internal/state"
)

// UpdateHandler handles telegram updates and coordinates other handlers
type UpdateHandler struct {
	userService     domain.UserService
	callbackHandler *CallbackHandler
	commandHandler  *CommandHandler
	textHandler     *TextHandler
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(api Sender, deps Dependencies, stateManager state.StateManager) *UpdateHandler {
	return &UpdateHandler{
		userService:     deps.UserService,
		callbackHandler: NewCallbackHandler(api, deps, stateManager),
		commandHandler:  NewCommandHandler(api, deps, stateManager),
		textHandler:     NewTextHandler(api, deps, stateManager),
	}
}

// Handle processes a telegram update
func (h *UpdateHandler) Handle(ctx context.Context, update tgbotapi.Update) error {
	var from *tgbotapi.User
	switch {
	case update.Message != nil:
		from = update.Message.From
	case update.CallbackQuery != nil:
		from = update.CallbackQuery.From
	}
	if from == nil {
		return nil
	}

	// Get or create user
	user, err := h.userService.RegisterUser(ctx, from.ID, from.UserName, from.FirstName, from.LastName)
	if err != nil {
		logger.Error("Error getting/creating user", "telegram_id", from.ID, "error", err)
		return fmt.Errorf("failed to get/create user: %w", err)
	}

	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message == nil {
			return nil
		}
		return h.callbackHandler.Handle(ctx, update.CallbackQuery, user)
	}

	if update.Message.IsCommand() {
		return h.commandHandler.Handle(ctx, update.Message, user)
	}
	if update.Message.Text != "" {
		return h.textHandler.Handle(ctx, update.Message, user)
	}
	return nil
}
