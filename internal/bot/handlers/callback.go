package handlers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/vladimiradmaev/therapy-overrides/internal/bot/keyboards"
	"github.com/vladimiradmaev/therapy-overrides/internal/bot/menus"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	"github.com/vladimiradmaev/therapy-overrides/internal/state"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CallbackHandler handles callback query messages
type CallbackHandler struct {
	actions
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(api Sender, deps Dependencies, stateManager state.StateManager) *CallbackHandler {
	return &CallbackHandler{actions{api: api, deps: deps, stateManager: stateManager}}
}

// Handle processes a callback query
func (h *CallbackHandler) Handle(ctx context.Context, query *tgbotapi.CallbackQuery, user *database.User) error {
	// Answer the callback query first
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := h.api.Request(callback); err != nil {
		return err
	}

	chatID := query.Message.Chat.ID
	data := query.Data

	switch {
	case data == "main_menu":
		h.stateManager.SetUserState(user.TelegramID, state.None)
		return menus.SendMainMenu(h.api, chatID)
	case data == "status":
		return h.status(ctx, chatID, user)
	case data == "new_override":
		return h.startOverrideDialog(chatID, user)
	case data == "cancel_override":
		h.stateManager.SetUserState(user.TelegramID, state.None)
		return h.cancel(ctx, chatID, user)
	case data == "presets":
		return h.presets(ctx, chatID, user)
	case data == "save_preset":
		return h.handleSavePreset(chatID, user)
	case data == "schedules":
		return h.schedules(ctx, chatID, user)
	case data == "time_zone":
		h.stateManager.SetUserState(user.TelegramID, state.WaitingForTimeZone)
		return menus.SendText(h.api, chatID, "Введите часовой пояс в формате IANA (например: Europe/Moscow):")
	case strings.HasPrefix(data, "edit_schedule:"):
		return h.startScheduleDialog(chatID, user, strings.TrimPrefix(data, "edit_schedule:"))
	case strings.HasPrefix(data, keyboards.PresetDeletePrefix):
		return h.deletePreset(ctx, chatID, user, strings.TrimPrefix(data, keyboards.PresetDeletePrefix))
	case strings.HasPrefix(data, keyboards.PresetEnactPrefix):
		return h.enactPreset(ctx, chatID, user, strings.TrimPrefix(data, keyboards.PresetEnactPrefix))
	default:
		return h.handleUnknownCallback(chatID)
	}
}

// handleSavePreset asks for a name for the settings enacted last
func (h *CallbackHandler) handleSavePreset(chatID int64, user *database.User) error {
	if _, ok := h.stateManager.GetTempData(user.TelegramID, tempScaleFactor); !ok {
		return menus.SendText(h.api, chatID, "Сначала включите временную цель, чтобы сохранить ее как пресет")
	}
	h.stateManager.SetUserState(user.TelegramID, state.WaitingForPresetName)
	return menus.SendText(h.api, chatID, "Введите значок и название пресета (например: 🏃 Пробежка):")
}

// handleUnknownCallback handles unknown callbacks
func (h *CallbackHandler) handleUnknownCallback(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Неизвестная команда")
	_, err := h.api.Send(msg)
	return err
}

func parsePresetID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}
