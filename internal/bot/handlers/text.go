package handlers

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/therapy-overrides/internal/bot/menus"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/services"
	"github.com/vladimiradmaev/therapy-overrides/internal/state"
)

// TextHandler handles text messages
type TextHandler struct {
	actions
}

// NewTextHandler creates a new text handler
func NewTextHandler(api Sender, deps Dependencies, stateManager state.StateManager) *TextHandler {
	return &TextHandler{actions{api: api, deps: deps, stateManager: stateManager}}
}

// Handle processes a text message
func (h *TextHandler) Handle(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	switch h.stateManager.GetUserState(user.TelegramID) {
	case state.WaitingForScaleFactor:
		return h.handleScaleFactor(message, user)
	case state.WaitingForDuration:
		return h.handleDuration(ctx, message, user)
	case state.WaitingForScheduleEntry:
		return h.handleScheduleEntries(ctx, message, user)
	case state.WaitingForPresetName:
		return h.handlePresetName(ctx, message, user)
	case state.WaitingForTimeZone:
		return h.handleTimeZone(ctx, message, user)
	default:
		return h.handleDefaultText(message.Chat.ID)
	}
}

func (h *TextHandler) handleScaleFactor(message *tgbotapi.Message, user *database.User) error {
	factor, err := parseScaleFactor(message.Text)
	if err != nil {
		return menus.SendText(h.api, message.Chat.ID, "Пожалуйста, введите коэффициент от 1% до 500% (например: 80% или 0.8)")
	}
	h.stateManager.SetTempData(user.TelegramID, tempScaleFactor, factor)
	h.stateManager.SetUserState(user.TelegramID, state.WaitingForDuration)
	return menus.SendText(h.api, message.Chat.ID,
		"Введите длительность в минутах или как 1h30m. 0 - бессрочно:")
}

func (h *TextHandler) handleDuration(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	duration, err := parseDuration(message.Text)
	if err != nil {
		return menus.SendText(h.api, message.Chat.ID, "Неверный формат. Введите например 90, 2h или 0")
	}
	raw, _ := h.stateManager.GetTempData(user.TelegramID, tempScaleFactor)
	factor, ok := tempFloat(raw)
	if !ok {
		h.stateManager.SetUserState(user.TelegramID, state.None)
		return menus.SendText(h.api, message.Chat.ID, "Коэффициент потерян, начните заново")
	}
	return h.enact(ctx, message.Chat.ID, user, factor, duration)
}

func (h *TextHandler) handleScheduleEntries(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	raw, _ := h.stateManager.GetTempData(user.TelegramID, "schedule_kind")
	kind, _ := raw.(string)

	entries, err := services.ParseScheduleEntries(kind, message.Text)
	if err != nil || len(entries) == 0 {
		return menus.SendText(h.api, message.Chat.ID, "Неверный формат. Пример: 00:00=0.8, 12:00=1.1")
	}

	if err := h.deps.ScheduleSvc.ClearSchedule(ctx, user.ID, kind); err != nil {
		return h.sendError(message.Chat.ID, "Не удалось сохранить расписание", err)
	}
	for _, e := range entries {
		if err := h.deps.ScheduleSvc.SetEntry(ctx, user.ID, kind, e.StartTime, e.Value, e.MaxValue); err != nil {
			return h.sendError(message.Chat.ID, "Не удалось сохранить расписание", err)
		}
	}

	h.stateManager.SetUserState(user.TelegramID, state.None)
	return h.schedules(ctx, message.Chat.ID, user)
}

func (h *TextHandler) handlePresetName(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	symbol, name := splitPresetName(message.Text)
	if name == "" {
		return menus.SendText(h.api, message.Chat.ID, "Название не может быть пустым")
	}

	rawFactor, _ := h.stateManager.GetTempData(user.TelegramID, tempScaleFactor)
	factor, ok := tempFloat(rawFactor)
	if !ok {
		h.stateManager.SetUserState(user.TelegramID, state.None)
		return menus.SendText(h.api, message.Chat.ID, "Сначала включите временную цель")
	}
	settings, err := override.NewSettings(nil, &factor)
	if err != nil {
		return h.sendError(message.Chat.ID, "Не удалось сохранить пресет", err)
	}

	duration := override.Indefinite
	rawMinutes, _ := h.stateManager.GetTempData(user.TelegramID, tempDuration)
	if minutes, ok := tempFloat(rawMinutes); ok && minutes > 0 {
		if duration, err = override.Finite(time.Duration(minutes) * time.Minute); err != nil {
			return h.sendError(message.Chat.ID, "Не удалось сохранить пресет", err)
		}
	}

	preset := override.Preset{Symbol: symbol, Name: name, Settings: settings, Duration: duration}
	if err := h.deps.OverrideSvc.SavePreset(ctx, user.TelegramID, preset); err != nil {
		return h.sendError(message.Chat.ID, "Не удалось сохранить пресет", err)
	}

	h.stateManager.SetUserState(user.TelegramID, state.None)
	h.stateManager.ClearTempData(user.TelegramID)
	return h.presets(ctx, message.Chat.ID, user)
}

func (h *TextHandler) handleTimeZone(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	name := strings.TrimSpace(message.Text)
	if err := h.deps.UserService.SetTimeZone(ctx, user.TelegramID, name); err != nil {
		return menus.SendText(h.api, message.Chat.ID, "Неизвестный часовой пояс. Пример: Europe/Moscow")
	}
	user.TimeZone = name
	h.stateManager.SetUserState(user.TelegramID, state.None)
	return h.schedules(ctx, message.Chat.ID, user)
}

// handleDefaultText handles text without an active dialog
func (h *TextHandler) handleDefaultText(chatID int64) error {
	return menus.SendMainMenu(h.api, chatID)
}

// splitPresetName takes a leading emoji or symbol as the preset symbol.
func splitPresetName(text string) (symbol, name string) {
	text = strings.TrimSpace(text)
	first, rest, found := strings.Cut(text, " ")
	if found && utf8.RuneCountInString(first) <= 2 && !isLetterOrDigit(first) {
		return first, strings.TrimSpace(rest)
	}
	return "", text
}

func isLetterOrDigit(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') ||
		('а' <= r && r <= 'я') || ('А' <= r && r <= 'Я')
}
