package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/therapy-overrides/internal/bot/menus"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/state"
)

// CommandHandler handles bot commands
type CommandHandler struct {
	actions
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(api Sender, deps Dependencies, stateManager state.StateManager) *CommandHandler {
	return &CommandHandler{actions{api: api, deps: deps, stateManager: stateManager}}
}

// Handle processes a command message
func (h *CommandHandler) Handle(ctx context.Context, message *tgbotapi.Message, user *database.User) error {
	logger.Info("Handling command", "command", message.Command(), "user_id", user.ID)
	chatID := message.Chat.ID
	args := strings.Fields(message.CommandArguments())

	switch message.Command() {
	case "start":
		h.stateManager.SetUserState(user.TelegramID, state.None)
		return menus.SendMainMenu(h.api, chatID)
	case "help":
		return h.handleHelp(chatID)
	case "override":
		return h.handleOverride(ctx, chatID, user, args)
	case "preset":
		return h.presets(ctx, chatID, user)
	case "cancel":
		h.stateManager.SetUserState(user.TelegramID, state.None)
		return h.cancel(ctx, chatID, user)
	case "status":
		return h.status(ctx, chatID, user)
	case "schedule":
		return h.schedules(ctx, chatID, user)
	case "sync":
		return h.handleSync(ctx, chatID, user, args)
	default:
		return h.handleUnknownCommand(chatID)
	}
}

// handleOverride enacts directly from arguments, or starts the dialog
func (h *CommandHandler) handleOverride(ctx context.Context, chatID int64, user *database.User, args []string) error {
	if len(args) == 0 {
		return h.startOverrideDialog(chatID, user)
	}

	factor, err := parseScaleFactor(args[0])
	if err != nil {
		return menus.SendText(h.api, chatID, "Некорректный коэффициент. Пример: /override 80% 2h")
	}
	duration := override.Indefinite
	if len(args) > 1 {
		if duration, err = parseDuration(args[1]); err != nil {
			return menus.SendText(h.api, chatID, "Некорректная длительность. Пример: /override 80% 2h")
		}
	}
	return h.enact(ctx, chatID, user, factor, duration)
}

func (h *CommandHandler) handleSync(ctx context.Context, chatID int64, user *database.User, args []string) error {
	if len(args) == 0 {
		return menus.SendText(h.api, chatID, "Укажите идентификатор клиента. Пример: /sync pump")
	}
	result, err := h.deps.OverrideSvc.Sync(ctx, user.TelegramID, args[0])
	if err != nil {
		return h.sendError(chatID, "Не удалось синхронизировать", err)
	}

	loc := userLocation(user)
	var b strings.Builder
	fmt.Fprintf(&b, "🔄 Клиент %s, якорь %d\n", result.ClientID, result.Anchor.ModificationCounter)
	if len(result.Changed) == 0 && len(result.Deleted) == 0 {
		b.WriteString("Изменений нет")
	}
	for _, o := range result.Changed {
		fmt.Fprintf(&b, "✏️ %s\n", formatOverride(o, loc))
	}
	for _, o := range result.Deleted {
		fmt.Fprintf(&b, "🗑️ %s\n", formatOverride(o, loc))
	}
	return menus.SendText(h.api, chatID, b.String())
}

// handleHelp handles the /help command
func (h *CommandHandler) handleHelp(chatID int64) error {
	text := `Доступные команды:
/start - Показать главное меню
/status - Текущие базал, ФЧИ, УК и цель с учетом временной цели
/override [коэф.] [длительность] - Включить временную цель
/preset - Пресеты временных целей
/cancel - Отменить активную временную цель
/schedule - Базовые расписания
/sync <клиент> - Изменения с последней синхронизации клиента
/help - Показать это сообщение

Примеры:
/override 80% 2h - 80% инсулина на 2 часа
/override 1.2 90 - 120% на 90 минут
/override 0.5 - 50% бессрочно`

	msg := tgbotapi.NewMessage(chatID, text)
	_, err := h.api.Send(msg)
	return err
}

// handleUnknownCommand handles unknown commands
func (h *CommandHandler) handleUnknownCommand(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Неизвестная команда. Используйте /help для просмотра доступных команд.")
	_, err := h.api.Send(msg)
	return err
}
