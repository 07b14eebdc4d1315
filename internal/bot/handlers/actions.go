package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vladimiradmaev/therapy-overrides/internal/bot/keyboards"
	"github.com/vladimiradmaev/therapy-overrides/internal/bot/menus"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/state"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// actions are the operations reachable both from commands and buttons
type actions struct {
	api          Sender
	deps         Dependencies
	stateManager state.StateManager
}

func (a *actions) sendError(chatID int64, text string, err error) error {
	logger.Error(text, "chat_id", chatID, "error", err)
	return menus.SendText(a.api, chatID, "❌ "+text)
}

func (a *actions) status(ctx context.Context, chatID int64, user *database.User) error {
	status, err := a.deps.OverrideSvc.Status(ctx, user.TelegramID)
	if err != nil {
		return a.sendError(chatID, "Не удалось получить текущие настройки", err)
	}
	msg := tgbotapi.NewMessage(chatID, formatStatus(status, userLocation(user)))
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboards.MainMenu()
	if _, err := a.api.Send(msg); err != nil {
		// retry without Markdown
		msg.ParseMode = ""
		_, err = a.api.Send(msg)
		return err
	}
	return nil
}

func (a *actions) startOverrideDialog(chatID int64, user *database.User) error {
	a.stateManager.ClearTempData(user.TelegramID)
	a.stateManager.SetUserState(user.TelegramID, state.WaitingForScaleFactor)
	return menus.SendText(a.api, chatID,
		"Введите потребность в инсулине в процентах или как коэффициент (например: 80% или 1.2):")
}

func (a *actions) enact(ctx context.Context, chatID int64, user *database.User, factor float64, duration override.Duration) error {
	settings, err := override.NewSettings(nil, &factor)
	if err != nil {
		return menus.SendText(a.api, chatID, "Некорректный коэффициент")
	}
	o, err := a.deps.OverrideSvc.Enact(ctx, user.TelegramID, settings, time.Now(), duration, override.LocalTrigger)
	if err != nil {
		return a.sendError(chatID, "Не удалось включить временную цель", err)
	}

	a.stateManager.SetUserState(user.TelegramID, state.None)
	a.stateManager.SetTempData(user.TelegramID, tempScaleFactor, factor)
	a.stateManager.SetTempData(user.TelegramID, tempDuration, durationMinutes(duration))

	msg := tgbotapi.NewMessage(chatID, "✅ Включено: "+formatOverride(o, userLocation(user)))
	msg.ReplyMarkup = keyboards.AfterOverrideMenu()
	_, err = a.api.Send(msg)
	return err
}

func (a *actions) cancel(ctx context.Context, chatID int64, user *database.User) error {
	if err := a.deps.OverrideSvc.Cancel(ctx, user.TelegramID); err != nil {
		return a.sendError(chatID, "Не удалось отменить временную цель", err)
	}
	return menus.SendText(a.api, chatID, "🛑 Временная цель отменена")
}

func (a *actions) presets(ctx context.Context, chatID int64, user *database.User) error {
	presets, err := a.deps.OverrideSvc.Presets(ctx, user.TelegramID)
	if err != nil {
		return a.sendError(chatID, "Не удалось получить пресеты", err)
	}
	return menus.SendPresetsMenu(a.api, chatID, presets)
}

func (a *actions) enactPreset(ctx context.Context, chatID int64, user *database.User, id string) error {
	presetID, err := parsePresetID(id)
	if err != nil {
		return menus.SendText(a.api, chatID, "Неизвестный пресет")
	}
	o, err := a.deps.OverrideSvc.EnactPreset(ctx, user.TelegramID, presetID, time.Now(), override.LocalTrigger)
	if errors.Is(err, apperrors.ErrPresetNotFound) {
		return menus.SendText(a.api, chatID, "Пресет не найден")
	}
	if err != nil {
		return a.sendError(chatID, "Не удалось включить пресет", err)
	}
	return menus.SendText(a.api, chatID, "✅ Включено: "+formatOverride(o, userLocation(user)))
}

func (a *actions) deletePreset(ctx context.Context, chatID int64, user *database.User, id string) error {
	presetID, err := parsePresetID(id)
	if err != nil {
		return menus.SendText(a.api, chatID, "Неизвестный пресет")
	}
	if err := a.deps.OverrideSvc.DeletePreset(ctx, user.TelegramID, presetID); err != nil && !errors.Is(err, apperrors.ErrPresetNotFound) {
		return a.sendError(chatID, "Не удалось удалить пресет", err)
	}
	return a.presets(ctx, chatID, user)
}

func (a *actions) schedules(ctx context.Context, chatID int64, user *database.User) error {
	var b strings.Builder
	zone := user.TimeZone
	if zone == "" {
		zone = "по умолчанию"
	}
	b.WriteString("Ваши расписания (часовой пояс " + zone + "):\n\n")
	for _, kind := range []string{database.ScheduleBasal, database.ScheduleSensitivity, database.ScheduleCarbRatio, database.ScheduleTarget} {
		entries, err := a.deps.ScheduleSvc.GetEntries(ctx, user.ID, kind)
		if err != nil {
			return a.sendError(chatID, "Не удалось получить расписания", err)
		}
		b.WriteString(formatEntries(kind, entries))
	}
	return menus.SendSchedulesMenu(a.api, chatID, b.String())
}

func (a *actions) startScheduleDialog(chatID int64, user *database.User, kind string) error {
	a.stateManager.SetUserState(user.TelegramID, state.WaitingForScheduleEntry)
	a.stateManager.SetTempData(user.TelegramID, "schedule_kind", kind)

	example := "00:00=0.8, 12:00=1.1"
	if kind == database.ScheduleTarget {
		example = "00:00=100-110, 22:00=110-130"
	}
	return menus.SendText(a.api, chatID,
		"Введите расписание целиком в формате ЧЧ:ММ=значение через запятую (например: "+example+").\nСтарое расписание будет заменено.")
}
