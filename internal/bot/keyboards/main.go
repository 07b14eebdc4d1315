package keyboards

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
)

// Callback data prefixes carrying a preset ID
const (
	PresetEnactPrefix  = "preset:"
	PresetDeletePrefix = "preset_delete:"
)

// MainMenu creates the main menu keyboard
func MainMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статус", "status"),
			tgbotapi.NewInlineKeyboardButtonData("🎛️ Новая цель", "new_override"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Пресеты", "presets"),
			tgbotapi.NewInlineKeyboardButtonData("🛑 Отменить", "cancel_override"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Расписания", "schedules"),
		),
	)
}

// AfterOverrideMenu is shown once an override has been enacted
func AfterOverrideMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Сохранить как пресет", "save_preset"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", "main_menu"),
		),
	)
}

// PresetsMenu lists presets, one enact and one delete button per preset
func PresetsMenu(presets []override.Preset) tgbotapi.InlineKeyboardMarkup {
	keyboard := tgbotapi.NewInlineKeyboardMarkup()
	for _, p := range presets {
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(p.Symbol+" "+p.Name, PresetEnactPrefix+p.ID.String()),
				tgbotapi.NewInlineKeyboardButtonData("🗑️", PresetDeletePrefix+p.ID.String()),
			),
		)
	}
	keyboard.InlineKeyboard = append(keyboard.InlineKeyboard,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", "main_menu"),
		),
	)
	return keyboard
}

// SchedulesMenu offers editing each base schedule
func SchedulesMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💉 Базал", "edit_schedule:basal"),
			tgbotapi.NewInlineKeyboardButtonData("📉 ФЧИ", "edit_schedule:sensitivity"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍞 УК", "edit_schedule:carb_ratio"),
			tgbotapi.NewInlineKeyboardButtonData("🎯 Цель", "edit_schedule:target"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌍 Часовой пояс", "time_zone"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", "main_menu"),
		),
	)
}

// BackToMain is a single-button keyboard
func BackToMain() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Главное меню", "main_menu"),
		),
	)
}
