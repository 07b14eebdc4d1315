package menus

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/therapy-overrides/internal/bot/keyboards"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
)

// Sender is the part of the Telegram API menus need
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// SendMainMenu sends the main menu to a chat
func SendMainMenu(api Sender, chatID int64) error {
	text := `🤖 *Временные цели* — помощник для коррекции терапии

🎛️ Временная цель меняет потребность в инсулине и/или целевой диапазон на заданное время:
• Базал умножается на коэффициент
• ФЧИ и углеводный коэффициент делятся на него

⚠️ *Важно:* Это справочная информация, всегда консультируйтесь с врачом!

Выберите действие:`

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboards.MainMenu()
	_, err := api.Send(msg)
	return err
}

// SendPresetsMenu sends the list of presets
func SendPresetsMenu(api Sender, chatID int64, presets []override.Preset) error {
	text := "Ваши пресеты:"
	if len(presets) == 0 {
		text = "У вас пока нет пресетов. Включите временную цель и нажмите «Сохранить как пресет»."
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboards.PresetsMenu(presets)
	_, err := api.Send(msg)
	return err
}

// SendSchedulesMenu sends the base schedules with editing buttons
func SendSchedulesMenu(api Sender, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboards.SchedulesMenu()
	_, err := api.Send(msg)
	return err
}

// SendText sends a plain message with a way back to the main menu
func SendText(api Sender, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboards.BackToMain()
	_, err := api.Send(msg)
	return err
}
