package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/therapy-overrides/internal/domain"
)

// Sender is the part of the Telegram API the handlers use
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Dependencies holds all service dependencies for handlers
type Dependencies struct {
	UserService domain.UserService
	ScheduleSvc domain.ScheduleService
	OverrideSvc domain.OverrideService
}

// temp data keys
const (
	tempScaleFactor = "scale_factor"
	tempDuration    = "duration_minutes"
)
