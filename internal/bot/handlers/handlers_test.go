package handlers

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	"github.com/vladimiradmaev/therapy-overrides/internal/domain"
	"github.com/vladimiradmaev/therapy-overrides/internal/history"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/state"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

func (s *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, s.sent)
	msg, ok := s.sent[len(s.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	return msg.Text
}

type fakeOverrideService struct {
	domain.OverrideService
	enacted   []override.Override
	cancelled int
}

func (f *fakeOverrideService) Enact(_ context.Context, _ int64, settings override.Settings, start time.Time, duration override.Duration, trigger override.EnactTrigger) (override.Override, error) {
	o, err := override.New(override.CustomContext, settings, start, duration, trigger, uuid.New())
	if err != nil {
		return override.Override{}, err
	}
	f.enacted = append(f.enacted, o)
	return o, nil
}

func (f *fakeOverrideService) Cancel(context.Context, int64) error {
	f.cancelled++
	return nil
}

func (f *fakeOverrideService) Sync(_ context.Context, _ int64, clientID string) (*domain.SyncResult, error) {
	return &domain.SyncResult{ClientID: clientID, Anchor: history.QueryAnchor{ModificationCounter: 3}}, nil
}

func commandMessage(text string) *tgbotapi.Message {
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: 5},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func newTestUser() *database.User {
	return &database.User{TelegramID: 42, TimeZone: "UTC"}
}

func TestParseScaleFactor(t *testing.T) {
	tests := map[string]float64{
		"80%":   0.8,
		"0.8":   0.8,
		"1,2":   1.2,
		" 150%": 1.5,
	}
	for input, want := range tests {
		got, err := parseScaleFactor(input)
		require.NoError(t, err, input)
		assert.InDelta(t, want, got, 1e-9, input)
	}

	for _, input := range []string{"", "abc", "0", "-1", "600%"} {
		_, err := parseScaleFactor(input)
		assert.Error(t, err, input)
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("90")
	require.NoError(t, err)
	assert.Equal(t, "1 ч 30 мин", formatDuration(d))

	d, err = parseDuration("2h")
	require.NoError(t, err)
	assert.Equal(t, "2 ч", formatDuration(d))

	d, err = parseDuration("45m")
	require.NoError(t, err)
	assert.Equal(t, "45 мин", formatDuration(d))

	d, err = parseDuration("0")
	require.NoError(t, err)
	assert.True(t, d.IsInfinite())
	assert.Equal(t, "бессрочно", formatDuration(d))

	for _, input := range []string{"soon", "-5", "-1h"} {
		_, err := parseDuration(input)
		assert.Error(t, err, input)
	}
}

func TestSplitPresetName(t *testing.T) {
	symbol, name := splitPresetName("🏃 Пробежка")
	assert.Equal(t, "🏃", symbol)
	assert.Equal(t, "Пробежка", name)

	symbol, name = splitPresetName("Вечерняя прогулка")
	assert.Empty(t, symbol)
	assert.Equal(t, "Вечерняя прогулка", name)
}

func TestCommandHandler_OverrideWithArguments(t *testing.T) {
	sender := &fakeSender{}
	svc := &fakeOverrideService{}
	states := state.NewManager()
	h := NewCommandHandler(sender, Dependencies{OverrideSvc: svc}, states)

	require.NoError(t, h.Handle(context.Background(), commandMessage("/override 80% 2h"), newTestUser()))

	require.Len(t, svc.enacted, 1)
	k, ok := svc.enacted[0].Settings().InsulinNeedsScaleFactor()
	require.True(t, ok)
	assert.InDelta(t, 0.8, k, 1e-9)
	interval, ok := svc.enacted[0].Duration().Interval()
	require.True(t, ok)
	assert.Equal(t, 2*time.Hour, interval)
	assert.Contains(t, sender.lastText(t), "80%")

	// remembered for "save as preset"
	v, ok := states.GetTempData(42, tempScaleFactor)
	require.True(t, ok)
	assert.InDelta(t, 0.8, v, 1e-9)
}

func TestCommandHandler_OverrideStartsDialog(t *testing.T) {
	sender := &fakeSender{}
	svc := &fakeOverrideService{}
	states := state.NewManager()
	commands := NewCommandHandler(sender, Dependencies{OverrideSvc: svc}, states)
	text := NewTextHandler(sender, Dependencies{OverrideSvc: svc}, states)
	user := newTestUser()
	ctx := context.Background()

	require.NoError(t, commands.Handle(ctx, commandMessage("/override"), user))
	assert.Equal(t, state.WaitingForScaleFactor, states.GetUserState(42))

	require.NoError(t, text.Handle(ctx, &tgbotapi.Message{Text: "120%", Chat: &tgbotapi.Chat{ID: 5}}, user))
	assert.Equal(t, state.WaitingForDuration, states.GetUserState(42))

	require.NoError(t, text.Handle(ctx, &tgbotapi.Message{Text: "0", Chat: &tgbotapi.Chat{ID: 5}}, user))
	assert.Equal(t, state.None, states.GetUserState(42))
	require.Len(t, svc.enacted, 1)
	assert.True(t, svc.enacted[0].Duration().IsInfinite())
}

func TestCommandHandler_CancelAndSync(t *testing.T) {
	sender := &fakeSender{}
	svc := &fakeOverrideService{}
	h := NewCommandHandler(sender, Dependencies{OverrideSvc: svc}, state.NewManager())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, commandMessage("/cancel"), newTestUser()))
	assert.Equal(t, 1, svc.cancelled)

	require.NoError(t, h.Handle(ctx, commandMessage("/sync pump"), newTestUser()))
	assert.Contains(t, sender.lastText(t), "якорь 3")
	assert.Contains(t, sender.lastText(t), "Изменений нет")
}

func TestFormatStatus(t *testing.T) {
	k := 0.5
	settings, err := override.NewSettings(nil, &k)
	require.NoError(t, err)
	d, err := override.Finite(2 * time.Hour)
	require.NoError(t, err)
	start := time.Date(2024, time.May, 14, 9, 0, 0, 0, time.UTC)
	o, err := override.New(override.CustomContext, settings, start, d, override.LocalTrigger, uuid.New())
	require.NoError(t, err)

	basal := 0.5
	text := formatStatus(&domain.OverrideStatus{At: start, Active: &o, Basal: &basal}, time.UTC)

	assert.Contains(t, text, "50%")
	assert.Contains(t, text, "с 09:00 до 11:00")
	assert.Contains(t, text, "0.50 ед/ч")
	assert.Contains(t, text, "ФЧИ: не задано")
}
