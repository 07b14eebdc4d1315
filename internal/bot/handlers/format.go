package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	"github.com/vladimiradmaev/therapy-overrides/internal/domain"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
)

// parseScaleFactor accepts "80%", "0.8" and "0,8".
func parseScaleFactor(text string) (float64, error) {
	text = strings.TrimSpace(text)
	percent := strings.HasSuffix(text, "%")
	text = strings.TrimSuffix(text, "%")
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", text)
	}
	if percent {
		v /= 100
	}
	if v <= 0 || v > 5 {
		return 0, fmt.Errorf("scale factor %.2f out of range", v)
	}
	return v, nil
}

// parseDuration accepts minutes ("90"), Go durations ("1h30m") and "0" or
// "∞" for an indefinite override.
func parseDuration(text string) (override.Duration, error) {
	text = strings.TrimSpace(strings.ToLower(text))
	switch text {
	case "0", "∞", "inf", "бессрочно":
		return override.Indefinite, nil
	}
	if minutes, err := strconv.Atoi(text); err == nil {
		return override.Finite(time.Duration(minutes) * time.Minute)
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return override.Duration{}, fmt.Errorf("invalid duration %q", text)
	}
	return override.Finite(d)
}

func durationMinutes(d override.Duration) int {
	if interval, ok := d.Interval(); ok {
		return int(interval / time.Minute)
	}
	return 0
}

func formatDuration(d override.Duration) string {
	interval, ok := d.Interval()
	if !ok {
		return "бессрочно"
	}
	h := int(interval / time.Hour)
	m := int(interval % time.Hour / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%d мин", m)
	case m == 0:
		return fmt.Sprintf("%d ч", h)
	default:
		return fmt.Sprintf("%d ч %d мин", h, m)
	}
}

func formatSettings(s override.Settings) string {
	var parts []string
	if k, ok := s.InsulinNeedsScaleFactor(); ok {
		parts = append(parts, fmt.Sprintf("потребность в инсулине %.0f%%", k*100))
	}
	if r, ok := s.TargetRange(); ok {
		parts = append(parts, fmt.Sprintf("цель %s", r))
	}
	if len(parts) == 0 {
		return "без изменений"
	}
	return strings.Join(parts, ", ")
}

func formatOverride(o override.Override, loc *time.Location) string {
	name := "Временная цель"
	if p := o.Context().Preset; p != nil {
		name = strings.TrimSpace(p.Symbol + " " + p.Name)
	}
	end := "бессрочно"
	if !o.Duration().IsInfinite() {
		end = "до " + o.ScheduledEndDate().In(loc).Format("15:04")
	}
	return fmt.Sprintf("%s: %s, с %s %s",
		name, formatSettings(o.Settings()), o.StartDate().In(loc).Format("15:04"), end)
}

func formatStatus(status *domain.OverrideStatus, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📊 *Текущие настройки*\n\n")

	if status.Active != nil {
		fmt.Fprintf(&b, "✅ Активно: %s\n", formatOverride(*status.Active, loc))
	} else {
		b.WriteString("Нет активной временной цели\n")
	}
	for _, o := range status.Upcoming {
		fmt.Fprintf(&b, "🕒 Запланировано: %s\n", formatOverride(o, loc))
	}
	b.WriteString("\n")

	writeValue := func(label string, v *float64, unit string) {
		if v == nil {
			fmt.Fprintf(&b, "%s: не задано\n", label)
			return
		}
		fmt.Fprintf(&b, "%s: %.2f %s\n", label, *v, unit)
	}
	writeValue("💉 Базал", status.Basal, "ед/ч")
	writeValue("📉 ФЧИ", status.Sensitivity, "мг/дл на ед")
	writeValue("🍞 Углеводный коэф.", status.CarbRatio, "г на ед")
	if status.Target != nil {
		fmt.Fprintf(&b, "🎯 Цель: %s мг/дл\n", status.Target)
	} else {
		b.WriteString("🎯 Цель: не задано\n")
	}
	return b.String()
}

var scheduleTitles = map[string]string{
	database.ScheduleBasal:       "💉 Базал",
	database.ScheduleSensitivity: "📉 ФЧИ",
	database.ScheduleCarbRatio:   "🍞 Углеводный коэф.",
	database.ScheduleTarget:      "🎯 Цель",
}

func formatEntries(kind string, entries []database.ScheduleEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", scheduleTitles[kind])
	if len(entries) == 0 {
		b.WriteString("  не задано\n")
		return b.String()
	}
	for _, e := range entries {
		if kind == database.ScheduleTarget {
			fmt.Fprintf(&b, "  %s — %g-%g\n", e.StartTime, e.Value, e.MaxValue)
			continue
		}
		fmt.Fprintf(&b, "  %s — %g\n", e.StartTime, e.Value)
	}
	return b.String()
}

func userLocation(user *database.User) *time.Location {
	loc, err := time.LoadLocation(user.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// tempFloat reads a number stored as temp data; Redis hands numbers back as
// float64, the memory store as whatever was stored.
func tempFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
