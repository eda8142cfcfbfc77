package service

import (
	"strings"

	"telegram-shop-backend/internal/common/logger"
	"telegram-shop-backend/internal/platform/telegram"
)

// parseButtons turns raw "Label | https://url" lines into keyboard rows, one
// button per row. Malformed lines are dropped with a warning; the rest of the
// job proceeds with whatever valid buttons remain.
func parseButtons(raw string) [][]telegram.InlineKeyboardButton {
	if raw == "" {
		return nil
	}
	var rows [][]telegram.InlineKeyboardButton
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, u, found := strings.Cut(line, "|")
		label = strings.TrimSpace(label)
		u = strings.TrimSpace(u)
		if !found || label == "" || u == "" {
			logger.Warn().Str("line", line).Msg("Malformed broadcast button, expected 'Label | URL'")
			continue
		}
		rows = append(rows, []telegram.InlineKeyboardButton{{Text: label, URL: u}})
	}
	return rows
}

func buildMarkup(raw string) *telegram.InlineKeyboardMarkup {
	rows := parseButtons(raw)
	if len(rows) == 0 {
		return nil
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}
