package conversations

import (
	"strings"

	"github.com/travelbot-core/server/internal/agent/model"
)

// HistoryFormatter renders caller-supplied turns for the chitchat prompt.
type HistoryFormatter struct {
	maxTurns int
}

func NewHistoryFormatter(config model.ConversationConfig) *HistoryFormatter {
	return &HistoryFormatter{maxTurns: config.MaxTurns}
}

// Format renders the most recent turns, oldest first, one line per speaker.
// Empty sides of a turn are skipped.
func (f *HistoryFormatter) Format(turns []model.Turn) string {
	var b strings.Builder
	for _, t := range trimTail(turns, f.maxTurns) {
		if user := strings.TrimSpace(t.User); user != "" {
			b.WriteString("User: " + user + "\n")
		}
		if agent := strings.TrimSpace(t.Agent); agent != "" {
			b.WriteString("Assistant: " + agent + "\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// ====================== Helper function ======================
// trimTail keeps the last maxTurns items; maxTurns <= 0 keeps everything.
func trimTail[T any](items []T, maxTurns int) []T {
	if maxTurns <= 0 || len(items) <= maxTurns {
		return items
	}
	return items[len(items)-maxTurns:]
}
