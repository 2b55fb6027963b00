package model

import "context"

// ConversationRepository stores chat sessions for the HTTP front end.
// The graph never reads it; it only sees the history handed to it.
type ConversationRepository interface {
	// AddTurn appends an answered exchange to the conversation.
	AddTurn(ctx context.Context, conversationID string, turn Turn) error

	// LoadHistory returns the stored turns, oldest first.
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes all turns of a conversation.
	ClearHistory(ctx context.Context, conversationID string) error

	// GetTurnCount returns the number of stored turns.
	GetTurnCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Turns          []Turn
}
