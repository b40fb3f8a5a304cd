package models

import (
	"sort"
	"time"
)

const (
	ChatRoleUser      = "User"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one persisted row of chat history, grouped by SessionID.
type ChatMessage struct {
	ID              int64     `json:"id,omitempty"`
	SessionID       string    `json:"sessionId"`
	UserID          int64     `json:"userId"`
	Role            string    `json:"role"`
	Message         string    `json:"message"`
	UpdatedDateTime Timestamp `json:"updatedDateTime"`
	CachingEnabled  FlagValue `json:"cachingEnabled"`
	RoutingEnabled  FlagValue `json:"routingEnabled"`
}

// ChatSessionRef is a row of /ChatHistory/user/{id}; only the grouping key matters.
type ChatSessionRef struct {
	SessionID string `json:"sessionId"`
}

// SortChronological orders history oldest first.
func SortChronological(msgs []ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].UpdatedDateTime.Before(msgs[j].UpdatedDateTime.Time)
	})
}

// LatestMessage returns the newest message, optionally restricted to one role (case-insensitive).
func LatestMessage(msgs []ChatMessage, role string) (ChatMessage, bool) {
	var (
		best  ChatMessage
		found bool
	)
	for _, m := range msgs {
		if role != "" && !equalFold(m.Role, role) {
			continue
		}
		if !found || m.UpdatedDateTime.After(best.UpdatedDateTime.Time) {
			best, found = m, true
		}
	}
	return best, found
}

// TranscriptEntry is one displayed line of a chat, including diagnostics that never reach the directory.
type TranscriptEntry struct {
	Role       string    `json:"role" bson:"role"`
	Message    string    `json:"message" bson:"message"`
	Diagnostic bool      `json:"diagnostic,omitempty" bson:"diagnostic,omitempty"`
	At         time.Time `json:"at" bson:"at"`
}

// RecentChat is one row of the recent chats sidebar.
type RecentChat struct {
	SessionID string    `json:"sessionId"`
	Message   string    `json:"message"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
}

const previewLen = 30

// PreviewOf shortens a message for the sidebar; an empty message reads "New Chat".
func PreviewOf(msg string) string {
	if msg == "" {
		return "New Chat"
	}
	r := []rune(msg)
	if len(r) > previewLen {
		r = r[:previewLen]
	}
	return string(r) + "..."
}
