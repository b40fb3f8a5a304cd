package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transcript is the displayed conversation of one chat for one user. Speaking holds the index
// of the entry currently being read aloud, if any.
type Transcript struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Owner     string             `bson:"owner" json:"owner"`
	ChatID    string             `bson:"chat_id" json:"chatId"`
	Entries   []TranscriptEntry  `bson:"entries" json:"entries"`
	Speaking  *int               `bson:"speaking,omitempty" json:"speaking,omitempty"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
	ExpiresAt time.Time          `bson:"expires_at" json:"-"` // for TTL index
}
