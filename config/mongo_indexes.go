package config

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureTranscriptIndexes creates the indexes the transcript repository relies on.
func EnsureTranscriptIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := db.Collection("chat_transcripts").Indexes().CreateMany(ctx, []mongo.IndexModel{
		// expire idle transcripts at expires_at (must be Date)
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		// one view buffer per owner and chat
		{
			Keys: bson.D{{Key: "owner", Value: 1}, {Key: "chat_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_owner_chat").
				SetUnique(true),
		},
	})
	return err
}
