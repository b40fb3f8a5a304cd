package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/repositories"
	"github.com/vartik/vartikgpt/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const TranscriptCollection = "chat_transcripts"

type transcriptRepo struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewTranscriptRepo(db *mongo.Database, ttl time.Duration) repositories.TranscriptRepository {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &transcriptRepo{col: db.Collection(TranscriptCollection), ttl: ttl}
}

func byChat(owner, chatID string) bson.M {
	return bson.M{"owner": owner, "chat_id": chatID}
}

func (r *transcriptRepo) Append(ctx context.Context, owner, chatID string, entries ...models.TranscriptEntry) error {
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].At.IsZero() {
			entries[i].At = now
		}
	}
	_, err := r.col.UpdateOne(ctx,
		byChat(owner, chatID),
		bson.M{
			"$push": bson.M{"entries": bson.M{"$each": entries}},
			"$set":  bson.M{"updated_at": now, "expires_at": now.Add(r.ttl)},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *transcriptRepo) Get(ctx context.Context, owner, chatID string) (*models.Transcript, error) {
	var t models.Transcript
	err := r.col.FindOne(ctx, byChat(owner, chatID)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transcriptRepo) Rename(ctx context.Context, owner, from, to string) error {
	res, err := r.col.UpdateOne(ctx,
		byChat(owner, from),
		bson.M{"$set": bson.M{"chat_id": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *transcriptRepo) SetSpeaking(ctx context.Context, owner, chatID string, index *int) error {
	update := bson.M{"$unset": bson.M{"speaking": ""}}
	if index != nil {
		update = bson.M{"$set": bson.M{"speaking": *index}}
	}
	res, err := r.col.UpdateOne(ctx, byChat(owner, chatID), update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *transcriptRepo) Delete(ctx context.Context, owner, chatID string) error {
	_, err := r.col.DeleteOne(ctx, byChat(owner, chatID))
	return err
}
