package services

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"github.com/vartik/vartikgpt/internal/clients/directory"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

const recentChatsFanOut = 8

type RecentChatsService interface {
	List(ctx context.Context, owner string) ([]models.RecentChat, error)
}

type recentChatsService struct {
	users directory.UserDirectory
	chats directory.ChatDirectory
	log   *logrus.Logger
}

func NewRecentChatsService(users directory.UserDirectory, chats directory.ChatDirectory, log *logrus.Logger) RecentChatsService {
	return &recentChatsService{users: users, chats: chats, log: log}
}

// List returns one row per chat of owner, newest first, labelled with its latest user message.
// A chat whose history cannot be read is skipped.
func (s *recentChatsService) List(ctx context.Context, owner string) ([]models.RecentChat, error) {
	const op = "RecentChatsService.List"
	log := s.log.WithFields(logrus.Fields{"op": op, "owner": owner})

	user, err := s.users.GetUserByExternalID(ctx, owner)
	if err != nil {
		return nil, err
	}
	refs, err := s.chats.ListChatByUser(ctx, user.ID)
	if utils.IsCode(err, utils.CodeNotFound) {
		return []models.RecentChat{}, nil
	}
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[*models.RecentChat]().WithMaxGoroutines(recentChatsFanOut)
	for _, sid := range uniqueSessionIDs(refs) {
		p.Go(func() *models.RecentChat {
			msgs, err := s.chats.ListChatBySession(ctx, sid)
			if err != nil {
				log.WithField("chat_id", sid).WithError(err).Warn("chat history fetch failed")
				return nil
			}
			return recentChatOf(sid, msgs)
		})
	}

	out := make([]models.RecentChat, 0, len(refs))
	for _, rc := range p.Wait() {
		if rc != nil {
			out = append(out, *rc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func uniqueSessionIDs(refs []models.ChatSessionRef) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.SessionID == "" {
			continue
		}
		if _, ok := seen[r.SessionID]; ok {
			continue
		}
		seen[r.SessionID] = struct{}{}
		out = append(out, r.SessionID)
	}
	return out
}

func recentChatOf(sid string, msgs []models.ChatMessage) *models.RecentChat {
	rc := &models.RecentChat{SessionID: sid}
	if m, ok := models.LatestMessage(msgs, models.ChatRoleUser); ok {
		rc.Message = m.Message
		rc.Timestamp = m.UpdatedDateTime.Time
	} else if m, ok := models.LatestMessage(msgs, ""); ok {
		rc.Timestamp = m.UpdatedDateTime.Time
	}
	rc.Preview = models.PreviewOf(rc.Message)
	return rc
}
