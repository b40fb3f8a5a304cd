package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/services"
	"github.com/vartik/vartikgpt/internal/workers"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 60 * time.Second
)

type RecentChatsHandler struct {
	svc      services.RecentChatsService
	interval time.Duration
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

// NewRecentChatsHandler accepts websocket upgrades from allowedOrigins; an empty list allows any origin.
func NewRecentChatsHandler(svc services.RecentChatsService, interval time.Duration, allowedOrigins []string, log *logrus.Logger) *RecentChatsHandler {
	return &RecentChatsHandler{
		svc:      svc,
		interval: interval,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := map[string]struct{}{}
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *RecentChatsHandler) List(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	chats, err := h.svc.List(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.c.WriteJSON(v)
}

type recentChatsFrame struct {
	Type  string              `json:"type"`
	Chats []models.RecentChat `json:"chats"`
}

// Stream pushes the recent chats list over a websocket until the client goes away.
// The poller lives exactly as long as the connection.
func (h *RecentChatsHandler) Stream(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// reader: only control frames matter; any read error means the client left
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		}
	}()

	go func() {
		t := time.NewTicker(wsPongWait / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	p := &workers.RecentChatsPoller{
		Chats:    h.svc,
		Owner:    owner,
		Interval: h.interval,
		Logger:   h.log,
		Publish: func(chats []models.RecentChat) error {
			return wc.writeJSON(recentChatsFrame{Type: "recent_chats", Chats: chats})
		},
	}
	if err := p.Run(ctx); err != nil {
		h.log.WithField("owner", owner).WithError(err).Debug("recent chats stream closed")
	}
}
