package wssender

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Repo serializes writes per connection so a client observes events in the
// order the server processed them. Delivery is best effort: a failed write is
// logged and skipped, never retried.
type Repo struct {
	writeLocks map[*websocket.Conn]*sync.Mutex
	mu         sync.Mutex
	logger     *slog.Logger
}

func NewRepo(logger *slog.Logger) *Repo {
	return &Repo{
		writeLocks: make(map[*websocket.Conn]*sync.Mutex),
		logger:     logger,
	}
}

func (r *Repo) lockFor(conn *websocket.Conn) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.writeLocks[conn]
	if !ok {
		lock = &sync.Mutex{}
		r.writeLocks[conn] = lock
	}

	return lock
}

func (r *Repo) Send(conn *websocket.Conn, event string, payload any) error {
	lock := r.lockFor(conn)
	lock.Lock()
	defer lock.Unlock()

	return conn.WriteJSON(&Output{
		Type:    event,
		Payload: payload,
	})
}

func (r *Repo) Broadcast(conns []*websocket.Conn, event string, payload any) {
	for _, conn := range conns {
		if err := r.Send(conn, event, payload); err != nil {
			r.logger.Info("failed to write to conn", "event", event, "error", err)
		}
	}
}

// Forget drops the write lock of a closed connection.
func (r *Repo) Forget(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.writeLocks, conn)
}

const closeWriteTimeout = 5 * time.Second

// Close shuts a superseded connection down: a best-effort close frame, then
// the transport, then the write lock.
func (r *Repo) Close(conn *websocket.Conn) {
	lock := r.lockFor(conn)
	lock.Lock()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "connection superseded"),
		time.Now().Add(closeWriteTimeout),
	)
	conn.Close()
	lock.Unlock()

	r.Forget(conn)
}
