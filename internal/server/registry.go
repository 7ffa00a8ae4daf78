package server

import (
	"net"
	"sync"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/protocol"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/util"

	"go.uber.org/zap"
)

// outboundBuffer is the per-session queue of unsent messages. A session that
// falls this far behind is treated as failed and pruned.
const outboundBuffer = 64

// Session is the routing record for one live connection: its identity plus
// the outbound channel draining to the socket. It owns no business data.
type Session struct {
	ID string

	conn      net.Conn
	out       chan *protocol.ServerMessage
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id string, conn net.Conn) *Session {
	return &Session{
		ID:   id,
		conn: conn,
		out:  make(chan *protocol.ServerMessage, outboundBuffer),
		done: make(chan struct{}),
	}
}

// Send enqueues one message for delivery. It never blocks; false means the
// session is closed or its buffer is full, and the caller should treat the
// session as dead.
func (s *Session) Send(msg *protocol.ServerMessage) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- msg:
		return true
	case <-s.done:
		return false
	default:
		return false
	}
}

// writeLoop drains the outbound channel to the socket. It is the single
// writer for the connection, so request replies and broadcast events never
// interleave mid-message. onFail runs once when a write fails.
func (s *Session) writeLoop(onFail func()) {
	w := protocol.NewWriter(s.conn)
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.out:
			if err := w.WriteServerMessage(msg); err != nil {
				onFail()
				return
			}
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Registry is the server-wide map from connection identity to session. One
// lock guards registration, unregistration and the broadcast snapshot.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	logger   *zap.Logger
}

// NewRegistry creates an empty session registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   util.GetLogger(),
	}
}

// Register adds a session. An existing session with the same identity is
// closed and replaced.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	old, exists := r.sessions[s.ID]
	r.sessions[s.ID] = s
	r.mu.Unlock()

	if exists {
		old.close()
	} else {
		util.SessionsConnected.Inc()
	}
}

// Unregister removes and closes a session. Safe to call more than once.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		s.close()
		util.SessionsConnected.Dec()
	}
}

// Broadcast delivers one message to every registered session. A session
// whose outbound channel fails is pruned; the rest still get the message.
// Failures are logged, never returned.
func (r *Registry) Broadcast(msg *protocol.ServerMessage) {
	r.mu.Lock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.Unlock()

	for _, s := range snapshot {
		if !s.Send(msg) {
			r.logger.Warn("Dropping session on broadcast failure", zap.String("session_id", s.ID))
			util.BroadcastDropsTotal.Inc()
			r.Unregister(s.ID)
		}
	}
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll unregisters every session, used on server shutdown
func (r *Registry) CloseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Unregister(id)
	}
}
