package client

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/protocol"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrTimeout reports that no reply arrived within the request timeout.
	// The connection is not assumed broken; the mux accepts new requests.
	ErrTimeout = errors.New("request timed out")

	// ErrRequestInFlight reports a second Do before the first resolved.
	// Only one outstanding synchronous request is supported.
	ErrRequestInFlight = errors.New("request already in flight")

	// ErrDisconnected reports that the transport failed or was closed.
	ErrDisconnected = errors.New("connection lost")
)

// EventFunc consumes unsolicited push events from the receive loop.
type EventFunc func(*protocol.ServerMessage)

// Mux owns one connection's traffic on the client side. A dedicated receive
// loop separates the reply to the outstanding request from unsolicited push
// events: any message carrying the stock_update action marker goes to the
// event consumer, everything else resolves the pending request.
type Mux struct {
	conn         net.Conn
	writer       *protocol.Writer
	timeout      time.Duration
	onEvent      EventFunc
	onDisconnect func(error)
	logger       *zap.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending chan *protocol.ServerMessage
	closed  bool
}

// NewMux wraps an established connection and starts its receive loop.
// onEvent receives push events; onDisconnect fires once when the transport
// fails (not when Close is called).
func NewMux(conn net.Conn, timeout time.Duration, onEvent EventFunc, onDisconnect func(error)) *Mux {
	m := &Mux{
		conn:         conn,
		writer:       protocol.NewWriter(conn),
		timeout:      timeout,
		onEvent:      onEvent,
		onDisconnect: onDisconnect,
		logger:       util.GetLogger(),
	}
	go m.receiveLoop()
	return m
}

// Do sends one request and blocks until its reply, the timeout, or a
// transport failure. The one-shot completion channel is created per request,
// making the single-outstanding-request constraint explicit.
func (m *Mux) Do(req *protocol.Request) (*protocol.ServerMessage, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrDisconnected
	}
	if m.pending != nil {
		m.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	ch := make(chan *protocol.ServerMessage, 1)
	m.pending = ch
	m.mu.Unlock()

	if err := m.write(req); err != nil {
		m.clearPending(ch)
		return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrDisconnected
		}
		return resp, nil
	case <-timer.C:
		m.clearPending(ch)
		// The receive loop may have resolved the request between the timer
		// firing and the clear; prefer the reply if it did.
		select {
		case resp, ok := <-ch:
			if ok {
				return resp, nil
			}
			return nil, ErrDisconnected
		default:
		}
		return nil, ErrTimeout
	}
}

func (m *Mux) write(req *protocol.Request) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := m.writer.WriteRequest(req); err != nil {
		m.fail(err)
		return err
	}
	return nil
}

func (m *Mux) receiveLoop() {
	reader := protocol.NewReader(m.conn)
	for {
		msg, err := reader.ReadServerMessage()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				m.logger.Warn("Dropping malformed server message", zap.Error(err))
				continue
			}
			m.fail(err)
			return
		}

		if msg.IsEvent() {
			if m.onEvent != nil {
				m.onEvent(msg)
			}
			continue
		}

		m.resolve(msg)
	}
}

func (m *Mux) resolve(msg *protocol.ServerMessage) {
	m.mu.Lock()
	ch := m.pending
	m.pending = nil
	m.mu.Unlock()

	if ch == nil {
		m.logger.Warn("Dropping reply with no request outstanding")
		return
	}
	ch <- msg
}

func (m *Mux) clearPending(ch chan *protocol.ServerMessage) {
	m.mu.Lock()
	if m.pending == ch {
		m.pending = nil
	}
	m.mu.Unlock()
}

// fail marks the mux dead, fails the outstanding request if any, and
// reports the disconnect upward exactly once.
func (m *Mux) fail(err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	ch := m.pending
	m.pending = nil
	m.mu.Unlock()

	if ch != nil {
		close(ch)
	}
	_ = m.conn.Close()
	if m.onDisconnect != nil {
		m.onDisconnect(err)
	}
}

// Close tears the mux down deliberately, without the disconnect callback.
func (m *Mux) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	ch := m.pending
	m.pending = nil
	m.mu.Unlock()

	if ch != nil {
		close(ch)
	}
	_ = m.conn.Close()
}
