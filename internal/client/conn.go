package client

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/protocol"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/util"

	"go.uber.org/zap"
)

// maxReconnectAttempts bounds one round of reconnection before the user is
// asked again.
const maxReconnectAttempts = 5

const dialTimeout = 10 * time.Second

// DecisionFunc answers whether to attempt reconnection after a disconnect;
// a UI shows a prompt, a headless consumer applies a policy. Returning false
// ends the session for good.
type DecisionFunc func() bool

// Options configures a ConnManager.
type Options struct {
	Addr           string
	RequestTimeout time.Duration
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	OnEvent        EventFunc
	Decide         DecisionFunc
}

// ConnManager ties the multiplexer to the reconnection state machine: it
// dials, hands the live connection to a Mux, and when the transport fails it
// walks the Disconnected / AwaitingUserDecision / Reconnecting states. Every
// recovered connection starts fresh; authentication state never survives a
// reconnect.
type ConnManager struct {
	opts   Options
	sm     *StateMachine
	logger *zap.Logger

	mu  sync.Mutex
	mux *Mux
}

// NewConnManager creates a connection manager. Call Connect to establish the
// first connection.
func NewConnManager(opts Options) *ConnManager {
	if opts.Decide == nil {
		opts.Decide = func() bool { return false }
	}
	return &ConnManager{
		opts:   opts,
		sm:     NewStateMachine(),
		logger: util.GetLogger(),
	}
}

// States returns the underlying state machine for subscription.
func (c *ConnManager) States() *StateMachine {
	return c.sm
}

// Connect establishes the initial connection.
func (c *ConnManager) Connect() error {
	if err := c.sm.Transition(StateReconnecting); err != nil {
		return err
	}
	if err := c.dial(); err != nil {
		_ = c.sm.Transition(StateAwaitingUserDecision)
		_ = c.sm.Transition(StateExited)
		return err
	}
	return c.sm.Transition(StateConnected)
}

func (c *ConnManager) dial() error {
	conn, err := net.DialTimeout("tcp", c.opts.Addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.opts.Addr, err)
	}

	c.mu.Lock()
	c.mux = NewMux(conn, c.opts.RequestTimeout, c.opts.OnEvent, c.handleDisconnect)
	c.mu.Unlock()
	return nil
}

// Do forwards one request to the current connection's multiplexer.
func (c *ConnManager) Do(req *protocol.Request) (*protocol.ServerMessage, error) {
	c.mu.Lock()
	mux := c.mux
	c.mu.Unlock()

	if mux == nil || c.sm.State() != StateConnected {
		return nil, ErrDisconnected
	}
	return mux.Do(req)
}

// handleDisconnect runs on the receive loop when the transport fails. Any
// request in flight has already observed a failure; nothing is retried
// automatically.
func (c *ConnManager) handleDisconnect(err error) {
	c.logger.Warn("Connection lost", zap.Error(err))

	c.mu.Lock()
	c.mux = nil
	c.mu.Unlock()

	if err := c.sm.Transition(StateDisconnected); err != nil {
		return
	}

	for {
		if err := c.sm.Transition(StateAwaitingUserDecision); err != nil {
			return
		}
		if !c.opts.Decide() {
			_ = c.sm.Transition(StateExited)
			return
		}
		if err := c.sm.Transition(StateReconnecting); err != nil {
			return
		}
		if c.reconnect() {
			_ = c.sm.Transition(StateConnected)
			return
		}
	}
}

// reconnect dials with exponential backoff between attempts, giving up after
// maxReconnectAttempts so the user can be asked again.
func (c *ConnManager) reconnect() bool {
	for attempt := 0; attempt < maxReconnectAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(backoffDelay(attempt-1, c.opts.BackoffBase, c.opts.BackoffMax))
		}
		if err := c.dial(); err != nil {
			c.logger.Warn("Reconnect attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}
		c.logger.Info("Reconnected", zap.String("addr", c.opts.Addr))
		return true
	}
	return false
}

// Close shuts the connection down deliberately.
func (c *ConnManager) Close() {
	c.mu.Lock()
	mux := c.mux
	c.mux = nil
	c.mu.Unlock()

	if mux != nil {
		mux.Close()
	}
	if c.sm.State() != StateExited {
		_ = c.sm.Transition(StateDisconnected)
		_ = c.sm.Transition(StateExited)
	}
}

// backoffDelay returns base * 2^retry capped at max.
func backoffDelay(retry int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = 30 * time.Second
	}
	if retry < 0 {
		return base
	}
	if retry > 30 {
		return max
	}
	d := base * time.Duration(1<<uint(retry))
	if d > max {
		return max
	}
	return d
}
