// Package protocol defines the wire messages exchanged between the shopping
// client and server, and a newline-delimited JSON codec for them.
//
// Every message is one JSON object on one line. Client to server messages are
// requests carrying an action name. Server to client messages are either the
// single reply to the outstanding request, or an unsolicited push event; push
// events are the only server messages carrying an "action" field, which is how
// the client tells them apart.
package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"
)

// Request actions
const (
	ActionLogin       = "login"
	ActionRegister    = "register"
	ActionGetProducts = "get_products"
	ActionCheckout    = "checkout"
	ActionGetHistory  = "get_history"

	// ActionStockUpdate marks the one unsolicited server push
	ActionStockUpdate = "stock_update"
)

// Response statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrMalformed reports an undecodable message. The stream itself is still
// readable; the caller should report the error and keep going.
var ErrMalformed = errors.New("malformed message")

// maxLineBytes bounds a single wire message.
const maxLineBytes = 1 << 20

// Request is one client to server message.
type Request struct {
	Action   string            `json:"action"`
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	Cart     []models.CartLine `json:"cart,omitempty"`
}

// ServerMessage is one server to client message: either the reply to the
// outstanding request, or a stock_update push event.
type ServerMessage struct {
	Action    string                     `json:"action,omitempty"`
	Status    string                     `json:"status,omitempty"`
	Message   string                     `json:"message,omitempty"`
	Products  []models.Product           `json:"products,omitempty"`
	Orders    []models.OrderHistoryEntry `json:"orders,omitempty"`
	ProductID int64                      `json:"product_id,omitempty"`
	NewStock  *int                       `json:"new_stock,omitempty"`
}

// IsEvent reports whether the message is an unsolicited push event rather
// than a request reply.
func (m *ServerMessage) IsEvent() bool {
	return m.Action == ActionStockUpdate
}

// OK builds a bare success reply.
func OK() *ServerMessage {
	return &ServerMessage{Status: StatusSuccess}
}

// Errorf builds an error reply with a formatted message.
func Errorf(format string, args ...any) *ServerMessage {
	return &ServerMessage{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// StockUpdate builds the push event for one product's post-checkout stock.
func StockUpdate(productID int64, newStock int) *ServerMessage {
	return &ServerMessage{Action: ActionStockUpdate, ProductID: productID, NewStock: &newStock}
}

// Reader decodes newline-delimited messages from a stream.
type Reader struct {
	s *bufio.Scanner
}

// NewReader wraps r in a message reader.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &Reader{s: s}
}

// next returns the raw bytes of the next message, or the underlying stream
// error (io.EOF on clean close).
func (r *Reader) next() ([]byte, error) {
	for r.s.Scan() {
		line := r.s.Bytes()
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
	if err := r.s.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadRequest reads the next request. A bad payload is reported as
// ErrMalformed; the stream stays usable.
func (r *Reader) ReadRequest() (*Request, error) {
	line, err := r.next()
	if err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &req, nil
}

// ReadServerMessage reads the next reply or push event.
func (r *Reader) ReadServerMessage() (*ServerMessage, error) {
	line, err := r.next()
	if err != nil {
		return nil, err
	}
	var msg ServerMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &msg, nil
}

// Writer encodes messages onto a stream, one per line.
type Writer struct {
	enc *json.Encoder
}

// NewWriter wraps w in a message writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// WriteRequest writes one request.
func (w *Writer) WriteRequest(req *Request) error {
	return w.enc.Encode(req)
}

// WriteServerMessage writes one reply or push event.
func (w *Writer) WriteServerMessage(msg *ServerMessage) error {
	return w.enc.Encode(msg)
}
