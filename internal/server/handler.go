package server

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/protocol"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/service"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/util"

	"go.uber.org/zap"
)

// Handler serves one accepted connection per call: it decodes requests,
// dispatches them and enqueues exactly one reply per request on the
// session's outbound channel.
type Handler struct {
	shop        *service.ShopService
	checkout    *service.CheckoutCoordinator
	registry    *Registry
	idleTimeout time.Duration
	logger      *zap.Logger
}

// NewHandler creates a new connection handler
func NewHandler(shop *service.ShopService, checkout *service.CheckoutCoordinator, registry *Registry, idleTimeout time.Duration) *Handler {
	return &Handler{
		shop:        shop,
		checkout:    checkout,
		registry:    registry,
		idleTimeout: idleTimeout,
		logger:      util.GetLogger(),
	}
}

// Handle runs the read loop for one connection until the stream closes, the
// idle timeout expires, or ctx is cancelled. It registers the session on
// entry and unregisters it on every exit path.
func (h *Handler) Handle(ctx context.Context, conn net.Conn) {
	id := conn.RemoteAddr().String()
	sess := newSession(id, conn)
	h.registry.Register(sess)
	util.SessionsTotal.Inc()
	h.logger.Info("Client connected", zap.String("session_id", id))

	go sess.writeLoop(func() {
		h.registry.Unregister(id)
	})
	defer h.registry.Unregister(id)

	reader := protocol.NewReader(conn)
	for {
		if h.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(h.idleTimeout))
		}

		req, err := reader.ReadRequest()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				// One bad message does not cost the connection.
				util.ProtocolErrorsTotal.Inc()
				h.logger.Warn("Invalid message from client", zap.String("session_id", id), zap.Error(err))
				if !sess.Send(protocol.Errorf("Invalid JSON format")) {
					return
				}
				continue
			}

			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				// Idle expiry closes the connection without a final reply.
				util.IdleTimeoutsTotal.Inc()
				h.logger.Info("Client timed out", zap.String("session_id", id))
			case errors.Is(err, io.EOF):
				h.logger.Info("Client disconnected", zap.String("session_id", id))
			default:
				h.logger.Warn("Read failed", zap.String("session_id", id), zap.Error(err))
			}
			return
		}

		resp := h.dispatch(ctx, req)
		util.RequestsTotal.WithLabelValues(req.Action, resp.Status).Inc()
		if !sess.Send(resp) {
			return
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, req *protocol.Request) *protocol.ServerMessage {
	switch req.Action {
	case protocol.ActionLogin:
		if _, err := h.shop.Login(ctx, req.Username, req.Password); err != nil {
			return errorReply(err)
		}
		return protocol.OK()

	case protocol.ActionRegister:
		if err := h.shop.Register(ctx, req.Username, req.Password); err != nil {
			return errorReply(err)
		}
		return protocol.OK()

	case protocol.ActionGetProducts:
		products, err := h.shop.Products(ctx)
		if err != nil {
			return errorReply(err)
		}
		return &protocol.ServerMessage{Status: protocol.StatusSuccess, Products: products}

	case protocol.ActionCheckout:
		if err := h.checkout.Checkout(ctx, req.Username, req.Cart); err != nil {
			return errorReply(err)
		}
		return protocol.OK()

	case protocol.ActionGetHistory:
		orders, err := h.shop.History(ctx, req.Username)
		if err != nil {
			return errorReply(err)
		}
		return &protocol.ServerMessage{Status: protocol.StatusSuccess, Orders: orders}

	default:
		return protocol.Errorf("Unknown action")
	}
}

// errorReply maps a service error to the structured error reply for the
// originating request. Validation failures keep their message; anything else
// is reported generically.
func errorReply(err error) *protocol.ServerMessage {
	var stockErr *models.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return protocol.Errorf("Insufficient stock for product ID %d", stockErr.ProductID)
	case errors.Is(err, models.ErrUnknownUser):
		return protocol.Errorf("User not found")
	case errors.Is(err, models.ErrInvalidCredentials):
		return protocol.Errorf("Invalid credentials")
	case errors.Is(err, models.ErrUsernameTaken):
		return protocol.Errorf("Username already exists")
	case errors.Is(err, service.ErrInvalidCart):
		return protocol.Errorf("%s", err.Error())
	default:
		util.GetLogger().Error("Request failed", zap.Error(err))
		return protocol.Errorf("Internal server error")
	}
}
