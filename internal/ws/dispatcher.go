package ws

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/protocol"
)

// MessageHandler handles one parsed client message. msg is the value
// returned by protocol.ParseClientMessage (e.g. protocol.UserJoin). A
// returned error is reported to the sender through the ErrorMapper.
type MessageHandler func(ctx context.Context, conn *Connection, msg any) error

// ErrorMapper turns a handler error into the event sent back to the client.
type ErrorMapper func(err error) (event string, payload any)

// MessageDispatcher routes incoming WebSocket messages to registered handlers
// based on the message type. It answers ping internally and sends structured
// error responses for malformed or unsupported messages.
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	mapError ErrorMapper
}

// NewMessageDispatcher creates an empty MessageDispatcher.
func NewMessageDispatcher() *MessageDispatcher {
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		mapError: internalError,
	}
}

// Register associates a MessageHandler with a message type. If a handler was
// already registered for the given type, it is silently replaced.
func (d *MessageDispatcher) Register(msgType string, handler MessageHandler) {
	d.handlers[msgType] = handler
}

// SetErrorMapper replaces the default mapper, which reports every handler
// error as an internal error.
func (d *MessageDispatcher) SetErrorMapper(m ErrorMapper) {
	d.mapError = m
}

// Dispatch is the onMessage callback implementation. It parses the raw bytes
// into a typed message, handles ping internally, and routes all other types to
// the registered handler.
func (d *MessageDispatcher) Dispatch(ctx context.Context, conn *Connection, data []byte) {
	msgType, msg, err := protocol.ParseClientMessage(data)
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		log.Debug().Str("component", "ws").Str("conn", conn.ID).Str("type", msgType).Msg("unsupported message type")
		d.reply(conn, protocol.TypeError, protocol.ErrorMsg{Code: protocol.CodeUnsupportedType, Message: "unsupported message type"})
		return
	case errors.Is(err, protocol.ErrInvalidPayload):
		log.Debug().Str("component", "ws").Str("conn", conn.ID).Err(err).Msg("invalid payload")
		d.reply(conn, protocol.TypeError, protocol.ErrorMsg{Code: protocol.CodeInvalidPayload, Message: err.Error()})
		return
	case err != nil:
		log.Debug().Str("component", "ws").Str("conn", conn.ID).Err(err).Msg("parse error")
		d.reply(conn, protocol.TypeError, protocol.ErrorMsg{Code: protocol.CodeParseError, Message: "invalid message format"})
		return
	}

	// Built-in ping handler: respond immediately without requiring registration.
	if msgType == protocol.TypePing {
		conn.Touch()
		d.reply(conn, protocol.TypePong, protocol.PongMsg{})
		return
	}

	handler, ok := d.handlers[msgType]
	if !ok {
		d.reply(conn, protocol.TypeError, protocol.ErrorMsg{Code: protocol.CodeUnsupportedType, Message: "unsupported message type"})
		return
	}

	if err := handler(ctx, conn, msg); err != nil {
		event, payload := d.mapError(err)
		d.reply(conn, event, payload)
	}
}

// reply queues a frame for conn only. Failures are logged, not propagated.
func (d *MessageDispatcher) reply(conn *Connection, event string, payload any) {
	data, err := protocol.NewServerMessage(event, payload)
	if err != nil {
		log.Error().Str("component", "ws").Str("conn", conn.ID).Err(err).Msg("failed to build reply")
		return
	}
	if err := conn.Enqueue(data); err != nil {
		log.Warn().Str("component", "ws").Str("conn", conn.ID).Str("event", event).Err(err).Msg("failed to queue reply")
	}
}

func internalError(err error) (string, any) {
	log.Error().Str("component", "ws").Err(err).Msg("handler failed")
	return protocol.TypeError, protocol.ErrorMsg{Code: protocol.CodeInternal, Message: "internal error"}
}
