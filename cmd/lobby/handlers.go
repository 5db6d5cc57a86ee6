package main

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/arcade/lobby/internal/lifecycle"
	"github.com/arcade/lobby/internal/protocol"
	"github.com/arcade/lobby/internal/social"
	"github.com/arcade/lobby/internal/ws"
)

// registerHandlers wires the inbound push events to the lifecycle handler
// and the social coordinator.
func registerHandlers(d *ws.MessageDispatcher, lc *lifecycle.Handler, coord *social.Coordinator) {
	// -----------------------------------------------------------------------
	// user_join / user_leave: presence
	// -----------------------------------------------------------------------
	d.Register(protocol.TypeUserJoin, func(ctx context.Context, conn *ws.Connection, msg any) error {
		return lc.Join(ctx, conn.ID, msg.(protocol.UserJoin))
	})
	d.Register(protocol.TypeUserLeave, func(ctx context.Context, conn *ws.Connection, msg any) error {
		return lc.Leave(ctx, msg.(protocol.UserLeave).UserID)
	})

	// -----------------------------------------------------------------------
	// game_invite*: same path as the REST endpoints
	// -----------------------------------------------------------------------
	d.Register(protocol.TypeGameInvite, func(ctx context.Context, conn *ws.Connection, msg any) error {
		m := msg.(protocol.GameInvite)
		_, err := coord.CreateInvite(ctx, m.InviterID, m.InviteeID)
		return err
	})
	d.Register(protocol.TypeGameInviteCancel, func(ctx context.Context, conn *ws.Connection, msg any) error {
		m := msg.(protocol.GameInvite)
		return coord.CancelInvite(ctx, m.InviterID, m.InviteeID)
	})
	d.Register(protocol.TypeGameInviteResponse, func(ctx context.Context, conn *ws.Connection, msg any) error {
		m := msg.(protocol.GameInviteResponse)
		return coord.RespondInvite(ctx, m.InviterID, m.InviteeID, m.Accepted)
	})

	d.SetErrorMapper(mapError)
}

// mapError turns a handler error into the frame sent back to its sender.
func mapError(err error) (string, any) {
	var te *social.ThrottledError
	switch {
	case errors.As(err, &te):
		return protocol.TypeRateLimited, protocol.RateLimitedMsg{
			RetryAfter: int(math.Ceil(te.RetryAfter.Seconds())),
		}
	case errors.Is(err, social.ErrInvalid):
		return protocol.TypeError, protocol.ErrorMsg{Code: protocol.CodeInvalidPayload, Message: err.Error()}
	case errors.Is(err, social.ErrBlocked):
		return protocol.TypeError, protocol.ErrorMsg{Code: protocol.CodeBlocked, Message: "user blocked"}
	default:
		log.Error().Str("component", "dispatch").Err(err).Msg("handler failed")
		return protocol.TypeError, protocol.ErrorMsg{Code: protocol.CodeInternal, Message: "internal error"}
	}
}
