package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/edhub/edhub/internal/platform/auth"
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the CORS layer in front.
	},
}

// Handler owns the socket endpoint: upgrade, authentication, and the
// per-connection read/write pumps.
type Handler struct {
	registry   *Registry
	router     *Router
	dispatcher *Dispatcher
	verifier   auth.Verifier
	log        zerolog.Logger

	authGrace  time.Duration
	sendBuffer int
}

func NewHandler(registry *Registry, router *Router, dispatcher *Dispatcher, verifier auth.Verifier, log zerolog.Logger, authGrace time.Duration, sendBuffer int) *Handler {
	return &Handler{
		registry:   registry,
		router:     router,
		dispatcher: dispatcher,
		verifier:   verifier,
		log:        log.With().Str("component", "ws").Logger(),
		authGrace:  authGrace,
		sendBuffer: sendBuffer,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.HandleConnect)
}

type connectedPayload struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

type disconnectedPayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type authenticatePayload struct {
	Token string `json:"token"`
}

// HandleConnect upgrades the request and runs the session to completion. A
// client authenticates either with a token query parameter at upgrade time or
// with an authenticate frame sent within the grace period.
func (h *Handler) HandleConnect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sess := NewSession(&gorillaConn{ws}, h.sendBuffer)

	if !h.authenticate(sess, ws, c.QueryParam("token")) {
		h.rejectAndClose(sess, ws)
		return nil
	}

	// The write pump starts only after authentication: until then this
	// goroutine is the sole writer on the conn.
	go h.writePump(sess, ws)

	h.registry.Register(sess)
	sess.Settle()
	h.router.SendTo(sess, "connection_established", connectedPayload{
		SessionID: sess.ID.String(),
		UserID:    sess.UserID.String(),
		Role:      sess.Role,
		JoinedAt:  sess.JoinedAt,
	})
	h.log.Info().
		Stringer("session_id", sess.ID).
		Stringer("user_id", sess.UserID).
		Str("role", sess.Role).
		Msg("session established")

	h.readPump(c.Request().Context(), sess, ws)
	return nil
}

// authenticate resolves the session identity from the upgrade token or the
// first inbound frame. Returns false if the grace period lapses or the token
// does not verify.
func (h *Handler) authenticate(sess *Session, ws *gorillawebsocket.Conn, queryToken string) bool {
	token := queryToken
	if token == "" {
		ws.SetReadDeadline(time.Now().Add(h.authGrace))
		defer ws.SetReadDeadline(time.Time{})

		_, raw, err := ws.ReadMessage()
		if err != nil {
			return false
		}
		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Type != "authenticate" {
			return false
		}
		var p authenticatePayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return false
		}
		token = p.Token
	}

	id, err := h.verifier.Verify(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("session rejected")
		return false
	}
	return sess.Authenticate(id.UserID, id.Role, time.Now())
}

// rejectAndClose writes the rejection directly on the conn. The write pump is
// not running yet, so the frame is flushed before the close.
func (h *Handler) rejectAndClose(sess *Session, ws *gorillawebsocket.Conn) {
	frame := Frame{
		Event:     "error",
		Payload:   errorPayload{Code: "unauthorized", Message: "authentication required"},
		Timestamp: time.Now().UTC(),
	}
	if data, err := json.Marshal(frame); err == nil {
		ws.WriteMessage(gorillawebsocket.TextMessage, data)
	}
	ws.WriteMessage(gorillawebsocket.CloseMessage,
		gorillawebsocket.FormatCloseMessage(gorillawebsocket.ClosePolicyViolation, "authentication required"))
	sess.Close()
	ws.Close()
}

func (h *Handler) readPump(ctx context.Context, sess *Session, ws *gorillawebsocket.Conn) {
	defer func() {
		h.registry.Unregister(sess)
		ws.Close()
		h.router.Publish("user_disconnected", disconnectedPayload{
			UserID: sess.UserID.String(),
			Role:   sess.Role,
		}, ToEveryone())
		h.log.Info().
			Stringer("session_id", sess.ID).
			Int64("dropped_frames", sess.Dropped()).
			Msg("session closed")
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		h.dispatcher.Handle(ctx, sess, raw)
	}
}

func (h *Handler) writePump(sess *Session, ws *gorillawebsocket.Conn) {
	defer ws.Close()
	for data := range sess.Send() {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, data); err != nil {
			return
		}
	}
	// Queue closed: send a normal close frame so clients do not reconnect
	// with backoff.
	ws.WriteMessage(gorillawebsocket.CloseMessage,
		gorillawebsocket.FormatCloseMessage(gorillawebsocket.CloseNormalClosure, ""))
}

type gorillaConn struct {
	conn *gorillawebsocket.Conn
}

func (g *gorillaConn) ReadMessage() (int, []byte, error) { return g.conn.ReadMessage() }
func (g *gorillaConn) WriteMessage(t int, data []byte) error {
	return g.conn.WriteMessage(t, data)
}
func (g *gorillaConn) Close() error { return g.conn.Close() }
