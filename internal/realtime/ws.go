package realtime

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/taskflow-api/internal/redact"
)

const (
	subprotocolHeader = "Sec-Websocket-Protocol"
	bearerSubprotocol = "bearer."
)

// Handler upgrades HTTP requests to websocket connections served by a
// Gateway.
type Handler struct {
	gw       *Gateway
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket endpoint for gw.
func NewHandler(gw *Gateway) *Handler {
	return &Handler{
		gw: gw,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: gw.cfg.HandshakeTimeout,
			CheckOrigin:      originChecker(gw.cfg.AllowedOrigins),
		},
	}
}

// originChecker allows any origin when none are configured or "*" is listed.
// Requests without an Origin header come from non-browser clients and are
// allowed.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// credentialFrom reads the session token from the token query parameter, a
// bearer Authorization header or a "bearer.<token>" subprotocol, in that
// order. The matching subprotocol, if any, is returned so it can be echoed.
func credentialFrom(r *http.Request) (token, subprotocol string) {
	if t := r.URL.Query().Get("token"); t != "" {
		return t, ""
	}
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1]), ""
		}
	}
	for _, p := range websocket.Subprotocols(r) {
		if t, ok := strings.CutPrefix(p, bearerSubprotocol); ok && t != "" {
			return t, p
		}
	}
	return "", ""
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, proto := credentialFrom(r)
	var respHeader http.Header
	if proto != "" {
		respHeader = http.Header{subprotocolHeader: []string{proto}}
	}

	ws, err := h.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		// The upgrader has already written an HTTP error.
		h.gw.log(r.Context()).Debug("websocket upgrade failed", redact.Attr(err))
		return
	}
	defer ws.Close()

	ctx := r.Context()
	c := h.gw.NewConn()
	if err := h.gw.Connect(ctx, c, token); err != nil {
		h.reject(ws, AuthFailureMessage(err))
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(ws, c)
	}()
	h.readPump(ctx, ws, c)

	h.gw.Disconnect(context.WithoutCancel(ctx), c)
	<-writerDone
}

// reject sends an error frame and a policy-violation close to a connection
// that failed admission.
func (h *Handler) reject(ws *websocket.Conn, message string) {
	deadline := time.Now().Add(h.gw.cfg.WriteWait)
	_ = ws.SetWriteDeadline(deadline)
	_ = ws.WriteMessage(websocket.TextMessage, errorFrame(message))
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), deadline)
}

func (h *Handler) readPump(ctx context.Context, ws *websocket.Conn, c *Conn) {
	cfg := h.gw.cfg
	ws.SetReadLimit(cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		h.gw.Refresh(ctx, c)
		return ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.gw.log(ctx).Debug("websocket read failed", "conn_id", c.id, redact.Attr(err))
			}
			return
		}
		h.gw.HandleFrame(ctx, c, data)
	}
}

// writePump is the only writer of ws after admission. It drains c's queue in
// order and pings the client every PingPeriod.
func (h *Handler) writePump(ws *websocket.Conn, c *Conn) {
	cfg := h.gw.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(cfg.WriteWait))
			return
		case frame := <-c.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				// Unblocks readPump, which disconnects c.
				_ = ws.Close()
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(cfg.WriteWait)); err != nil {
				_ = ws.Close()
				return
			}
		}
	}
}
