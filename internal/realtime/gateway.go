package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/access"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

// Admission failures. Clients only ever see AuthFailureMessage of these.
var (
	ErrMissingCredential = errors.New("realtime: missing credential")
	ErrUnauthenticated   = errors.New("realtime: token rejected")
	ErrUnknownUser       = errors.New("realtime: user not found")
	ErrConnClosed        = errors.New("realtime: connection closed")
	ErrJoinDenied        = errors.New("realtime: task join denied")
)

// AuthFailureMessage is the client-visible message for an admission error.
func AuthFailureMessage(err error) string {
	if errors.Is(err, ErrUnknownUser) {
		return "User not found"
	}
	return "Authentication error"
}

// TokenValidator verifies session tokens presented at the handshake.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}

// UserResolver loads a user that may still act on the system.
type UserResolver interface {
	ResolveActive(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// TaskFinder loads tasks for gated task-room joins.
type TaskFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// Gateway admits websocket connections and fans events out to rooms.
// It implements events.EventHandler.
type Gateway struct {
	cfg      config.RealtimeConfig
	tokens   TokenValidator
	users    UserResolver
	tasks    TaskFinder
	presence PresenceStore
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

var _ events.EventHandler = (*Gateway)(nil)

// NewGateway creates a gateway with an empty room registry. tasks may be nil
// unless cfg.GateTaskJoins is set; a nil presence store keeps presence in
// memory.
func NewGateway(
	cfg config.RealtimeConfig,
	tokens TokenValidator,
	users UserResolver,
	tasks TaskFinder,
	presence PresenceStore,
	log *slog.Logger,
) (*Gateway, error) {
	if tokens == nil {
		return nil, errors.New("realtime: token validator cannot be nil")
	}
	if users == nil {
		return nil, errors.New("realtime: user resolver cannot be nil")
	}
	if cfg.GateTaskJoins && tasks == nil {
		return nil, errors.New("realtime: gated task joins require a task finder")
	}
	if presence == nil {
		presence = NewMemoryPresence()
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		cfg:      cfg,
		tokens:   tokens,
		users:    users,
		tasks:    tasks,
		presence: presence,
		registry: NewRegistry(),
		logger:   log.With(slog.String("component", "realtime_gateway")),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Registry exposes the room table.
func (g *Gateway) Registry() *Registry { return g.registry }

// NewConn creates a connection bound to the gateway's lifetime.
func (g *Gateway) NewConn() *Conn {
	return NewConn(g.ctx, g.cfg.SendBuffer)
}

func (g *Gateway) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, g.logger)
}

// Authenticate verifies credential and binds the resulting session to c.
// On any failure c is closed and never joins a room.
func (g *Gateway) Authenticate(ctx context.Context, c *Conn, credential string) (*Session, error) {
	if !c.transition(StateConnecting, StateAuthenticating) {
		return nil, ErrConnClosed
	}
	if credential == "" {
		c.close()
		return nil, ErrMissingCredential
	}

	if g.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.HandshakeTimeout)
		defer cancel()
	}

	claims, err := g.tokens.ValidateToken(ctx, credential)
	if err != nil {
		c.close()
		g.log(ctx).Debug("websocket token rejected", "conn_id", c.id, redact.Attr(err))
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := g.users.ResolveActive(ctx, claims.UserID)
	if err != nil {
		c.close()
		g.log(ctx).Debug("websocket user unresolvable",
			"conn_id", c.id, "user_id", claims.UserID, redact.Attr(err))
		return nil, fmt.Errorf("%w: %w", ErrUnknownUser, err)
	}

	sess := NewSession(user)
	c.session.Store(sess)
	return sess, nil
}

// Admit joins an authenticated connection to its user and team rooms, marks
// the user online and announces it to every other connection.
func (g *Gateway) Admit(ctx context.Context, c *Conn) error {
	sess := c.Session()
	if sess == nil || !c.transition(StateAuthenticating, StateAdmitted) {
		return ErrConnClosed
	}

	rooms := make([]RoomID, 0, 1+len(sess.Teams))
	rooms = append(rooms, UserRoom(sess.UserID))
	for _, team := range sess.Teams {
		rooms = append(rooms, TeamRoom(team))
	}
	g.registry.Add(c, rooms...)

	// A concurrent Disconnect may have run between the transition and Add.
	if c.State() == StateClosed {
		g.registry.Remove(c)
		return ErrConnClosed
	}

	if err := g.presence.MarkOnline(ctx, sess.UserID); err != nil {
		g.log(ctx).Warn("failed to mark user online", "user_id", sess.UserID, redact.Attr(err))
	}
	g.log(ctx).Info("websocket connection admitted",
		"conn_id", c.id, "user_id", sess.UserID, "rooms", len(rooms))

	g.BroadcastAll(events.PresenceOnline, presencePayload(sess), c)
	return nil
}

// Connect authenticates and admits c.
func (g *Gateway) Connect(ctx context.Context, c *Conn, credential string) error {
	if _, err := g.Authenticate(ctx, c, credential); err != nil {
		return err
	}
	return g.Admit(ctx, c)
}

// Disconnect closes c. An admitted connection leaves every room, is marked
// offline and announced once to the remaining connections. Repeated calls
// are no-ops.
func (g *Gateway) Disconnect(ctx context.Context, c *Conn) {
	prev := c.close()
	if prev != StateAdmitted {
		return
	}
	g.registry.Remove(c)

	sess := c.Session()
	if err := g.presence.MarkOffline(ctx, sess.UserID); err != nil {
		g.log(ctx).Warn("failed to mark user offline", "user_id", sess.UserID, redact.Attr(err))
	}
	g.log(ctx).Info("websocket connection closed", "conn_id", c.id, "user_id", sess.UserID)

	g.BroadcastAll(events.PresenceOffline, presencePayload(sess), nil)
}

// Refresh extends the presence of c's user while it stays connected.
func (g *Gateway) Refresh(ctx context.Context, c *Conn) {
	sess := c.Session()
	if sess == nil || c.State() != StateAdmitted {
		return
	}
	if err := g.presence.Refresh(ctx, sess.UserID); err != nil {
		g.log(ctx).Debug("failed to refresh presence", "user_id", sess.UserID, redact.Attr(err))
	}
}

// OnlineUsers lists users with at least one admitted connection.
func (g *Gateway) OnlineUsers(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := g.presence.Online(ctx)
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	return ids, nil
}

// JoinTask adds c to the task room. Joining twice has no further effect.
// With GateTaskJoins set the user must be able to view the task.
func (g *Gateway) JoinTask(ctx context.Context, c *Conn, taskID string) error {
	if c.State() != StateAdmitted {
		return ErrConnClosed
	}
	if g.cfg.GateTaskJoins {
		if err := g.authorizeJoin(ctx, c, taskID); err != nil {
			return err
		}
	}
	if g.registry.Join(c, TaskRoom(taskID)) {
		g.log(ctx).Debug("joined task room", "conn_id", c.id, "task_id", taskID)
	}
	return nil
}

func (g *Gateway) authorizeJoin(ctx context.Context, c *Conn, taskID string) error {
	id, err := uuid.Parse(taskID)
	if err != nil {
		return fmt.Errorf("%w: invalid task id", ErrJoinDenied)
	}
	task, err := g.tasks.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrJoinDenied, err)
	}
	sess := c.Session()
	p := access.Principal{UserID: sess.UserID, Role: sess.Role}
	if err := access.AuthorizeViewTask(p, task); err != nil {
		return fmt.Errorf("%w: %w", ErrJoinDenied, err)
	}
	return nil
}

// LeaveTask removes c from the task room. Leaving a room c is not in is a
// no-op.
func (g *Gateway) LeaveTask(ctx context.Context, c *Conn, taskID string) {
	if g.registry.Leave(c, TaskRoom(taskID)) {
		g.log(ctx).Debug("left task room", "conn_id", c.id, "task_id", taskID)
	}
}

// Broadcast sends a frame of kind to every connection in room except the
// optional except connection and returns how many connections queued it.
func (g *Gateway) Broadcast(kind events.Kind, room RoomID, payload any, except *Conn) int {
	return g.fanOut(kind.String(), g.registry.Members(room), payload, except)
}

// BroadcastAll sends a frame of kind to every admitted connection except the
// optional except connection.
func (g *Gateway) BroadcastAll(kind events.Kind, payload any, except *Conn) int {
	return g.fanOut(kind.String(), g.registry.All(), payload, except)
}

func (g *Gateway) fanOut(typ string, targets []*Conn, payload any, except *Conn) int {
	frame, err := encodeFrame(typ, payload)
	if err != nil {
		g.logger.Error("failed to encode frame", "type", typ, redact.Attr(err))
		return 0
	}
	delivered := 0
	for _, c := range targets {
		if c == except {
			continue
		}
		if c.trySend(frame) {
			delivered++
			continue
		}
		if c.State() != StateClosed {
			g.logger.Warn("dropped frame for slow connection", "type", typ, "conn_id", c.id)
		}
	}
	return delivered
}

type assignmentPayload struct {
	Task    *domain.Task `json:"task"`
	Message string       `json:"message"`
}

// NotifyAssignment tells userID's connections that task was assigned to them.
func (g *Gateway) NotifyAssignment(task *domain.Task, userID uuid.UUID) int {
	return g.Broadcast(events.TaskAssigned, UserRoom(userID), assignmentPayload{
		Task:    task,
		Message: "You have been assigned to task: " + task.Title,
	}, nil)
}

// HandleEvent routes a committed domain event to its rooms.
func (g *Gateway) HandleEvent(ctx context.Context, ev *events.TaskEvent) error {
	route, ok := eventRoutes[ev.Kind]
	if !ok {
		g.log(ctx).Debug("no route for event", "kind", ev.Kind.String())
		return nil
	}
	n := route(g, ev)
	g.log(ctx).Debug("event broadcast",
		"kind", ev.Kind.String(), "task_id", ev.TaskID, "delivered", n)
	return nil
}

type taskIDPayload struct {
	TaskID uuid.UUID `json:"taskId"`
}

type commentPayload struct {
	TaskID  uuid.UUID       `json:"taskId"`
	Comment *domain.Comment `json:"comment"`
}

var eventRoutes = map[events.Kind]func(*Gateway, *events.TaskEvent) int{
	events.TaskCreated: func(g *Gateway, ev *events.TaskEvent) int {
		return g.BroadcastAll(ev.Kind, ev.Task, nil)
	},
	events.TaskUpdated: func(g *Gateway, ev *events.TaskEvent) int {
		return g.Broadcast(ev.Kind, TaskRoom(ev.TaskID.String()), ev.Task, nil)
	},
	events.TaskDeleted: func(g *Gateway, ev *events.TaskEvent) int {
		return g.Broadcast(ev.Kind, TaskRoom(ev.TaskID.String()), taskIDPayload{TaskID: ev.TaskID}, nil)
	},
	events.TaskAssigned: func(g *Gateway, ev *events.TaskEvent) int {
		if ev.Task == nil || ev.Task.AssignedTo == nil {
			return 0
		}
		return g.NotifyAssignment(ev.Task, *ev.Task.AssignedTo)
	},
	events.NewComment: func(g *Gateway, ev *events.TaskEvent) int {
		return g.Broadcast(ev.Kind, TaskRoom(ev.TaskID.String()), commentPayload{
			TaskID:  ev.TaskID,
			Comment: ev.Comment,
		}, nil)
	},
}

type presenceInfo struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
}

func presencePayload(s *Session) presenceInfo {
	return presenceInfo{UserID: s.UserID, Name: s.Name, Email: s.Email}
}

// Close disconnects every connection and stops accepting new ones.
func (g *Gateway) Close(ctx context.Context) {
	g.cancel()
	for _, c := range g.registry.All() {
		g.Disconnect(ctx, c)
	}
}
