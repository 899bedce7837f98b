package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func testConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		ReadLimit:        64 * 1024,
		WriteWait:        time.Second,
		PongWait:         5 * time.Second,
		PingPeriod:       4 * time.Second,
		SendBuffer:       16,
		HandshakeTimeout: time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// directory resolves users by id and maps "token:<id>" credentials to claims.
type directory struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newDirectory() *directory {
	return &directory{users: make(map[uuid.UUID]*domain.User)}
}

func (d *directory) add(name string, role domain.Role, teams ...uuid.UUID) *domain.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := &domain.User{
		ID:       uuid.New(),
		Name:     name,
		Email:    name + "@example.com",
		Role:     role,
		IsActive: true,
		Teams:    teams,
	}
	d.users[u.ID] = u
	return u
}

func (d *directory) ResolveActive(_ context.Context, id uuid.UUID) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok || !u.IsActive {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func tokenFor(u *domain.User) string { return "token:" + u.ID.String() }

// tokenValidator accepts tokens produced by tokenFor.
func tokenValidator() *mocks.MockJWTService {
	return &mocks.MockJWTService{
		ValidateTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
			raw, ok := cutToken(token)
			if !ok {
				return nil, auth.ErrInvalidToken
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{UserID: id, Subject: raw}, nil
		},
	}
}

func cutToken(token string) (string, bool) {
	return strings.CutPrefix(token, "token:")
}

type testGateway struct {
	*Gateway
	dir *directory
}

func newTestGateway(t *testing.T, cfg config.RealtimeConfig, tasks TaskFinder) *testGateway {
	t.Helper()
	dir := newDirectory()
	gw, err := NewGateway(cfg, tokenValidator(), dir, tasks, NewMemoryPresence(), discardLogger())
	require.NoError(t, err)
	gw.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { gw.Close(context.Background()) })
	return &testGateway{Gateway: gw, dir: dir}
}

// connect admits a fresh connection for u and discards frames queued so far
// on every connection.
func (tg *testGateway) connect(t *testing.T, u *domain.User) *Conn {
	t.Helper()
	c := tg.NewConn()
	require.NoError(t, tg.Connect(context.Background(), c, tokenFor(u)))
	for _, other := range tg.registry.All() {
		drain(other)
	}
	return c
}

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// drain returns every frame queued on c without blocking.
func drain(c *Conn) []received {
	var out []received
	for {
		select {
		case b := <-c.Outbound():
			var r received
			if err := json.Unmarshal(b, &r); err != nil {
				panic(err)
			}
			out = append(out, r)
		default:
			return out
		}
	}
}

func types(frames []received) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Type
	}
	return out
}

func decodeData(t *testing.T, f received) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(f.Data, &m))
	return m
}
