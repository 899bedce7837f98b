package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/redact"
)

type inboundHandler func(g *Gateway, ctx context.Context, c *Conn, data json.RawMessage) error

var inboundHandlers = map[string]inboundHandler{
	frameJoinTask:   handleJoinTask,
	frameLeaveTask:  handleLeaveTask,
	frameTaskUpdate: handleTaskUpdate,
	frameComment:    handleComment,
	frameTyping:     handleTyping,
	framePing:       handlePing,
}

// HandleFrame dispatches one frame received from an admitted connection.
// Unknown and malformed frames are logged and ignored.
func (g *Gateway) HandleFrame(ctx context.Context, c *Conn, raw []byte) {
	if c.State() != StateAdmitted {
		return
	}
	in, err := decodeFrame(raw)
	if err != nil {
		g.log(ctx).Debug("ignoring malformed frame", "conn_id", c.id, redact.Attr(err))
		return
	}
	h, ok := inboundHandlers[in.Type]
	if !ok {
		g.log(ctx).Debug("ignoring unknown frame type", "conn_id", c.id, "type", in.Type)
		return
	}
	if err := h(g, ctx, c, in.Data); err != nil {
		g.log(ctx).Debug("frame rejected", "conn_id", c.id, "type", in.Type, redact.Attr(err))
		if errors.Is(err, ErrJoinDenied) {
			c.trySend(errorFrame("Not authorized to join task"))
		}
	}
}

func handleJoinTask(g *Gateway, ctx context.Context, c *Conn, data json.RawMessage) error {
	id, err := taskIDFrom(data)
	if err != nil {
		return err
	}
	return g.JoinTask(ctx, c, id)
}

func handleLeaveTask(g *Gateway, ctx context.Context, c *Conn, data json.RawMessage) error {
	id, err := taskIDFrom(data)
	if err != nil {
		return err
	}
	g.LeaveTask(ctx, c, id)
	return nil
}

// handleTaskUpdate relays the client's payload unchanged.
func handleTaskUpdate(g *Gateway, _ context.Context, c *Conn, data json.RawMessage) error {
	id, err := taskIDFrom(data)
	if err != nil {
		return err
	}
	g.Broadcast(events.TaskUpdated, TaskRoom(id), data, c)
	return nil
}

func handleComment(g *Gateway, _ context.Context, c *Conn, data json.RawMessage) error {
	id, err := taskIDFrom(data)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode comment: %w", err)
	}
	fields["user"] = c.Session().ref()
	fields["timestamp"] = g.now().UTC().Format(time.RFC3339Nano)
	g.Broadcast(events.NewComment, TaskRoom(id), fields, c)
	return nil
}

type typingPayload struct {
	TaskID   string `json:"taskId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

func handleTyping(g *Gateway, _ context.Context, c *Conn, data json.RawMessage) error {
	id, err := taskIDFrom(data)
	if err != nil {
		return err
	}
	var in struct {
		IsTyping bool `json:"isTyping"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode typing: %w", err)
	}
	sess := c.Session()
	g.Broadcast(events.TypingIndicator, TaskRoom(id), typingPayload{
		TaskID:   id,
		UserID:   sess.UserID.String(),
		UserName: sess.Name,
		IsTyping: in.IsTyping,
	}, c)
	return nil
}

func handlePing(g *Gateway, _ context.Context, c *Conn, _ json.RawMessage) error {
	frame, err := encodeFrame(framePong, map[string]string{
		"timestamp": g.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	c.trySend(frame)
	return nil
}
