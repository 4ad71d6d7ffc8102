package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"power_schedule/internal/editor"
	"power_schedule/internal/matrix"
	"power_schedule/internal/models"
	"power_schedule/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// Client message types of the live editor.
const (
	msgDown    = "down"
	msgEnter   = "enter"
	msgUp      = "up"
	msgCancel  = "cancel"
	msgSet     = "set"
	msgSave    = "save"
	msgDiscard = "discard"
)

var errUnknownMessage = errors.New("unknown message type")

// saveError is a rejected save. It is reported to the client without
// closing the connection.
type saveError struct{ err error }

func (e *saveError) Error() string { return e.err.Error() }
func (e *saveError) Unwrap() error { return e.err }

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// editMessage is one client event. Row and Col address a cell for pointer
// events; the optional fields are draft edits carried by "set".
type editMessage struct {
	Type      string  `json:"type"`
	Row       int     `json:"row"`
	Col       int     `json:"col"`
	Name      *string `json:"name,omitempty"`
	TimeZone  *int    `json:"timezone,omitempty"`
	IsSpecial *bool   `json:"is_special,omitempty"`
}

// editorView is what the client renders after every message.
type editorView struct {
	ScheduleID int           `json:"schedule_id"`
	Matrix     matrix.Matrix `json:"matrix"`
	Dragging   bool          `json:"dragging"`
	Anchor     *editor.Cell  `json:"anchor,omitempty"`
	Last       *editor.Cell  `json:"last,omitempty"`
	Paint      *bool         `json:"paint,omitempty"`
	Label      string        `json:"label,omitempty"` // label of the last cell of the drag
	Disabled   bool          `json:"disabled"`
	Dirty      bool          `json:"dirty"`
	Name       string        `json:"name"`
	TimeZone   int           `json:"timezone"`
	IsSpecial  bool          `json:"is_special"`
}

// Upgrader for HTTP -> WebSocket.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins once the UI host is configurable
}

// editSession is owned by the connection loop goroutine.
type editSession struct {
	actor service.Actor
	id    int
	ed    *editor.Editor
	draft *editor.Draft
}

func fieldsOf(s models.Schedule) (editor.Fields, error) {
	m, err := matrix.Deserialize(s.Matrix)
	if err != nil {
		return editor.Fields{}, err
	}
	return editor.Fields{Name: s.Name, TimeZoneID: s.TimeZone, Matrix: m, IsSpecial: s.IsSpecial}, nil
}

// @Summary      Live matrix editor
// @Description  WebSocket. Client sends {"type":"down|enter|up|cancel|set|save|discard","row","col"}; server answers {"type":"view"} or {"type":"error"}.
// @Tags         schedules
// @Param        id     path   int     true   "Schedule id"
// @Param        token  query  string  false  "Access token when no Authorization header can be sent"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /ws/schedules/{id}/edit [get]
func (h *Handler) editSchedule(c *gin.Context) {
	id, ok := scheduleID(c)
	if !ok {
		return
	}
	actor := actorFrom(c)
	sched, err := h.services.Schedules.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.scheduleError(c, err, errListSchedules, "ws_schedule_load_failed", "id", id)
		return
	}
	saved, err := fieldsOf(sched)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListSchedules, "schedule_matrix_corrupt", err, "id", id)
		return
	}

	sess := &editSession{
		actor: actor,
		id:    id,
		ed:    editor.New(saved.Matrix),
		draft: editor.NewDraft(saved),
	}
	sess.ed.SetDisabled(!h.services.Schedules.CanEdit(actor, sched))
	sess.ed.OnCommit(func(m matrix.Matrix) {
		sess.draft.Current.Matrix = m
		h.metrics.EditorCommit()
	})

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	in := make(chan editMessage)
	stop := make(chan struct{})
	defer close(stop)
	go h.startReader(conn, in, stop)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	ctx := c.Request.Context()
	if err := h.write(conn, wsEnvelope{Type: "view", Data: sess.view()}); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case msg, ok := <-in:
			if !ok {
				return
			}
			if err := h.handleEdit(ctx, sess, msg); err != nil {
				var se *saveError
				if !errors.As(err, &se) {
					h.closeWithError(conn, err, sess.id)
					return
				}
				if h.log != nil {
					h.log.Infow("ws_save_rejected", "err", se.err, "id", sess.id)
				}
				if err := h.write(conn, wsEnvelope{Type: "error", Error: se.Error()}); err != nil {
					return
				}
			}
			if err := h.write(conn, wsEnvelope{Type: "view", Data: sess.view()}); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// handleEdit applies msg to the session. A returned error ends the
// connection; save failures are answered in-band and keep it open.
func (h *Handler) handleEdit(ctx context.Context, s *editSession, msg editMessage) error {
	switch msg.Type {
	case msgDown:
		return s.ed.PointerDown(msg.Row, msg.Col)
	case msgEnter:
		_, err := s.ed.PointerEnter(msg.Row, msg.Col)
		return err
	case msgUp:
		_, err := s.ed.PointerUp()
		return err
	case msgCancel:
		s.ed.Cancel()
	case msgSet:
		if s.ed.Disabled() {
			return nil
		}
		if msg.Name != nil {
			s.draft.Current.Name = *msg.Name
		}
		if msg.TimeZone != nil {
			s.draft.Current.TimeZoneID = *msg.TimeZone
		}
		if msg.IsSpecial != nil {
			s.draft.Current.IsSpecial = *msg.IsSpecial
		}
	case msgDiscard:
		s.draft.Discard()
		s.ed.SetMatrix(s.draft.Current.Matrix)
	case msgSave:
		return h.saveDraft(ctx, s)
	default:
		return fmt.Errorf("%w: %q", errUnknownMessage, msg.Type)
	}
	return nil
}

// saveDraft persists the draft and rebases it on the stored schedule. The
// service may return the stored schedule together with an error when the
// write succeeded but a later step failed; the draft is rebased then too.
func (h *Handler) saveDraft(ctx context.Context, s *editSession) error {
	cur := s.draft.Current
	saved, err := h.services.Schedules.Update(ctx, s.actor, s.id, service.ScheduleInput{
		Name:      cur.Name,
		TimeZone:  cur.TimeZoneID,
		Matrix:    matrix.Serialize(cur.Matrix),
		IsSpecial: cur.IsSpecial,
	})
	if saved.ID != 0 {
		fields, ferr := fieldsOf(saved)
		if ferr != nil {
			return ferr
		}
		s.draft.Rebase(fields)
		s.ed.SetMatrix(fields.Matrix)
		s.ed.SetDisabled(!h.services.Schedules.CanEdit(s.actor, saved))
		if h.log != nil {
			h.log.Infow("ws_schedule_saved", "id", s.id, "user", s.actor.Username)
		}
	}
	if err != nil {
		return &saveError{err: err}
	}
	return nil
}

func (s *editSession) view() editorView {
	cur := s.draft.Current
	v := editorView{
		ScheduleID: s.id,
		Matrix:     s.ed.View(),
		Disabled:   s.ed.Disabled(),
		Dirty:      s.draft.Dirty(),
		Name:       cur.Name,
		TimeZone:   cur.TimeZoneID,
		IsSpecial:  cur.IsSpecial,
	}
	if sess, ok := s.ed.Session(); ok {
		v.Dragging = true
		v.Anchor = &sess.Anchor
		v.Last = &sess.Last
		v.Paint = &sess.Paint
		v.Label, _ = matrix.CellLabel(sess.Last.Row, sess.Last.Col)
	}
	return v
}

// startReader decodes client messages until the connection fails.
func (h *Handler) startReader(conn *websocket.Conn, out chan<- editMessage, stop <-chan struct{}) {
	defer close(out)
	for {
		var msg editMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
		select {
		case out <- msg:
		case <-stop:
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}

func (h *Handler) closeWithError(conn *websocket.Conn, err error, id int) {
	if h.log != nil {
		h.log.Infow("ws_edit_rejected", "err", err, "id", id)
	}
	if werr := h.write(conn, wsEnvelope{Type: "error", Error: err.Error()}); werr != nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "edit rejected"),
		time.Now().Add(writeWait))
}
