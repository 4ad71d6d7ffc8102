// Package editor implements drag-to-paint editing of a schedule matrix.
//
// An Editor keeps two matrices: the committed value that owners observe and
// a preview that follows the pointer while a drag is in progress. The
// committed value changes only when a drag ends with PointerUp.
package editor

import (
	"errors"
	"fmt"

	"power_schedule/internal/matrix"
)

// ErrInvalidState is returned when a pointer transition arrives in a state
// that cannot accept it, usually a missed pointer-up.
var ErrInvalidState = errors.New("invalid editor state")

// State of the drag interaction.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Cell addresses one grid slot.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Session describes an active drag.
type Session struct {
	Anchor Cell `json:"anchor"`
	Last   Cell `json:"last"`
	Paint  bool `json:"paint"`
}

// CommitFunc receives the new committed matrix after a drag ends.
type CommitFunc func(matrix.Matrix)

// Editor is the drag state machine. It is not safe for concurrent use; one
// goroutine owns it.
type Editor struct {
	committed matrix.Matrix
	preview   matrix.Matrix
	disabled  bool

	state   State
	session Session

	listeners []CommitFunc
}

// New returns an idle editor over committed.
func New(committed matrix.Matrix) *Editor {
	return &Editor{committed: committed, preview: committed}
}

// OnCommit registers fn to run after every commit.
func (e *Editor) OnCommit(fn CommitFunc) {
	e.listeners = append(e.listeners, fn)
}

// SetMatrix replaces the committed value from the owner side, dropping any
// drag in progress.
func (e *Editor) SetMatrix(m matrix.Matrix) {
	e.reset()
	e.committed = m
	e.preview = m
}

// SetDisabled toggles read-only mode. Disabling drops a drag in progress.
func (e *Editor) SetDisabled(disabled bool) {
	e.disabled = disabled
	if disabled {
		e.Cancel()
	}
}

// Disabled reports whether edits are suppressed.
func (e *Editor) Disabled() bool { return e.disabled }

// State returns the current interaction state.
func (e *Editor) State() State { return e.state }

// Committed returns the externally visible matrix.
func (e *Editor) Committed() matrix.Matrix { return e.committed }

// View returns what should be rendered: the preview while dragging, else
// the committed matrix.
func (e *Editor) View() matrix.Matrix {
	if e.state == Dragging {
		return e.preview
	}
	return e.committed
}

// Session returns the active drag, if any.
func (e *Editor) Session() (Session, bool) {
	return e.session, e.state == Dragging
}

// Highlighted reports whether (row, col) is inside the rectangle being painted.
func (e *Editor) Highlighted(row, col int) bool {
	if e.state != Dragging {
		return false
	}
	s := e.session
	return matrix.InRectangle(row, col, s.Anchor.Row, s.Anchor.Col, s.Last.Row, s.Last.Col)
}

// PointerDown starts a drag at (row, col). The paint value is the negation of
// the cell's committed value. Ignored while disabled.
func (e *Editor) PointerDown(row, col int) error {
	if e.disabled {
		return nil
	}
	if e.state == Dragging {
		return fmt.Errorf("%w: pointer down while already dragging from %v", ErrInvalidState, e.session.Anchor)
	}
	on, err := e.committed.Get(row, col)
	if err != nil {
		return err
	}
	paint := !on
	preview, err := matrix.PaintRectangle(e.committed, row, col, row, col, paint)
	if err != nil {
		return err
	}
	start := Cell{Row: row, Col: col}
	e.session = Session{Anchor: start, Last: start, Paint: paint}
	e.preview = preview
	e.state = Dragging
	return nil
}

// PointerEnter extends the drag rectangle to (row, col). It reports whether
// the preview was recomputed; re-entering the last cell is a no-op.
func (e *Editor) PointerEnter(row, col int) (bool, error) {
	if e.disabled {
		return false, nil
	}
	if e.state != Dragging {
		return false, fmt.Errorf("%w: pointer enter while idle", ErrInvalidState)
	}
	target := Cell{Row: row, Col: col}
	if target == e.session.Last {
		return false, nil
	}
	a := e.session.Anchor
	preview, err := matrix.PaintRectangle(e.committed, a.Row, a.Col, row, col, e.session.Paint)
	if err != nil {
		return false, err
	}
	e.session.Last = target
	e.preview = preview
	return true, nil
}

// PointerUp ends the drag, commits the preview and notifies listeners.
func (e *Editor) PointerUp() (matrix.Matrix, error) {
	if e.disabled {
		return e.committed, nil
	}
	if e.state != Dragging {
		return e.committed, fmt.Errorf("%w: pointer up while idle", ErrInvalidState)
	}
	e.committed = e.preview
	e.reset()
	for _, fn := range e.listeners {
		fn(e.committed)
	}
	return e.committed, nil
}

// Cancel abandons a drag without committing. It is a no-op while idle.
func (e *Editor) Cancel() {
	e.reset()
	e.preview = e.committed
}

func (e *Editor) reset() {
	e.state = Idle
	e.session = Session{}
}
