// Package matrix holds the weekly power schedule grid: seven days of
// forty-eight half-hour slots, each either powered on or off.
package matrix

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Grid dimensions. Rows are days starting Monday, columns are half-hour slots.
const (
	Days        = 7
	SlotsPerDay = 48
	SlotMinutes = 30
)

// Matrix errors.
var (
	ErrValidation = errors.New("invalid schedule matrix")
	ErrFormat     = errors.New("malformed serialized schedule matrix")
	ErrIndex      = errors.New("schedule cell out of range")
)

// Matrix is an immutable-by-value 7x48 on/off grid. The zero value is the
// all-off schedule. Copies never share cells.
type Matrix struct {
	cells [Days][SlotsPerDay]bool
}

// New builds a matrix from rows. A nil rows argument yields the all-off
// matrix; anything else must be exactly 7 rows of 48 values.
func New(rows [][]bool) (Matrix, error) {
	var m Matrix
	if rows == nil {
		return m, nil
	}
	if len(rows) != Days {
		return Matrix{}, fmt.Errorf("%w: %d rows instead of %d", ErrValidation, len(rows), Days)
	}
	for r, row := range rows {
		if len(row) != SlotsPerDay {
			return Matrix{}, fmt.Errorf("%w: row %d has %d items instead of %d", ErrValidation, r, len(row), SlotsPerDay)
		}
		copy(m.cells[r][:], row)
	}
	return m, nil
}

// Get reports whether the cell at (row, col) is on.
func (m Matrix) Get(row, col int) (bool, error) {
	if err := checkCell(row, col); err != nil {
		return false, err
	}
	return m.cells[row][col], nil
}

// Rows returns a fresh row-major copy of the cells.
func (m Matrix) Rows() [][]bool {
	rows := make([][]bool, Days)
	for r := range m.cells {
		rows[r] = make([]bool, SlotsPerDay)
		copy(rows[r], m.cells[r][:])
	}
	return rows
}

// CountOn returns how many slots are powered on during the week.
func (m Matrix) CountOn() int {
	n := 0
	for r := range m.cells {
		for c := range m.cells[r] {
			if m.cells[r][c] {
				n++
			}
		}
	}
	return n
}

// Equals compares two matrices cell by cell.
func Equals(a, b Matrix) bool {
	return a.cells == b.cells
}

// PaintRectangle returns a copy of m where every cell inside the rectangle
// spanned by the two corners is set to value. Corner order does not matter.
func PaintRectangle(m Matrix, rowA, colA, rowB, colB int, value bool) (Matrix, error) {
	if err := checkCell(rowA, colA); err != nil {
		return Matrix{}, err
	}
	if err := checkCell(rowB, colB); err != nil {
		return Matrix{}, err
	}
	out := m
	rMin, rMax := minMax(rowA, rowB)
	cMin, cMax := minMax(colA, colB)
	for r := rMin; r <= rMax; r++ {
		for c := cMin; c <= cMax; c++ {
			out.cells[r][c] = value
		}
	}
	return out, nil
}

// InRectangle reports whether (row, col) lies in the normalized rectangle
// spanned by the two corners.
func InRectangle(row, col, rowA, colA, rowB, colB int) bool {
	rMin, rMax := minMax(rowA, rowB)
	cMin, cMax := minMax(colA, colB)
	return rMin <= row && row <= rMax && cMin <= col && col <= cMax
}

// Serialize encodes m as a JSON array of 7 arrays of 48 booleans.
func Serialize(m Matrix) string {
	b, _ := json.Marshal(m.Rows())
	return string(b)
}

// Deserialize parses the JSON form produced by Serialize. Null items,
// non-boolean items and wrong dimensions are rejected.
func Deserialize(s string) (Matrix, error) {
	var raw [][]*bool
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Matrix{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(raw) != Days {
		return Matrix{}, fmt.Errorf("%w: %d rows instead of %d", ErrFormat, len(raw), Days)
	}
	var m Matrix
	for r, row := range raw {
		if len(row) != SlotsPerDay {
			return Matrix{}, fmt.Errorf("%w: row %d has %d items instead of %d", ErrFormat, r, len(row), SlotsPerDay)
		}
		for c, v := range row {
			if v == nil {
				return Matrix{}, fmt.Errorf("%w: null item at row %d col %d", ErrFormat, r, c)
			}
			m.cells[r][c] = *v
		}
	}
	return m, nil
}

// MarshalJSON encodes the matrix as a nested boolean array.
func (m Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Rows())
}

// UnmarshalJSON accepts the nested boolean array form.
func (m *Matrix) UnmarshalJSON(b []byte) error {
	parsed, err := Deserialize(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func checkCell(row, col int) error {
	if row < 0 || row >= Days {
		return fmt.Errorf("%w: row %d not in [0,%d)", ErrIndex, row, Days)
	}
	if col < 0 || col >= SlotsPerDay {
		return fmt.Errorf("%w: col %d not in [0,%d)", ErrIndex, col, SlotsPerDay)
	}
	return nil
}

func minMax(a, b int) (int, int) {
	if a <= b {
		return a, b
	}
	return b, a
}
