package editor

import "power_schedule/internal/matrix"

// Fields are the editable parts of a schedule.
type Fields struct {
	Name       string        `json:"name"`
	TimeZoneID int           `json:"timezone"`
	Matrix     matrix.Matrix `json:"matrix"`
	IsSpecial  bool          `json:"is_special"`
}

// Draft tracks in-progress edits against the last saved schedule.
type Draft struct {
	saved   Fields
	Current Fields
}

// NewDraft starts a draft identical to saved.
func NewDraft(saved Fields) *Draft {
	return &Draft{saved: saved, Current: saved}
}

// Saved returns the baseline the draft is compared against.
func (d *Draft) Saved() Fields { return d.saved }

// Dirty reports unsaved changes.
func (d *Draft) Dirty() bool {
	return d.saved.Name != d.Current.Name ||
		d.saved.TimeZoneID != d.Current.TimeZoneID ||
		d.saved.IsSpecial != d.Current.IsSpecial ||
		!matrix.Equals(d.saved.Matrix, d.Current.Matrix)
}

// Discard drops unsaved changes.
func (d *Draft) Discard() {
	d.Current = d.saved
}

// Rebase adopts saved as the new baseline and discards local edits, as after
// a successful save or reload.
func (d *Draft) Rebase(saved Fields) {
	d.saved = saved
	d.Current = saved
}
