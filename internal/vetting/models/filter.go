package models

// ListFilter narrows admin application listings.
// Zero Limit means the store default (50). Results are newest first.
type ListFilter struct {
	Status *Status
	Query  string // matches applicant scene name, case-insensitive
	Limit  int
	Offset int
}

// EffectiveLimit clamps Limit into (0, 200].
func (f ListFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return 50
	}
	if f.Limit > 200 {
		return 200
	}
	return f.Limit
}

// EffectiveOffset clamps Offset to >= 0. Negative values come straight
// from query parameters and must never reach a slice bound or OFFSET.
func (f ListFilter) EffectiveOffset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}
