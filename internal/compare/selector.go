// Package compare holds the side-by-side comparison selection and the table
// projection used to render heterogeneous entities against one schema.
package compare

import (
	"errors"

	"uni_directory/internal/domain"
)

type Kind string

const (
	Universities Kind = "universities"
	Faculties    Kind = "faculties"
)

func (k Kind) Valid() bool { return k == Universities || k == Faculties }

// MaxItems caps the selection size.
const MaxItems = 3

// LimitMessage is shown to users when the cap is hit.
const LimitMessage = "You can compare up to 3 items at a time"

var ErrLimitReached = errors.New("compare: selection limit reached")

type Item struct {
	ID     int64         `json:"id"`
	Kind   Kind          `json:"type"`
	Name   string        `json:"name"`
	Record domain.Record `json:"record"`
}

type Stage string

const (
	StageEmpty    Stage = "empty"     // prompt to start
	StageNeedMore Stage = "need_more" // prompt to add another item
	StageReady    Stage = "ready"     // render the table
)

// Selector is an ordered set of at most MaxItems items. It is not safe for
// concurrent use.
type Selector struct {
	kind  Kind
	items []Item
}

func NewSelector(kind Kind) *Selector {
	if !kind.Valid() {
		kind = Universities
	}
	return &Selector{kind: kind}
}

// Kind is the type new items are tagged with.
func (s *Selector) Kind() Kind { return s.kind }

// SetKind switches the active type. Already selected items keep their tag.
func (s *Selector) SetKind(k Kind) {
	if k.Valid() {
		s.kind = k
	}
}

// Add appends it tagged with the active kind. Adding an id that is already
// selected is a no-op; adding to a full selection returns ErrLimitReached and
// leaves the selection unchanged.
func (s *Selector) Add(it Item) error {
	if s.Contains(it.ID) {
		return nil
	}
	if len(s.items) >= MaxItems {
		return ErrLimitReached
	}
	it.Kind = s.kind
	s.items = append(s.items, it)
	return nil
}

func (s *Selector) Remove(id int64) {
	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *Selector) Clear() { s.items = nil }

func (s *Selector) Contains(id int64) bool {
	for _, it := range s.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func (s *Selector) Count() int { return len(s.items) }

// Items returns a copy of the selection in insertion order.
func (s *Selector) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Selector) Stage() Stage { return StageFor(len(s.items)) }

func StageFor(n int) Stage {
	switch {
	case n <= 0:
		return StageEmpty
	case n == 1:
		return StageNeedMore
	default:
		return StageReady
	}
}

// State is the serializable form of a Selector.
type State struct {
	Kind  Kind   `json:"type"`
	Items []Item `json:"items"`
}

func (s *Selector) Snapshot() State { return State{Kind: s.kind, Items: s.Items()} }

// Restore rebuilds a selector. Items beyond MaxItems and duplicate ids are dropped.
func Restore(st State) *Selector {
	s := NewSelector(st.Kind)
	for _, it := range st.Items {
		if s.Contains(it.ID) || len(s.items) >= MaxItems {
			continue
		}
		s.items = append(s.items, it)
	}
	return s
}
