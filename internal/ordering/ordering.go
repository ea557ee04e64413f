// Package ordering maintains the contiguous 1..N index shared by a set of
// sibling elements: collections, products inside a collection or upsell, and
// cart line items.
package ordering

import (
	"cmp"
	"errors"
	"slices"
)

var (
	ErrInvalidIndex = errors.New("index is out of range")
	ErrNotFound     = errors.New("item not found")
	ErrNoSwapTarget = errors.New("no item holds the requested index")
)

// Sibling is an element of an ordered set
type Sibling interface {
	SiblingID() string
	SiblingIndex() int
	SetSiblingIndex(int)
}

// Swap moves the sibling identified by targetID to requested and gives the
// sibling previously at requested the target's old index. A set that is not
// a contiguous permutation is renumbered before the swap is applied.
func Swap[S Sibling](set []S, targetID string, requested int) error {
	if requested < 1 || requested > len(set) {
		return ErrInvalidIndex
	}

	target := indexOf(set, targetID)
	if target < 0 {
		return ErrNotFound
	}

	if !IsContiguous(set) {
		Renumber(set)
		target = indexOf(set, targetID)
	}

	current := set[target].SiblingIndex()
	if current == requested {
		return nil
	}

	other := -1
	for k, s := range set {
		if k != target && s.SiblingIndex() == requested {
			other = k
			break
		}
	}
	if other < 0 {
		return ErrNoSwapTarget
	}

	set[target].SetSiblingIndex(requested)
	set[other].SetSiblingIndex(current)
	return nil
}

// InsertFirst shifts every existing sibling up by one and places s at index 1
func InsertFirst[S Sibling](set []S, s S) []S {
	for _, existing := range set {
		existing.SetSiblingIndex(existing.SiblingIndex() + 1)
	}
	s.SetSiblingIndex(1)

	out := make([]S, 0, len(set)+1)
	out = append(out, s)
	out = append(out, set...)
	Renumber(out)
	return out
}

// Append places s after the last sibling
func Append[S Sibling](set []S, s S) []S {
	s.SetSiblingIndex(len(set) + 1)
	return append(set, s)
}

// Remove drops the sibling with the given id and renumbers the rest. The
// boolean is false when no sibling matched.
func Remove[S Sibling](set []S, id string) ([]S, bool) {
	return RemoveFunc(set, func(s S) bool { return s.SiblingID() == id })
}

// RemoveFunc drops every sibling for which drop returns true and renumbers
// the survivors.
func RemoveFunc[S Sibling](set []S, drop func(S) bool) ([]S, bool) {
	out := make([]S, 0, len(set))
	removed := false
	for _, s := range set {
		if drop(s) {
			removed = true
			continue
		}
		out = append(out, s)
	}
	Renumber(out)
	return out, removed
}

// Renumber sorts the set and reassigns 1..N in that order
func Renumber[S Sibling](set []S) {
	Sort(set)
	for k, s := range set {
		s.SetSiblingIndex(k + 1)
	}
}

// Sort orders the set by index ascending. Siblings sharing an index, which
// only a damaged set has, are ordered by id so a repair is deterministic.
func Sort[S Sibling](set []S) {
	slices.SortStableFunc(set, func(a, b S) int {
		return cmp.Or(
			cmp.Compare(a.SiblingIndex(), b.SiblingIndex()),
			cmp.Compare(a.SiblingID(), b.SiblingID()),
		)
	})
}

// IsContiguous reports whether the indices are exactly {1..N}
func IsContiguous[S Sibling](set []S) bool {
	seen := make([]bool, len(set)+1)
	for _, s := range set {
		idx := s.SiblingIndex()
		if idx < 1 || idx > len(set) || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

func indexOf[S Sibling](set []S, id string) int {
	for k, s := range set {
		if s.SiblingID() == id {
			return k
		}
	}
	return -1
}
