package domain

import (
	"slices"

	"github.com/samber/lo"
)

// UserSet is a sorted set of user ids.
// Kept as a slice so it serialises deterministically.
type UserSet []string

// NewUserSet returns nil for an empty input.
func NewUserSet(userIDs ...string) UserSet {
	if len(lo.Compact(userIDs)) == 0 {
		return nil
	}
	set := lo.Uniq(lo.Compact(userIDs))
	slices.Sort(set)
	return set
}

func (s UserSet) Contains(userID string) bool {
	_, found := slices.BinarySearch(s, userID)
	return found
}

// Add returns the union of s and userIDs, and whether anything was added.
// s is never modified in place.
func (s UserSet) Add(userIDs ...string) (UserSet, bool) {
	missing := lo.Filter(lo.Uniq(userIDs), func(id string, _ int) bool {
		return id != "" && !s.Contains(id)
	})
	if len(missing) == 0 {
		return s, false
	}
	out := make(UserSet, 0, len(s)+len(missing))
	out = append(out, s...)
	out = append(out, missing...)
	slices.Sort(out)
	return out, true
}

// ContainsAll reports whether every id of userIDs belongs to s.
func (s UserSet) ContainsAll(userIDs []string) bool {
	return lo.EveryBy(userIDs, s.Contains)
}
