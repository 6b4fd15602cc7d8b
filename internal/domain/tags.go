package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// NormalizeTag lower-cases a tag and collapses surrounding and inner whitespace.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.Join(strings.Fields(tag), " "))
}

// TagSet is an immutable, deduplicated set of normalized tags.
// The zero value is an empty set.
type TagSet struct {
	items map[string]struct{}
}

// NewTagSet normalizes and deduplicates tags. Empty tags are dropped.
func NewTagSet(tags ...string) TagSet {
	items := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		items[n] = struct{}{}
	}
	return TagSet{items: items}
}

// Len returns the number of distinct tags.
func (s TagSet) Len() int { return len(s.items) }

// Has reports whether the normalized tag is in the set.
func (s TagSet) Has(tag string) bool {
	_, ok := s.items[NormalizeTag(tag)]
	return ok
}

// contains checks an already-normalized tag.
func (s TagSet) contains(tag string) bool {
	_, ok := s.items[tag]
	return ok
}

// Sorted returns the tags in lexical order.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s.items))
	for t := range s.items {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Intersect returns tags present in both sets.
func (s TagSet) Intersect(other TagSet) TagSet {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	items := make(map[string]struct{})
	for t := range small.items {
		if large.contains(t) {
			items[t] = struct{}{}
		}
	}
	return TagSet{items: items}
}

// Difference returns tags in s that are absent from other.
func (s TagSet) Difference(other TagSet) TagSet {
	items := make(map[string]struct{})
	for t := range s.items {
		if !other.contains(t) {
			items[t] = struct{}{}
		}
	}
	return TagSet{items: items}
}

// Equal reports whether both sets hold the same tags.
func (s TagSet) Equal(other TagSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for t := range s.items {
		if !other.contains(t) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted()) //nolint:wrapcheck // plain slice encoding
}

// UnmarshalJSON decodes an array of tags, normalizing and deduplicating it.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err //nolint:wrapcheck // surfaced by the caller's decoder
	}
	*s = NewTagSet(tags...)
	return nil
}
