// Package mood maps the fixed set of mood labels to TMDB genre ids and
// holds the home screen's browse selection rules.
package mood

// Definition is one mood chip. The table is compiled in and never
// mutated at runtime.
type Definition struct {
	Label    string  `json:"label"`
	Emoji    string  `json:"emoji"`
	GenreIDs []int64 `json:"genre_ids"`
}

var definitions = []Definition{
	{Label: "Happy", Emoji: "😄", GenreIDs: []int64{35, 10751}},
	{Label: "Sad", Emoji: "😢", GenreIDs: []int64{18}},
	{Label: "Broken", Emoji: "💔", GenreIDs: []int64{10749, 18}},
	{Label: "Excited", Emoji: "🤩", GenreIDs: []int64{28, 12}},
	{Label: "Bored", Emoji: "🥱", GenreIDs: []int64{53, 9648}},
	{Label: "Spooky", Emoji: "👻", GenreIDs: []int64{27}},
}

// All returns the mood table in its fixed order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Resolve returns the genre ids for a mood label, or nil for an unknown
// label. Callers fall back to unfiltered discovery on nil.
func Resolve(label string) []int64 {
	for _, d := range definitions {
		if d.Label == label {
			ids := make([]int64, len(d.GenreIDs))
			copy(ids, d.GenreIDs)
			return ids
		}
	}
	return nil
}

// Known reports whether the label is one of the six moods.
func Known(label string) bool {
	return Resolve(label) != nil
}

// Filter is the home screen's media-kind tab.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterMovies Filter = "movies"
	FilterTV     Filter = "tv"
)

// ParseFilter maps a query-param value to a Filter, defaulting to all.
func ParseFilter(raw string) Filter {
	switch Filter(raw) {
	case FilterMovies:
		return FilterMovies
	case FilterTV:
		return FilterTV
	default:
		return FilterAll
	}
}

// Selection is the per-session browse state. A mood and a filter are
// mutually exclusive query modes: setting one clears the other.
type Selection struct {
	Filter Filter
	Mood   string
}

func NewSelection() Selection {
	return Selection{Filter: FilterAll}
}

func (s *Selection) SetFilter(f Filter) {
	s.Filter = f
	s.Mood = ""
}

func (s *Selection) SetMood(label string) {
	s.Mood = label
	s.Filter = FilterAll
}

// MoodActive reports whether the selection is in mood mode, which takes
// precedence over the filter when building a query.
func (s Selection) MoodActive() bool {
	return s.Mood != ""
}
