package mood

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllHasSixMoods(t *testing.T) {
	moods := All()
	require.Len(t, moods, 6)

	labels := make([]string, 0, len(moods))
	for _, d := range moods {
		labels = append(labels, d.Label)
		assert.NotEmpty(t, d.Emoji, "mood %s has no emoji", d.Label)
		assert.NotEmpty(t, d.GenreIDs, "mood %s has no genres", d.Label)
	}
	assert.Equal(t, []string{"Happy", "Sad", "Broken", "Excited", "Bored", "Spooky"}, labels)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, []int64{35, 10751}, Resolve("Happy"))
	assert.Equal(t, []int64{18}, Resolve("Sad"))
	assert.Equal(t, []int64{10749, 18}, Resolve("Broken"))
	assert.Equal(t, []int64{28, 12}, Resolve("Excited"))
	assert.Equal(t, []int64{53, 9648}, Resolve("Bored"))
	assert.Equal(t, []int64{27}, Resolve("Spooky"))
}

func TestResolveUnknownLabel(t *testing.T) {
	assert.Nil(t, Resolve("Grumpy"))
	assert.Nil(t, Resolve(""))
	assert.Nil(t, Resolve("happy"), "labels are case sensitive")
	assert.False(t, Known("Grumpy"))
	assert.True(t, Known("Spooky"))
}

func TestResolveReturnsCopy(t *testing.T) {
	ids := Resolve("Excited")
	ids[0] = 999
	assert.Equal(t, []int64{28, 12}, Resolve("Excited"))
}

func TestSelectionMutualExclusion(t *testing.T) {
	sel := NewSelection()
	assert.Equal(t, FilterAll, sel.Filter)
	assert.False(t, sel.MoodActive())

	sel.SetMood("Happy")
	assert.True(t, sel.MoodActive())
	assert.Equal(t, FilterAll, sel.Filter)

	// Picking a tab filter clears the mood.
	sel.SetFilter(FilterTV)
	assert.False(t, sel.MoodActive())
	assert.Equal(t, FilterTV, sel.Filter)

	// And picking a mood resets the tab.
	sel.SetMood("Spooky")
	assert.True(t, sel.MoodActive())
	assert.Equal(t, FilterAll, sel.Filter)
	assert.Equal(t, "Spooky", sel.Mood)
}

func TestParseFilter(t *testing.T) {
	assert.Equal(t, FilterMovies, ParseFilter("movies"))
	assert.Equal(t, FilterTV, ParseFilter("tv"))
	assert.Equal(t, FilterAll, ParseFilter("all"))
	assert.Equal(t, FilterAll, ParseFilter(""))
	assert.Equal(t, FilterAll, ParseFilter("nonsense"))
}
