package chat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	assert.Equal(t, Pair{Low: a, High: b}, CanonicalPair(a, b))
	assert.Equal(t, CanonicalPair(a, b), CanonicalPair(b, a))
	assert.True(t, Less(a, b))
	assert.False(t, Less(b, a))
	assert.False(t, Less(a, a))
}

func TestSortIDs(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	SortIDs(ids)
	for i := 1; i < len(ids); i++ {
		assert.True(t, Less(ids[i-1], ids[i]))
	}
}

func TestParticipants(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	c := Chat{Participants: []uuid.UUID{a, b}}

	assert.True(t, c.HasParticipant(a))
	assert.False(t, c.HasParticipant(uuid.New()))
	assert.Equal(t, []uuid.UUID{b}, c.Others(a))
	assert.Len(t, c.Others(uuid.New()), 2)

	left := Chat{Participants: []uuid.UUID{b}}
	assert.Empty(t, left.Others(b))
}
