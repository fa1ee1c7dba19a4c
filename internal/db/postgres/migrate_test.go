package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingSkipsAppliedAndSorts(t *testing.T) {
	ms := []Migration{
		{Version: 3, SQL: "c"},
		{Version: 1, SQL: "a"},
		{Version: 2, SQL: "b"},
	}

	todo, err := pending([]int{1}, ms)
	require.NoError(t, err)
	require.Len(t, todo, 2)
	assert.Equal(t, 2, todo[0].Version)
	assert.Equal(t, 3, todo[1].Version)

	// всё применено — делать нечего
	todo, err = pending([]int{1, 2, 3}, ms)
	require.NoError(t, err)
	assert.Empty(t, todo)
}

func TestPendingRejectsBadVersions(t *testing.T) {
	_, err := pending(nil, []Migration{{Version: 1}, {Version: 1}})
	assert.Error(t, err)

	_, err = pending(nil, []Migration{{Version: 0}})
	assert.Error(t, err)
}
