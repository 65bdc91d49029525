package payload_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifer/internal/payload"
)

func TestBuildClampsPriority(t *testing.T) {
	for _, tc := range []struct{ in, want int }{{-1, 1}, {0, 1}, {1, 1}, {3, 3}, {5, 5}, {6, 5}, {1000, 5}} {
		assert.Equal(t, tc.want, payload.Build("t", "m", "", tc.in, nil).Priority, "priority %d", tc.in)
	}
}

func TestBuildTruncatesTagsPreservingOrder(t *testing.T) {
	tags := []string{"a", "b", "c", "d", "e", "f", "g"}
	req := payload.Build("t", "m", "", 3, tags)
	require.Len(t, req.Tags, 5)
	assert.Equal(t, tags[:5], req.Tags)
}

func TestBuildTrimsBlankTags(t *testing.T) {
	req := payload.Build("t", "m", "", 3, []string{" ci ", "", "  ", "deploy", "a", "b", "c", "d"})
	assert.Equal(t, []string{"ci", "deploy", "a", "b", "c"}, req.Tags)

	assert.Nil(t, payload.Build("t", "m", "", 3, []string{" ", ""}).Tags)
	assert.Nil(t, payload.Build("t", "m", "", 3, nil).Tags)
}

func TestBuildKeepsRepeatedTagsInFirstFive(t *testing.T) {
	tags := []string{"a", "a", "b", "c", "d", "e"}
	req := payload.Build("t", "m", "", 3, tags)
	require.Len(t, req.Tags, 5)
	assert.Equal(t, tags[:5], req.Tags)
}

func TestBuildDropsBlankTitle(t *testing.T) {
	assert.Empty(t, payload.Build("t", "m", "   ", 3, nil).Title)
	assert.Equal(t, "Deploy", payload.Build("t", "m", " Deploy ", 3, nil).Title)
}

func TestRequestJSONShape(t *testing.T) {
	data, err := json.Marshal(payload.Build(" ci ", "hello", "", 2, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hello","priority":2}`, string(data))

	data, err = json.Marshal(payload.Build("ci", "hello", "T", 4, []string{"x"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hello","title":"T","priority":4,"tags":["x"]}`, string(data))
}

func TestMergeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, payload.MergeTags([]string{"a"}, []string{"b", "c"}))
	assert.Equal(t, []string{"a"}, payload.MergeTags([]string{"a"}, nil))
}
