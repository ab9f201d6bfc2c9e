package oracle

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestTopicDB(t *testing.T) {
	s := newSer(t)
	defer s.close()
	topics := s.service.topics

	_, err := topics.List("wind")
	require.True(t, xerrors.Is(err, ErrNotFound))

	require.NoError(t, topics.Append("wind", 3))
	require.NoError(t, topics.Append("wind", 1))
	// The same index can be registered twice, the list keeps both.
	require.NoError(t, topics.Append("wind", 3))
	require.NoError(t, topics.Append("rain", 2))

	list, err := topics.List("wind")
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 1, 3}, list)

	list, err = topics.List("rain")
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, list)

	names, err := topics.Topics()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"wind", "rain"}, names)
}
