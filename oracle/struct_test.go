package oracle

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestPayload(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 1 << 40, -(1 << 40)} {
		got, err := DecodePayload(EncodePayload(v))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}

	_, err := DecodePayload([]byte{1, 2, 3})
	require.True(t, xerrors.Is(err, ErrDecode))
	_, err = DecodePayload(nil)
	require.True(t, xerrors.Is(err, ErrDecode))
}

func TestRequestID(t *testing.T) {
	a := GenRequestID()
	b := GenRequestID()
	require.NotEqual(t, a, b)
	require.Len(t, a.Slice(), 32)
	require.Len(t, a.String(), 64)
}
