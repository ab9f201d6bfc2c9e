package lib

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delphi"
	"go.dedis.ch/kyber/v3/util/key"
)

func TestOperatorRegistry(t *testing.T) {
	op, err := GetOperator(OpSum)
	require.NoError(t, err)
	require.Equal(t, OpSum, op.Name())

	_, err = GetOperator("product")
	require.Error(t, err)

	require.Error(t, RegisterOperator(sumOperator{}))
}

func TestSumOperator(t *testing.T) {
	kp := key.NewKeyPair(delphi.Suite)
	op, err := GetOperator(OpSum)
	require.NoError(t, err)

	a := EncryptInt(kp.Public, 30)
	b := EncryptInt(kp.Public, 12)
	v, err := DecryptInt(kp.Private, op.Apply(a, b))
	require.NoError(t, err)
	require.Equal(t, int64(42), v)
}
