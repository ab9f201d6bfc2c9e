package oracle

import (
	"go.dedis.ch/delphi/lib"
	"golang.org/x/xerrors"
)

// aggregator folds stored ciphertexts with a homomorphic operator. It
// only reads: neither the inputs nor their reveal states are touched, and
// nothing is decrypted.
type aggregator struct {
	data *dataDB
}

// Fold combines the ciphertexts at the given indexes, left to right in the
// order given. For a commutative operator like sum the order does not
// change the result; a non-commutative operator folds deterministically in
// caller order. Every index must exist or nothing is returned.
func (a *aggregator) Fold(indexes []uint64, op lib.Operator) (lib.CipherText, error) {
	if len(indexes) == 0 {
		return lib.CipherText{}, xerrors.Errorf("fold: %w", ErrEmptyInput)
	}
	var out lib.CipherText
	for i, index := range indexes {
		dp, err := a.data.Get(index)
		if err != nil {
			if xerrors.Is(err, ErrNotFound) {
				return lib.CipherText{}, xerrors.Errorf("input %d: %w",
					index, ErrMissingInput)
			}
			return lib.CipherText{}, err
		}
		if i == 0 {
			out = dp.Cipher
			continue
		}
		out = op.Apply(out, dp.Cipher)
	}
	return out, nil
}
