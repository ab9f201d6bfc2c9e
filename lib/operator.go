package lib

import (
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// Operator combines two ciphertexts without decrypting them. Apply must be
// associative over the ciphertext space so that folds compose; commutative
// operators additionally make the fold independent of input order.
type Operator interface {
	// Name identifies the operator on the wire.
	Name() string
	// Apply returns the combination of a and b.
	Apply(a, b CipherText) CipherText
}

// OpSum is the name of the built-in additive operator.
const OpSum = "sum"

var operators = make(map[string]Operator)

// RegisterOperator makes op available to services under its name. It is
// meant to be called from init functions and returns an error on a
// duplicate name.
func RegisterOperator(op Operator) error {
	if _, ok := operators[op.Name()]; ok {
		return xerrors.Errorf("operator %q already registered", op.Name())
	}
	operators[op.Name()] = op
	return nil
}

// GetOperator looks an operator up by name.
func GetOperator(name string) (Operator, error) {
	op, ok := operators[name]
	if !ok {
		return nil, xerrors.Errorf("no operator %q", name)
	}
	return op, nil
}

type sumOperator struct{}

func (sumOperator) Name() string { return OpSum }

func (sumOperator) Apply(a, b CipherText) CipherText {
	var out CipherText
	out.Add(a, b)
	return out
}

func init() {
	log.ErrFatal(RegisterOperator(sumOperator{}))
}
