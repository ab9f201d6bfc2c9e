package lib

import (
	"sync"

	"go.dedis.ch/delphi"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/network"
	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"
)

// CipherText is an ElGamal ciphertext over the delphi suite. K is the
// ephemeral Diffie-Hellman point, C the blinded payload point.
type CipherText struct {
	K kyber.Point
	C kyber.Point
}

// NewCipherText returns the neutral ciphertext, the identity element of
// homomorphic addition.
func NewCipherText() CipherText {
	return CipherText{
		K: delphi.Suite.Point().Null(),
		C: delphi.Suite.Point().Null(),
	}
}

// Encrypt performs the ElGamal encryption of an arbitrary payload point.
func Encrypt(public kyber.Point, M kyber.Point) CipherText {
	k := delphi.Suite.Scalar().Pick(random.New())
	K := delphi.Suite.Point().Mul(k, nil)
	S := delphi.Suite.Point().Mul(k, public)
	return CipherText{K: K, C: S.Add(S, M)}
}

// Decrypt recovers the payload point of c.
func Decrypt(private kyber.Scalar, c CipherText) kyber.Point {
	S := delphi.Suite.Point().Mul(private, c.K)
	return delphi.Suite.Point().Sub(c.C, S)
}

// EncryptInt encrypts v*B so that the value lives in the exponent and
// adding two ciphertexts adds the values.
func EncryptInt(public kyber.Point, v int64) CipherText {
	return Encrypt(public, delphi.Suite.Point().Mul(intToScalar(v), nil))
}

// DecryptInt reverses EncryptInt. Recovering v from v*B is a discrete
// logarithm, solved by a table walk outwards from zero, so it only works
// for values with |v| <= MaxDecryptInt.
func DecryptInt(private kyber.Scalar, c CipherText) (int64, error) {
	return pointToInt(Decrypt(private, c))
}

// Add sets c to the homomorphic sum a+b and returns it.
func (c *CipherText) Add(a, b CipherText) *CipherText {
	c.K = delphi.Suite.Point().Add(a.K, b.K)
	c.C = delphi.Suite.Point().Add(a.C, b.C)
	return c
}

// Bytes returns the protobuf wire form of c, the encoding handed to the
// decryption authority.
func (c *CipherText) Bytes() ([]byte, error) {
	buf, err := protobuf.Encode(c)
	if err != nil {
		return nil, xerrors.Errorf("encoding ciphertext: %v", err)
	}
	return buf, nil
}

// FromBytes decodes the wire form produced by Bytes.
func (c *CipherText) FromBytes(buf []byte) error {
	err := protobuf.DecodeWithConstructors(buf, c,
		network.DefaultConstructors(delphi.Suite))
	if err != nil {
		return xerrors.Errorf("decoding ciphertext: %v", err)
	}
	return nil
}

// MaxDecryptInt bounds the table walk in DecryptInt.
const MaxDecryptInt = 1 << 20

func intToScalar(v int64) kyber.Scalar {
	if v >= 0 {
		return delphi.Suite.Scalar().SetInt64(v)
	}
	return delphi.Suite.Scalar().Neg(delphi.Suite.Scalar().SetInt64(-v))
}

// dlog caches base-point multiples seen so far. The table grows towards
// both ends on demand and is shared by all decryptions.
var dlog = struct {
	sync.Mutex
	table map[string]int64
	max   int64
	pos   kyber.Point
	neg   kyber.Point
}{table: make(map[string]int64)}

func pointToInt(M kyber.Point) (int64, error) {
	dlog.Lock()
	defer dlog.Unlock()
	if dlog.pos == nil {
		dlog.pos = delphi.Suite.Point().Null()
		dlog.neg = delphi.Suite.Point().Null()
		dlog.table[dlog.pos.String()] = 0
	}
	if v, ok := dlog.table[M.String()]; ok {
		return v, nil
	}
	B := delphi.Suite.Point().Base()
	for dlog.max < MaxDecryptInt {
		dlog.max++
		dlog.pos.Add(dlog.pos, B)
		dlog.table[dlog.pos.String()] = dlog.max
		if dlog.pos.Equal(M) {
			return dlog.max, nil
		}
		dlog.neg.Sub(dlog.neg, B)
		dlog.table[dlog.neg.String()] = -dlog.max
		if dlog.neg.Equal(M) {
			return -dlog.max, nil
		}
	}
	return 0, xerrors.New("discrete log out of range")
}
