package oracle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"go.dedis.ch/delphi/lib"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"
)

// RevealState is the lifecycle stage of a stored data point.
type RevealState uint32

const (
	// Hidden depicts that only the ciphertext is known.
	Hidden RevealState = iota + 1
	// Pending depicts that a decryption request is open.
	Pending
	// Revealed depicts that the clear value has been recovered.
	Revealed
)

func (rs RevealState) String() string {
	switch rs {
	case Hidden:
		return "hidden"
	case Pending:
		return "pending"
	case Revealed:
		return "revealed"
	default:
		return "invalid"
	}
}

// DataPoint is one entry of the ciphertext store. Index is assigned by the
// store and never reused. Sources is nil for a direct submission; a derived
// record lists the inputs that were folded with operator Op. Value is only
// meaningful once State is Revealed.
type DataPoint struct {
	Index     uint64
	Topic     string
	Cipher    lib.CipherText
	State     RevealState
	Value     int64
	Sources   []uint64
	Op        string
	Submitted int64
}

// RequestID correlates one decryption request with its callback. It is
// drawn fresh for every request and consumed by the first valid callback.
type RequestID [32]byte

// GenRequestID returns a random RequestID.
func GenRequestID() (id RequestID) {
	random.Bytes(id[:], random.New())
	return id
}

// Slice returns the request id as a []byte.
func (id RequestID) Slice() []byte {
	return id[:]
}

func (id RequestID) String() string {
	return hex.EncodeToString(id[:])
}

// EncodePayload returns the clear-value wire form used in callbacks:
// 8 bytes little-endian, two's complement.
func EncodePayload(v int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return buf
}

// DecodePayload reverses EncodePayload.
func DecodePayload(buf []byte) (int64, error) {
	if len(buf) != 8 {
		return 0, xerrors.Errorf("expected 8 payload bytes, got %d: %w",
			len(buf), ErrDecode)
	}
	return int64(binary.LittleEndian.Uint64(buf)), nil
}

// ProofDigest is the message the decryption authority signs over one
// callback: the request id followed by the clear payload.
func ProofDigest(id RequestID, payload []byte) []byte {
	h := sha256.New()
	h.Write(id.Slice())
	h.Write(payload)
	return h.Sum(nil)
}

// submitDigest is the message a source signs to submit a ciphertext.
func submitDigest(topic string, cipher *lib.CipherText) ([]byte, error) {
	wire, err := cipher.Bytes()
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	h.Write([]byte(topic))
	h.Write(wire)
	return h.Sum(nil), nil
}

// revealDigest is the message a source signs to request a decryption.
func revealDigest(target uint64) []byte {
	h := sha256.New()
	h.Write([]byte("reveal"))
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, target)
	h.Write(buf)
	return h.Sum(nil)
}

// setupDigest is the message the conode operator signs to configure the
// feed: the hash of the authority key and source keys, followed by the
// timestamp.
func setupDigest(req *Setup) ([]byte, error) {
	h := sha256.New()
	buf, err := req.Authority.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("marshalling authority key: %v", err)
	}
	h.Write(buf)
	for _, src := range req.Sources {
		buf, err := src.MarshalBinary()
		if err != nil {
			return nil, xerrors.Errorf("marshalling source key: %v", err)
		}
		h.Write(buf)
	}
	msg := h.Sum(nil)
	msg = append(msg, make([]byte, 8)...)
	binary.LittleEndian.PutUint64(msg[sha256.Size:], uint64(req.Timestamp))
	return msg, nil
}
