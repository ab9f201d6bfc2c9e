package oracle

import (
	"encoding/binary"

	"go.dedis.ch/onet/v3"
	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// Dispatcher hands a wire-form ciphertext to the decryption authority.
// Dispatch must not wait for the decryption itself; the result comes back
// later as a DecryptionCallback.
type Dispatcher interface {
	Dispatch(id RequestID, cipher []byte) error
}

// Verifier checks a callback proof over the digest binding request id and
// payload. The service installs schnorr verification against the feed's
// authority key.
type Verifier func(id RequestID, payload, proof []byte) error

// coordinator owns the reveal protocol: the guarded Hidden to Pending to
// Revealed transitions and the single-use table correlating request ids
// with their targets. The table lives in its own bucket so open requests
// survive a restart.
type coordinator struct {
	data     *dataDB
	db       *bbolt.DB
	bucket   []byte
	dispatch Dispatcher
	verify   Verifier
}

func newCoordinator(c *onet.Context, data *dataDB) *coordinator {
	db, name := c.GetAdditionalBucket([]byte("requests"))
	return &coordinator{data: data, db: db, bucket: name}
}

// RequestDecryption opens a reveal for target: it guards the state
// machine, stores a fresh request id and dispatches the ciphertext. It
// returns as soon as the authority has acknowledged the dispatch, never
// waiting for the decryption.
func (c *coordinator) RequestDecryption(target uint64) (RequestID, error) {
	var id RequestID
	dp, err := c.data.Get(target)
	if err != nil {
		return id, err
	}
	wire, err := dp.Cipher.Bytes()
	if err != nil {
		return id, xerrors.Errorf("ciphertext wire form: %v", err)
	}
	if err := c.data.MarkPending(target); err != nil {
		return id, err
	}
	id = GenRequestID()
	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(c.bucket).Put(id.Slice(), dataKey(target))
	})
	if err != nil {
		return id, xerrors.Errorf("storing request: %v: %w", err, ErrCapacity)
	}
	if err := c.dispatch.Dispatch(id, wire); err != nil {
		return id, xerrors.Errorf("dispatching request %v: %v", id, err)
	}
	return id, nil
}

// Callback resolves an open request. The correlation entry is consumed
// only on success: a rejected proof or a malformed payload leaves the
// request open so the authority can send a corrected callback, while a
// consumed or never-issued id fails as unknown.
func (c *coordinator) Callback(id RequestID, payload, proof []byte) (uint64, int64, error) {
	var target uint64
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(c.bucket).Get(id.Slice())
		if v == nil {
			return xerrors.Errorf("request %v: %w", id, ErrUnknownRequest)
		}
		target = binary.BigEndian.Uint64(v)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if err := c.verify(id, payload, proof); err != nil {
		return 0, 0, xerrors.Errorf("request %v: %v: %w", id, err,
			ErrVerification)
	}
	value, err := DecodePayload(payload)
	if err != nil {
		return 0, 0, err
	}
	if err := c.data.SetRevealed(target, value); err != nil {
		return 0, 0, err
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(c.bucket).Delete(id.Slice())
	})
	if err != nil {
		return 0, 0, xerrors.Errorf("consuming request %v: %v", id, err)
	}
	return target, value, nil
}
