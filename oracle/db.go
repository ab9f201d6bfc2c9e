package oracle

import (
	"encoding/binary"
	"sync"

	"go.dedis.ch/delphi"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"
	"go.dedis.ch/protobuf"
	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// dbVersion fixes the storage-format version. There is no version 0.
const dbVersion = 1

var storageKey = []byte("config")

func init() {
	network.RegisterMessages(&storage{})
}

// storage is the feed configuration, kept with onet's service-storage
// helpers so it survives restarts.
type storage struct {
	sync.Mutex
	Authority     kyber.Point
	AuthorityNode *network.ServerIdentity
	Sources       []kyber.Point
}

// save stores the feed configuration.
func (s *Service) save() error {
	s.storage.Lock()
	defer s.storage.Unlock()
	err := s.Save(storageKey, s.storage)
	if err != nil {
		log.Error("couldn't save feed config:", err)
		return xerrors.Errorf("saving feed config: %v", err)
	}
	return nil
}

// tryLoad restores the feed configuration if a previous one exists.
func (s *Service) tryLoad() error {
	s.storage = &storage{}
	ver, err := s.LoadVersion()
	if err != nil {
		return xerrors.Errorf("loading version: %v", err)
	}
	if ver < dbVersion {
		if err := s.SaveVersion(dbVersion); err != nil {
			return xerrors.Errorf("saving version: %v", err)
		}
	}
	msg, err := s.Load(storageKey)
	if err != nil {
		return xerrors.Errorf("loading feed config: %v", err)
	}
	if msg == nil {
		return nil
	}
	var ok bool
	s.storage, ok = msg.(*storage)
	if !ok {
		return xerrors.New("feed config of wrong type")
	}
	return nil
}

// dataDB is the persistent ciphertext store. Records live under their
// index encoded big-endian so cursors iterate in id order; indexes come
// from the bucket's own sequence and are never reused, also across
// restarts.
type dataDB struct {
	db     *bbolt.DB
	bucket []byte
}

func newDataDB(c *onet.Context) *dataDB {
	db, name := c.GetAdditionalBucket([]byte("data"))
	return &dataDB{db: db, bucket: name}
}

func dataKey(index uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, index)
	return key
}

// Store persists dp under a fresh index and returns it.
func (d *dataDB) Store(dp *DataPoint) (uint64, error) {
	err := d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(d.bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		dp.Index = seq
		buf, err := protobuf.Encode(dp)
		if err != nil {
			return err
		}
		return b.Put(dataKey(seq), buf)
	})
	if err != nil {
		return 0, xerrors.Errorf("storing data point: %v: %w", err, ErrCapacity)
	}
	return dp.Index, nil
}

// Get returns the data point stored at index.
func (d *dataDB) Get(index uint64) (*DataPoint, error) {
	var dp *DataPoint
	err := d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(d.bucket).Get(dataKey(index))
		if v == nil {
			return xerrors.Errorf("index %d: %w", index, ErrNotFound)
		}
		dp = &DataPoint{}
		err := protobuf.DecodeWithConstructors(v, dp,
			network.DefaultConstructors(delphi.Suite))
		if err != nil {
			return xerrors.Errorf("decoding data point %d: %v", index, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dp, nil
}

// MarkPending moves the data point at index from Hidden to Pending, the
// only transition that opens a decryption request.
func (d *dataDB) MarkPending(index uint64) error {
	return d.update(index, func(dp *DataPoint) error {
		switch dp.State {
		case Hidden:
			dp.State = Pending
			return nil
		case Pending:
			return xerrors.Errorf("index %d: %w", index, ErrRequestPending)
		case Revealed:
			return xerrors.Errorf("index %d: %w", index, ErrAlreadyRevealed)
		default:
			return xerrors.Errorf("index %d in state %d: %w", index,
				dp.State, ErrInvalidTransition)
		}
	})
}

// SetRevealed moves the data point at index from Pending to Revealed and
// records its clear value. Revealed records are immutable.
func (d *dataDB) SetRevealed(index uint64, value int64) error {
	return d.update(index, func(dp *DataPoint) error {
		switch dp.State {
		case Pending:
			dp.State = Revealed
			dp.Value = value
			return nil
		case Revealed:
			return xerrors.Errorf("index %d: %w", index, ErrAlreadyRevealed)
		default:
			return xerrors.Errorf("index %d is %v, not pending: %w", index,
				dp.State, ErrInvalidTransition)
		}
	})
}

// Last returns the highest index assigned so far, zero for an empty store.
func (d *dataDB) Last() (uint64, error) {
	var last uint64
	err := d.db.View(func(tx *bbolt.Tx) error {
		last = tx.Bucket(d.bucket).Sequence()
		return nil
	})
	if err != nil {
		return 0, xerrors.Errorf("reading sequence: %v", err)
	}
	return last, nil
}

// update loads, mutates and rewrites one record inside a single write
// transaction, which serializes all state changes on the store.
func (d *dataDB) update(index uint64, mutate func(*DataPoint) error) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(d.bucket)
		v := b.Get(dataKey(index))
		if v == nil {
			return xerrors.Errorf("index %d: %w", index, ErrNotFound)
		}
		var dp DataPoint
		err := protobuf.DecodeWithConstructors(v, &dp,
			network.DefaultConstructors(delphi.Suite))
		if err != nil {
			return xerrors.Errorf("decoding data point %d: %v", index, err)
		}
		if err := mutate(&dp); err != nil {
			return err
		}
		buf, err := protobuf.Encode(&dp)
		if err != nil {
			return xerrors.Errorf("encoding data point %d: %v", index, err)
		}
		return b.Put(dataKey(index), buf)
	})
}
