package oracle

import (
	"encoding/binary"

	"go.dedis.ch/onet/v3"
	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// topicDB maps each topic name to the ordered list of indexes submitted to
// it. Every topic is a nested bucket keyed by an append sequence, so the
// lists are append-only and iterate in submission order.
type topicDB struct {
	db     *bbolt.DB
	bucket []byte
}

func newTopicDB(c *onet.Context) *topicDB {
	db, name := c.GetAdditionalBucket([]byte("topics"))
	return &topicDB{db: db, bucket: name}
}

// Append records index as the newest member of topic, creating the topic
// on first use.
func (t *topicDB) Append(topic string, index uint64) error {
	err := t.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(t.bucket).CreateBucketIfNotExists([]byte(topic))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(dataKey(seq), dataKey(index))
	})
	if err != nil {
		return xerrors.Errorf("appending to topic %q: %v: %w", topic, err,
			ErrCapacity)
	}
	return nil
}

// List returns the indexes of topic in append order.
func (t *topicDB) List(topic string) ([]uint64, error) {
	var out []uint64
	err := t.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(t.bucket).Bucket([]byte(topic))
		if b == nil {
			return xerrors.Errorf("topic %q: %w", topic, ErrNotFound)
		}
		return b.ForEach(func(k, v []byte) error {
			out = append(out, binary.BigEndian.Uint64(v))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Topics returns the names of all topics seen so far.
func (t *topicDB) Topics() ([]string, error) {
	var out []string
	err := t.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(t.bucket).ForEach(func(k, v []byte) error {
			if v == nil {
				out = append(out, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, xerrors.Errorf("listing topics: %v", err)
	}
	return out, nil
}
