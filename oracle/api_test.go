package oracle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delphi/lib"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/util/key"
)

func TestClient_Flow(t *testing.T) {
	s := newSer(t)
	defer s.close()

	c := NewClient(s.roster.List[0])
	admin := s.local.GetPrivate(s.hosts[0])
	authority := key.NewKeyPair(tSuite)
	source := key.NewKeyPair(tSuite)
	require.NoError(t, c.Setup(admin, authority.Public, s.roster.List[0],
		[]kyber.Point{source.Public}))

	var want int64
	for _, v := range []int64{11, 22, 33} {
		reply, err := c.Submit(source, authority.Public, "temperature", v)
		require.NoError(t, err)
		require.NotZero(t, reply.Index)
		require.NotZero(t, reply.When)
		want += v
	}

	list, err := c.ListTopic("temperature")
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, list)

	agg, err := c.AggregateTopic("temperature", lib.OpSum)
	require.NoError(t, err)
	require.Equal(t, uint64(4), agg.Index)

	id, err := c.RequestDecryption(source, agg.Index)
	require.NoError(t, err)
	require.NotEqual(t, RequestID{}, id)

	// Play the authority: decrypt the dispatched ciphertext and answer
	// over the wire.
	var cipher lib.CipherText
	require.NoError(t, cipher.FromBytes(s.disp.cipher(t, id)))
	value, err := lib.DecryptInt(authority.Private, cipher)
	require.NoError(t, err)
	require.Equal(t, want, value)

	payload := EncodePayload(value)
	proof, err := schnorr.Sign(tSuite, authority.Private, ProofDigest(id, payload))
	require.NoError(t, err)
	cb, err := c.DecryptionCallback(id, payload, proof)
	require.NoError(t, err)
	require.Equal(t, agg.Index, cb.Index)
	require.Equal(t, want, cb.Value)

	dp, err := c.GetDataPoint(agg.Index)
	require.NoError(t, err)
	require.Equal(t, Revealed, dp.State)
	require.Equal(t, want, dp.Value)

	info, err := c.Info()
	require.NoError(t, err)
	require.True(t, info.Authority.Equal(authority.Public))
	require.Len(t, info.Sources, 1)
	require.Equal(t, []string{"temperature"}, info.Topics)
	require.Equal(t, agg.Index, info.Last)

	// Error texts survive the network round trip.
	_, err = c.GetDataPoint(999)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no such data point")

	_, err = c.DecryptionCallback(id, payload, proof)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown decryption request")
}

func TestClient_AggregateIndexes(t *testing.T) {
	s := newSer(t)
	defer s.close()

	c := NewClient(s.roster.List[0])
	i1 := s.submit(t, "wind", 5)
	s.submit(t, "wind", 6)
	i3 := s.submit(t, "wind", 7)

	agg, err := c.AggregateIndexes([]uint64{i1, i3}, lib.OpSum)
	require.NoError(t, err)

	got, err := lib.DecryptInt(s.authority.Private, agg.Cipher)
	require.NoError(t, err)
	require.Equal(t, int64(12), got)

	dp, err := c.GetDataPoint(agg.Index)
	require.NoError(t, err)
	require.Equal(t, []uint64{i1, i3}, dp.Sources)
}

func TestClient_StreamEvents(t *testing.T) {
	s := newSer(t)
	defer s.close()

	c := NewClient(s.roster.List[0])
	defer c.Close()
	events := make(chan FeedEvent, 8)
	go func() {
		c.StreamEvents(func(ev FeedEvent, err error) {
			if err != nil {
				return
			}
			events <- ev
		})
	}()

	// Wait for the subscription to reach the service before submitting.
	var subscribed bool
	for i := 0; i < 50 && !subscribed; i++ {
		s.service.streamingMan.Lock()
		subscribed = len(s.service.streamingMan.listeners) > 0
		s.service.streamingMan.Unlock()
		time.Sleep(20 * time.Millisecond)
	}
	require.True(t, subscribed)

	index := s.submit(t, "humidity", 42)
	requireEvent(t, events, EventSubmitted, index)

	id := s.request(t, index)
	requireEvent(t, events, EventRequested, index)

	_, err := s.callback(t, id)
	require.NoError(t, err)
	requireEvent(t, events, EventDecrypted, index)
}
