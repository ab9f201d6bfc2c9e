package decryptor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delphi/lib"
	"go.dedis.ch/delphi/oracle"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
)

var tSuite = suites.MustFind("Ed25519")

func TestMain(m *testing.M) {
	log.MainTest(m)
}

func TestService_CreateKey(t *testing.T) {
	local := onet.NewTCPTest(tSuite)
	defer local.CloseAll()
	_, roster, _ := local.GenTree(1, true)

	c := NewClient(roster.List[0])
	X, err := c.CreateKey()
	require.NoError(t, err)
	require.NotNil(t, X)

	// The key is stable across calls.
	X2, err := c.CreateKey()
	require.NoError(t, err)
	require.True(t, X.Equal(X2))
}

func TestService_DecryptWithoutKey(t *testing.T) {
	local := onet.NewTCPTest(tSuite)
	defer local.CloseAll()
	hosts, roster, _ := local.GenTree(1, true)

	service := local.GetServices(hosts, authorityID)[0].(*Service)
	_, err := service.Decrypt(&oracle.DecryptRequest{
		RequestID: oracle.GenRequestID(),
		Origin:    roster.List[0],
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no authority key")
}

// TestService_EndToEnd runs the whole reveal protocol over the network:
// one conode carries the feed, another the authority.
func TestService_EndToEnd(t *testing.T) {
	local := onet.NewTCPTest(tSuite)
	defer local.CloseAll()
	hosts, roster, _ := local.GenTree(2, true)
	feedNode, authNode := roster.List[0], roster.List[1]

	X, err := NewClient(authNode).CreateKey()
	require.NoError(t, err)

	source := key.NewKeyPair(tSuite)
	feed := oracle.NewClient(feedNode)
	admin := local.GetPrivate(hosts[0])
	require.NoError(t, feed.Setup(admin, X, authNode,
		[]kyber.Point{source.Public}))

	var want int64
	for _, v := range []int64{320, 7, -27} {
		_, err := feed.Submit(source, X, "temperature", v)
		require.NoError(t, err)
		want += v
	}
	agg, err := feed.AggregateTopic("temperature", lib.OpSum)
	require.NoError(t, err)

	id, err := feed.RequestDecryption(source, agg.Index)
	require.NoError(t, err)
	require.NotEqual(t, oracle.RequestID{}, id)

	// The callback is asynchronous, poll for the reveal.
	var dp *oracle.DataPoint
	for i := 0; i < 50; i++ {
		dp, err = feed.GetDataPoint(agg.Index)
		require.NoError(t, err)
		if dp.State == oracle.Revealed {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	require.Equal(t, oracle.Revealed, dp.State)
	require.Equal(t, want, dp.Value)

	// The individual observations stay hidden.
	one, err := feed.GetDataPoint(1)
	require.NoError(t, err)
	require.Equal(t, oracle.Hidden, one.State)

	// The request id was consumed by the callback.
	_, err = feed.RequestDecryption(source, agg.Index)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already revealed")
}
