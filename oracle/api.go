package oracle

import (
	"time"

	"go.dedis.ch/delphi"
	"go.dedis.ch/delphi/lib"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"
)

// Client is a structure to communicate with the delphi feed service.
type Client struct {
	*onet.Client
	// Node is the conode holding the feed.
	Node *network.ServerIdentity
}

// NewClient instantiates a new Client for the feed on node.
func NewClient(node *network.ServerIdentity) *Client {
	return &Client{
		Client: onet.NewClient(delphi.Suite, ServiceName),
		Node:   node,
	}
}

// Setup configures the feed. The admin secret is the conode's private key
// from its private.toml; only its holder may change the configuration.
func (c *Client) Setup(admin kyber.Scalar, authority kyber.Point,
	authorityNode *network.ServerIdentity, sources []kyber.Point) error {
	req := &Setup{
		Authority:     authority,
		AuthorityNode: authorityNode,
		Sources:       sources,
		Timestamp:     time.Now().Unix(),
	}
	digest, err := setupDigest(req)
	if err != nil {
		return err
	}
	req.Signature, err = schnorr.Sign(delphi.Suite, admin, digest)
	if err != nil {
		return xerrors.Errorf("signing setup: %v", err)
	}
	err = c.SendProtobuf(c.Node, req, &SetupReply{})
	if err != nil {
		return xerrors.Errorf("sending setup: %v", err)
	}
	return nil
}

// Submit encrypts value under the feed's authority key and stores it on
// topic, signed by the source keypair.
func (c *Client) Submit(source *key.Pair, feedKey kyber.Point, topic string,
	value int64) (*SubmitReply, error) {
	return c.SubmitCipher(source, topic, lib.EncryptInt(feedKey, value))
}

// SubmitCipher stores an observation that is already encrypted.
func (c *Client) SubmitCipher(source *key.Pair, topic string,
	cipher lib.CipherText) (*SubmitReply, error) {
	digest, err := submitDigest(topic, &cipher)
	if err != nil {
		return nil, err
	}
	sig, err := schnorr.Sign(delphi.Suite, source.Private, digest)
	if err != nil {
		return nil, xerrors.Errorf("signing submission: %v", err)
	}
	reply := &SubmitReply{}
	err = c.SendProtobuf(c.Node, &Submit{
		Topic:     topic,
		Cipher:    cipher,
		Source:    source.Public,
		Signature: sig,
	}, reply)
	if err != nil {
		return nil, xerrors.Errorf("sending submission: %v", err)
	}
	return reply, nil
}

// AggregateTopic folds every ciphertext of topic with the named operator
// and returns the derived record.
func (c *Client) AggregateTopic(topic, op string) (*AggregateReply, error) {
	reply := &AggregateReply{}
	err := c.SendProtobuf(c.Node, &Aggregate{Topic: topic, Op: op}, reply)
	if err != nil {
		return nil, xerrors.Errorf("sending aggregate: %v", err)
	}
	return reply, nil
}

// AggregateIndexes folds an explicit index list, in the order given.
func (c *Client) AggregateIndexes(indexes []uint64, op string) (*AggregateReply, error) {
	reply := &AggregateReply{}
	err := c.SendProtobuf(c.Node, &Aggregate{Indices: indexes, Op: op}, reply)
	if err != nil {
		return nil, xerrors.Errorf("sending aggregate: %v", err)
	}
	return reply, nil
}

// RequestDecryption opens the reveal protocol for the data point at target
// and returns the id that correlates the eventual callback.
func (c *Client) RequestDecryption(source *key.Pair, target uint64) (RequestID, error) {
	sig, err := schnorr.Sign(delphi.Suite, source.Private, revealDigest(target))
	if err != nil {
		return RequestID{}, xerrors.Errorf("signing request: %v", err)
	}
	reply := &RequestDecryptionReply{}
	err = c.SendProtobuf(c.Node, &RequestDecryption{
		Target:    target,
		Source:    source.Public,
		Signature: sig,
	}, reply)
	if err != nil {
		return RequestID{}, xerrors.Errorf("sending request: %v", err)
	}
	return reply.RequestID, nil
}

// DecryptionCallback delivers a decryption result with its proof. The
// decryption authority uses it to resolve requests; anyone else will fail
// verification.
func (c *Client) DecryptionCallback(id RequestID, payload, proof []byte) (*DecryptionCallbackReply, error) {
	reply := &DecryptionCallbackReply{}
	err := c.SendProtobuf(c.Node, &DecryptionCallback{
		RequestID: id,
		Payload:   payload,
		Proof:     proof,
	}, reply)
	if err != nil {
		return nil, xerrors.Errorf("sending callback: %v", err)
	}
	return reply, nil
}

// GetDataPoint fetches one record, direct or derived.
func (c *Client) GetDataPoint(index uint64) (*DataPoint, error) {
	reply := &GetDataPointReply{}
	err := c.SendProtobuf(c.Node, &GetDataPoint{Index: index}, reply)
	if err != nil {
		return nil, xerrors.Errorf("sending get: %v", err)
	}
	return &reply.DataPoint, nil
}

// ListTopic returns the indexes submitted to topic, in submission order.
func (c *Client) ListTopic(topic string) ([]uint64, error) {
	reply := &ListTopicReply{}
	err := c.SendProtobuf(c.Node, &ListTopic{Topic: topic}, reply)
	if err != nil {
		return nil, xerrors.Errorf("sending list: %v", err)
	}
	return reply.Indices, nil
}

// Info returns the feed configuration and the last assigned index.
func (c *Client) Info() (*InfoReply, error) {
	reply := &InfoReply{}
	err := c.SendProtobuf(c.Node, &Info{}, reply)
	if err != nil {
		return nil, xerrors.Errorf("sending info: %v", err)
	}
	return reply, nil
}

// StreamEvents reads feed events until the connection closes; handler runs
// for every event. The call blocks, so run it in its own goroutine and
// close the client to stop it.
func (c *Client) StreamEvents(handler func(FeedEvent, error)) error {
	conn, err := c.Stream(c.Node, &StreamEvents{})
	if err != nil {
		return xerrors.Errorf("opening stream: %v", err)
	}
	for {
		resp := FeedEvent{}
		if err := conn.ReadMessage(&resp); err != nil {
			handler(FeedEvent{}, err)
			return nil
		}
		handler(resp, nil)
	}
}
