package decryptor

import (
	"go.dedis.ch/delphi"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"
)

// Client is a structure to communicate with the decryption authority.
type Client struct {
	*onet.Client
	// Node runs the authority.
	Node *network.ServerIdentity
}

// NewClient instantiates a new Client for the authority on node.
func NewClient(node *network.ServerIdentity) *Client {
	return &Client{
		Client: onet.NewClient(delphi.Suite, ServiceName),
		Node:   node,
	}
}

// CreateKey returns the authority's public key, creating the keypair on
// the first call.
func (c *Client) CreateKey() (kyber.Point, error) {
	reply := &CreateKeyReply{}
	if err := c.SendProtobuf(c.Node, &CreateKey{}, reply); err != nil {
		return nil, xerrors.Errorf("sending create-key: %v", err)
	}
	return reply.X, nil
}
