package oracle

import (
	"go.dedis.ch/delphi/lib"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/network"
)

// AuthorityServiceName is the onet service name a decryption authority
// registers under. The default dispatcher sends DecryptRequests there.
const AuthorityServiceName = "DelphiAuthority"

func init() {
	network.RegisterMessages(
		&Setup{}, &SetupReply{},
		&Submit{}, &SubmitReply{},
		&Aggregate{}, &AggregateReply{},
		&RequestDecryption{}, &RequestDecryptionReply{},
		&DecryptionCallback{}, &DecryptionCallbackReply{},
		&GetDataPoint{}, &GetDataPointReply{},
		&ListTopic{}, &ListTopicReply{},
		&Info{}, &InfoReply{},
		&StreamEvents{}, &FeedEvent{},
		&DecryptRequest{}, &DecryptRequestReply{},
	)
}

// PROTOSTART
// type :RevealState:uint32
// type :EventType:uint32
// type :RequestID:bytes
//
// package delphi;
//
// option java_package = "ch.epfl.dedis.lib.proto";
// option java_outer_classname = "DelphiProto";

// ***
// API calls to the feed service
// ***

// Setup configures the feed held by this conode: the decryption authority
// and the source keys allowed to submit. It replaces any previous
// configuration and must be signed by the conode's private key over the
// setup digest, with Timestamp no more than a minute off.
type Setup struct {
	Authority     kyber.Point
	AuthorityNode *network.ServerIdentity
	Sources       []kyber.Point
	Timestamp     int64
	Signature     []byte
}

// SetupReply is returned once the feed is configured.
type SetupReply struct {
}

// Submit stores one encrypted observation on a topic. Source must be a
// configured source key and Signature its schnorr signature over the
// submit digest.
type Submit struct {
	Topic     string
	Cipher    lib.CipherText
	Source    kyber.Point
	Signature []byte
}

// SubmitReply returns the index assigned to the stored ciphertext and the
// time it was recorded.
type SubmitReply struct {
	Index uint64
	When  int64
}

// Aggregate folds ciphertexts with the named operator and stores the
// result as a new derived data point. Give either a topic or an explicit
// index list; the inputs are left untouched.
type Aggregate struct {
	Topic   string
	Indices []uint64
	Op      string
}

// AggregateReply returns the index of the derived record and its
// ciphertext.
type AggregateReply struct {
	Index  uint64
	Cipher lib.CipherText
}

// RequestDecryption opens the reveal protocol for one data point. Source
// and Signature authorize the request like a submission.
type RequestDecryption struct {
	Target    uint64
	Source    kyber.Point
	Signature []byte
}

// RequestDecryptionReply returns the id correlating the eventual
// callback with this request.
type RequestDecryptionReply struct {
	RequestID RequestID
}

// DecryptionCallback delivers a decryption result. It normally comes from
// the authority, but any caller holding a valid proof is accepted; a
// request id is consumed by its first valid callback.
type DecryptionCallback struct {
	RequestID RequestID
	Payload   []byte
	Proof     []byte
}

// DecryptionCallbackReply names the revealed data point and its clear
// value.
type DecryptionCallbackReply struct {
	Index uint64
	Value int64
}

// GetDataPoint fetches one record, direct or derived.
type GetDataPoint struct {
	Index uint64
}

// GetDataPointReply is the requested record.
type GetDataPointReply struct {
	DataPoint DataPoint
}

// ListTopic asks for the indexes submitted to a topic, in submission
// order.
type ListTopic struct {
	Topic string
}

// ListTopicReply is the ordered index list of the topic.
type ListTopicReply struct {
	Indices []uint64
}

// Info asks for the feed configuration.
type Info struct {
}

// InfoReply describes the configured feed: the authority key ciphertexts
// are encrypted under, the conode running the authority, the allowed
// source keys, the known topics and the last assigned index.
type InfoReply struct {
	Authority     kyber.Point
	AuthorityNode *network.ServerIdentity
	Sources       []kyber.Point
	Topics        []string
	Last          uint64
}

// ***
// Event streaming
// ***

// EventType tags a FeedEvent.
type EventType uint32

const (
	// EventSubmitted - a new ciphertext was stored.
	EventSubmitted EventType = iota + 1
	// EventRequested - a decryption request was opened.
	EventRequested
	// EventDecrypted - a data point was revealed.
	EventDecrypted
)

// StreamEvents opens an event subscription on one conode.
type StreamEvents struct {
}

// FeedEvent is pushed to every subscriber after a successful submission,
// decryption request or reveal.
type FeedEvent struct {
	Type  EventType
	Index uint64
	When  int64
}

// ***
// Messages between the feed service and the decryption authority
// ***

// DecryptRequest asks the authority to decrypt Cipher and deliver the
// result to the feed service at Origin, tagged with RequestID.
type DecryptRequest struct {
	RequestID RequestID
	Cipher    []byte
	Origin    *network.ServerIdentity
}

// DecryptRequestReply only acknowledges the dispatch; the result arrives
// asynchronously as a DecryptionCallback.
type DecryptRequestReply struct {
}
