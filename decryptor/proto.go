package decryptor

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/network"
)

func init() {
	network.RegisterMessages(&CreateKey{}, &CreateKeyReply{})
}

// PROTOSTART
// package delphi.authority;
//
// option java_package = "ch.epfl.dedis.lib.proto";
// option java_outer_classname = "DelphiAuthorityProto";

// CreateKey makes the authority generate its ElGamal keypair. The first
// call creates and persists the pair; later calls return the same key.
type CreateKey struct {
}

// CreateKeyReply carries the authority's public key, the encryption key
// for every feed this authority serves.
type CreateKeyReply struct {
	X kyber.Point
}
