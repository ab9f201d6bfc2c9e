// Package delphi implements a confidential data feed. Sources publish
// ElGamal-encrypted observations, the service combines them homomorphically
// without ever seeing a clear value, and a record is only revealed through
// an explicit request/callback protocol with an external decryption
// authority, leaving an auditable trace of every reveal.
package delphi

import (
	"go.dedis.ch/kyber/v3/suites"
)

// Suite is the group used for all delphi keys, ciphertexts and signatures.
var Suite = suites.MustFind("Ed25519")
