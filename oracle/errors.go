package oracle

import (
	"golang.org/x/xerrors"
)

// Errors returned by the feed service. Handlers wrap them with xerrors so
// that errors.Is keeps working in-process; over the network only the
// message text survives, which the client tests match on.
var (
	// ErrNotFound - the data point index or topic does not exist.
	ErrNotFound = xerrors.New("no such data point")
	// ErrInvalidTransition - the requested reveal-state change is not allowed.
	ErrInvalidTransition = xerrors.New("invalid reveal-state transition")
	// ErrAlreadyRevealed - the data point has already been revealed.
	ErrAlreadyRevealed = xerrors.New("data point already revealed")
	// ErrRequestPending - a decryption request for this data point is open.
	ErrRequestPending = xerrors.New("decryption request already pending")
	// ErrUnknownRequest - no open decryption request matches the request id.
	ErrUnknownRequest = xerrors.New("unknown decryption request")
	// ErrVerification - the decryption proof does not verify.
	ErrVerification = xerrors.New("decryption proof rejected")
	// ErrDecode - the clear payload of a callback is malformed.
	ErrDecode = xerrors.New("malformed clear payload")
	// ErrUnknownOperator - the named aggregation operator is not registered.
	ErrUnknownOperator = xerrors.New("unknown operator")
	// ErrMissingInput - an aggregation input index does not exist.
	ErrMissingInput = xerrors.New("missing aggregation input")
	// ErrEmptyInput - an aggregation was asked over no inputs.
	ErrEmptyInput = xerrors.New("empty aggregation input")
	// ErrCapacity - the ciphertext store cannot accept further writes.
	ErrCapacity = xerrors.New("ciphertext storage exhausted")
	// ErrNotAuthorized - the caller's key is not in the feed's source set.
	ErrNotAuthorized = xerrors.New("source not authorized")
)
