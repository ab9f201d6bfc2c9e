// Package oracle implements the Delphi feed service. Sources submit
// ElGamal-encrypted observations that are stored with monotonically
// increasing indexes, folded homomorphically into derived records, and only
// ever revealed through the request/callback protocol with the external
// decryption authority: a request marks the record pending and dispatches
// its ciphertext, and the authority's signed callback transitions it to
// revealed. Every submission, request and reveal is pushed to event
// subscribers.
package oracle

import (
	"time"

	"go.dedis.ch/delphi"
	"go.dedis.ch/delphi/lib"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// ServiceName of the delphi feed service.
const ServiceName = "Delphi"

// Used for tests.
var delphiID onet.ServiceID

// authTimeout is how far a setup signature's timestamp may lie from now.
const authTimeout = time.Minute

func init() {
	var err error
	delphiID, err = onet.RegisterNewService(ServiceName, newService)
	log.ErrFatal(err)
}

// Service holds one feed: the ciphertext store, the topic registry, the
// aggregation engine and the decryption coordinator.
type Service struct {
	*onet.ServiceProcessor
	storage      *storage
	data         *dataDB
	topics       *topicDB
	agg          *aggregator
	coord        *coordinator
	streamingMan streamingManager
}

// newDispatcher builds the dispatcher used to reach the decryption
// authority. Tests replace it to intercept dispatches.
var newDispatcher = func(s *Service) Dispatcher {
	return &onetDispatcher{s: s}
}

// onetDispatcher forwards requests to the configured authority conode over
// onet. The authority acknowledges before decrypting, so Dispatch returns
// without waiting for the result.
type onetDispatcher struct {
	s *Service
}

func (d *onetDispatcher) Dispatch(id RequestID, cipher []byte) error {
	d.s.storage.Lock()
	target := d.s.storage.AuthorityNode
	d.s.storage.Unlock()
	if target == nil {
		return xerrors.New("no decryption authority configured")
	}
	cl := onet.NewClient(delphi.Suite, AuthorityServiceName)
	err := cl.SendProtobuf(target, &DecryptRequest{
		RequestID: id,
		Cipher:    cipher,
		Origin:    d.s.ServerIdentity(),
	}, &DecryptRequestReply{})
	if err != nil {
		return xerrors.Errorf("reaching authority %v: %v", target, err)
	}
	return nil
}

// Setup configures the feed: the decryption authority and the authorized
// source keys. Only the conode operator may call it, proven by a schnorr
// signature of the conode's private key over the setup digest.
func (s *Service) Setup(req *Setup) (*SetupReply, error) {
	t := time.Unix(req.Timestamp, 0)
	if d := time.Since(t); d > authTimeout || d < -authTimeout {
		return nil, xerrors.New("setup timestamp out of range")
	}
	if req.Authority == nil || req.AuthorityNode == nil {
		return nil, xerrors.New("setup needs an authority key and node")
	}
	digest, err := setupDigest(req)
	if err != nil {
		return nil, err
	}
	err = schnorr.Verify(delphi.Suite, s.ServerIdentity().Public, digest,
		req.Signature)
	if err != nil {
		return nil, xerrors.Errorf("checking setup signature: %v", err)
	}

	s.storage.Lock()
	s.storage.Authority = req.Authority
	s.storage.AuthorityNode = req.AuthorityNode
	s.storage.Sources = req.Sources
	s.storage.Unlock()
	log.Lvl2(s.ServerIdentity(), "feed configured with",
		len(req.Sources), "sources")
	return &SetupReply{}, s.save()
}

// Submit stores one encrypted observation and appends it to its topic.
// Only configured sources may submit; the ciphertext is stored as-is and
// never inspected.
func (s *Service) Submit(req *Submit) (*SubmitReply, error) {
	if req.Topic == "" {
		return nil, xerrors.New("empty topic")
	}
	digest, err := submitDigest(req.Topic, &req.Cipher)
	if err != nil {
		return nil, err
	}
	if err := s.authorized(req.Source, digest, req.Signature); err != nil {
		return nil, err
	}

	dp := &DataPoint{
		Topic:     req.Topic,
		Cipher:    req.Cipher,
		State:     Hidden,
		Submitted: time.Now().UnixNano(),
	}
	index, err := s.data.Store(dp)
	if err != nil {
		return nil, err
	}
	if err := s.topics.Append(req.Topic, index); err != nil {
		return nil, err
	}
	s.emit(EventSubmitted, index)
	log.Lvl3(s.ServerIdentity(), "stored data point", index, "on", req.Topic)
	return &SubmitReply{Index: index, When: dp.Submitted}, nil
}

// Aggregate folds the ciphertexts of a topic, or of an explicit index
// list, with the named operator and stores the result as a derived data
// point. The inputs stay untouched and nothing is decrypted. The derived
// record keeps the topic as provenance but is not a member of it, so later
// aggregations of the topic do not double-count.
func (s *Service) Aggregate(req *Aggregate) (*AggregateReply, error) {
	op, err := lib.GetOperator(req.Op)
	if err != nil {
		return nil, xerrors.Errorf("%v: %w", err, ErrUnknownOperator)
	}
	indexes := req.Indices
	if req.Topic != "" {
		if len(indexes) > 0 {
			return nil, xerrors.New("give a topic or explicit indexes, not both")
		}
		indexes, err = s.topics.List(req.Topic)
		if err != nil {
			return nil, err
		}
	}
	cipher, err := s.agg.Fold(indexes, op)
	if err != nil {
		return nil, err
	}

	dp := &DataPoint{
		Topic:     req.Topic,
		Cipher:    cipher,
		State:     Hidden,
		Sources:   indexes,
		Op:        req.Op,
		Submitted: time.Now().UnixNano(),
	}
	index, err := s.data.Store(dp)
	if err != nil {
		return nil, err
	}
	log.Lvl3(s.ServerIdentity(), "aggregated", len(indexes),
		"inputs into data point", index)
	return &AggregateReply{Index: index, Cipher: cipher}, nil
}

// RequestDecryption opens the reveal protocol for one data point and
// returns the correlation id. The decryption happens asynchronously at the
// authority; the result arrives later as a DecryptionCallback.
func (s *Service) RequestDecryption(req *RequestDecryption) (*RequestDecryptionReply, error) {
	err := s.authorized(req.Source, revealDigest(req.Target), req.Signature)
	if err != nil {
		return nil, err
	}
	id, err := s.coord.RequestDecryption(req.Target)
	if err != nil {
		return nil, err
	}
	s.emit(EventRequested, req.Target)
	log.Lvl2(s.ServerIdentity(), "opened decryption request", id,
		"for data point", req.Target)
	return &RequestDecryptionReply{RequestID: id}, nil
}

// DecryptionCallback resolves an open request with a proven clear value.
// It normally comes from the authority, but any caller holding a valid
// proof is accepted. A request id is consumed by its first valid callback,
// so replays fail as unknown.
func (s *Service) DecryptionCallback(req *DecryptionCallback) (*DecryptionCallbackReply, error) {
	index, value, err := s.coord.Callback(req.RequestID, req.Payload, req.Proof)
	if err != nil {
		return nil, err
	}
	s.emit(EventDecrypted, index)
	log.Lvl2(s.ServerIdentity(), "revealed data point", index)
	return &DecryptionCallbackReply{Index: index, Value: value}, nil
}

// GetDataPoint returns one stored record, direct or derived.
func (s *Service) GetDataPoint(req *GetDataPoint) (*GetDataPointReply, error) {
	dp, err := s.data.Get(req.Index)
	if err != nil {
		return nil, err
	}
	return &GetDataPointReply{DataPoint: *dp}, nil
}

// ListTopic returns the indexes submitted to a topic, in submission order.
func (s *Service) ListTopic(req *ListTopic) (*ListTopicReply, error) {
	indexes, err := s.topics.List(req.Topic)
	if err != nil {
		return nil, err
	}
	return &ListTopicReply{Indices: indexes}, nil
}

// Info returns the feed configuration, the known topics and the last
// assigned index.
func (s *Service) Info(req *Info) (*InfoReply, error) {
	last, err := s.data.Last()
	if err != nil {
		return nil, err
	}
	topics, err := s.topics.Topics()
	if err != nil {
		return nil, err
	}
	s.storage.Lock()
	defer s.storage.Unlock()
	if s.storage.Authority == nil {
		return nil, xerrors.New("feed is not configured")
	}
	return &InfoReply{
		Authority:     s.storage.Authority,
		AuthorityNode: s.storage.AuthorityNode,
		Sources:       s.storage.Sources,
		Topics:        topics,
		Last:          last,
	}, nil
}

// authorized checks that pub is a configured source key and that sig is
// its schnorr signature over digest.
func (s *Service) authorized(pub kyber.Point, digest, sig []byte) error {
	if pub == nil {
		return xerrors.Errorf("no source key: %w", ErrNotAuthorized)
	}
	s.storage.Lock()
	defer s.storage.Unlock()
	for _, src := range s.storage.Sources {
		if src.Equal(pub) {
			err := schnorr.Verify(delphi.Suite, pub, digest, sig)
			if err != nil {
				return xerrors.Errorf("%v: %w", err, ErrNotAuthorized)
			}
			return nil
		}
	}
	return xerrors.Errorf("key %v: %w", pub, ErrNotAuthorized)
}

// verifyProof checks a callback proof against the configured authority
// key.
func (s *Service) verifyProof(id RequestID, payload, proof []byte) error {
	s.storage.Lock()
	authority := s.storage.Authority
	s.storage.Unlock()
	if authority == nil {
		return xerrors.New("no decryption authority configured")
	}
	return schnorr.Verify(delphi.Suite, authority, ProofDigest(id, payload),
		proof)
}

func (s *Service) emit(t EventType, index uint64) {
	s.streamingMan.notify(&FeedEvent{
		Type:  t,
		Index: index,
		When:  time.Now().UnixNano(),
	})
}

func newService(c *onet.Context) (onet.Service, error) {
	s := &Service{
		ServiceProcessor: onet.NewServiceProcessor(c),
	}
	s.data = newDataDB(c)
	s.topics = newTopicDB(c)
	s.agg = &aggregator{data: s.data}
	s.coord = newCoordinator(c, s.data)
	err := s.RegisterHandlers(s.Setup, s.Submit, s.Aggregate,
		s.RequestDecryption, s.DecryptionCallback, s.GetDataPoint,
		s.ListTopic, s.Info)
	if err != nil {
		return nil, xerrors.New("couldn't register messages")
	}
	if err := s.RegisterStreamingHandlers(s.StreamEvents); err != nil {
		return nil, xerrors.New("couldn't register streaming messages")
	}
	if err := s.tryLoad(); err != nil {
		log.Error(err)
		return nil, xerrors.Errorf("loading configuration: %v", err)
	}
	s.coord.dispatch = newDispatcher(s)
	s.coord.verify = s.verifyProof
	return s, nil
}
