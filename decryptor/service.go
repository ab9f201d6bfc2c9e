// Package decryptor runs the reference decryption authority for delphi
// feeds. It holds the feed keypair and answers decryption requests from
// the feed service: every request is acknowledged at once and resolved in
// the background with a signed callback, so the feed never blocks on a
// decryption and can verify exactly which request a clear value belongs
// to.
package decryptor

import (
	"sync"

	"go.dedis.ch/delphi"
	"go.dedis.ch/delphi/lib"
	"go.dedis.ch/delphi/oracle"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"
)

// ServiceName of the decryption authority. The feed service dispatches its
// requests to this name.
const ServiceName = oracle.AuthorityServiceName

// Used for tests.
var authorityID onet.ServiceID

const dbVersion = 1

var storageKey = []byte("authority")

func init() {
	var err error
	authorityID, err = onet.RegisterNewService(ServiceName, newService)
	log.ErrFatal(err)
	network.RegisterMessages(&storage{})
}

// storage is the persisted authority keypair.
type storage struct {
	sync.Mutex
	Public  kyber.Point
	Private kyber.Scalar
}

// Service is the decryption authority.
type Service struct {
	*onet.ServiceProcessor
	storage *storage
}

// CreateKey generates the authority keypair on first use and returns the
// public key. The pair is persisted, so the key stays stable across
// restarts and repeated calls.
func (s *Service) CreateKey(req *CreateKey) (*CreateKeyReply, error) {
	s.storage.Lock()
	if s.storage.Public == nil {
		kp := key.NewKeyPair(delphi.Suite)
		s.storage.Public = kp.Public
		s.storage.Private = kp.Private
		log.Lvl2(s.ServerIdentity(), "created authority key", kp.Public)
	}
	X := s.storage.Public
	s.storage.Unlock()
	if err := s.save(); err != nil {
		return nil, err
	}
	return &CreateKeyReply{X: X}, nil
}

// Decrypt accepts a request from a feed service and resolves it in the
// background: decrypt, sign, call back. The acknowledgement only confirms
// the dispatch; failures on the slow path show up in the log and leave the
// request pending at the feed.
func (s *Service) Decrypt(req *oracle.DecryptRequest) (*oracle.DecryptRequestReply, error) {
	s.storage.Lock()
	priv := s.storage.Private
	s.storage.Unlock()
	if priv == nil {
		return nil, xerrors.New("no authority key, run CreateKey first")
	}
	if req.Origin == nil {
		return nil, xerrors.New("request carries no origin to call back")
	}
	var cipher lib.CipherText
	if err := cipher.FromBytes(req.Cipher); err != nil {
		return nil, err
	}
	log.Lvl3(s.ServerIdentity(), "accepted decryption request", req.RequestID)
	go s.resolve(req.RequestID, cipher, req.Origin, priv)
	return &oracle.DecryptRequestReply{}, nil
}

func (s *Service) resolve(id oracle.RequestID, cipher lib.CipherText,
	origin *network.ServerIdentity, priv kyber.Scalar) {
	value, err := lib.DecryptInt(priv, cipher)
	if err != nil {
		log.Errorf("request %v: %v", id, err)
		return
	}
	payload := oracle.EncodePayload(value)
	proof, err := schnorr.Sign(delphi.Suite, priv, oracle.ProofDigest(id, payload))
	if err != nil {
		log.Errorf("signing callback %v: %v", id, err)
		return
	}
	_, err = oracle.NewClient(origin).DecryptionCallback(id, payload, proof)
	if err != nil {
		log.Errorf("delivering callback %v: %v", id, err)
	}
}

// save stores the authority keypair.
func (s *Service) save() error {
	s.storage.Lock()
	defer s.storage.Unlock()
	err := s.Save(storageKey, s.storage)
	if err != nil {
		log.Error("couldn't save authority key:", err)
		return xerrors.Errorf("saving authority key: %v", err)
	}
	return nil
}

// tryLoad restores the keypair if one was created before.
func (s *Service) tryLoad() error {
	s.storage = &storage{}
	ver, err := s.LoadVersion()
	if err != nil {
		return xerrors.Errorf("loading version: %v", err)
	}
	if ver < dbVersion {
		if err := s.SaveVersion(dbVersion); err != nil {
			return xerrors.Errorf("saving version: %v", err)
		}
	}
	msg, err := s.Load(storageKey)
	if err != nil {
		return xerrors.Errorf("loading authority key: %v", err)
	}
	if msg == nil {
		return nil
	}
	var ok bool
	s.storage, ok = msg.(*storage)
	if !ok {
		return xerrors.New("authority key of wrong type")
	}
	return nil
}

func newService(c *onet.Context) (onet.Service, error) {
	s := &Service{
		ServiceProcessor: onet.NewServiceProcessor(c),
	}
	if err := s.RegisterHandlers(s.CreateKey, s.Decrypt); err != nil {
		return nil, xerrors.New("couldn't register messages")
	}
	if err := s.tryLoad(); err != nil {
		log.Error(err)
		return nil, xerrors.Errorf("loading configuration: %v", err)
	}
	return s, nil
}
