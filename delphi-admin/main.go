// This is a command line interface for managing delphi feeds: configure a
// feed, generate source keys, submit encrypted observations, aggregate
// them and drive the reveal protocol.
package main

import (
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli"
	"go.dedis.ch/delphi"
	"go.dedis.ch/delphi/decryptor"
	"go.dedis.ch/delphi/oracle"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/encoding"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/app"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

var cliApp = cli.NewApp()

var gitTag = "dev"

func init() {
	cliApp.Name = "delphi-admin"
	cliApp.Usage = "Manage a delphi feed"
	cliApp.Version = gitTag
	cliApp.Commands = cmds // stored in "commands.go"
	cliApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug-level: 1 for terse, 5 for maximal",
		},
	}
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.Int("debug"))
		return nil
	}
}

func main() {
	err := cliApp.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// setup creates the authority key on the authority conode and configures
// the feed on the conode whose private.toml is given. The setup request is
// signed with that conode's private key.
func setup(c *cli.Context) error {
	if c.NArg() < 2 {
		return xerrors.New("please give: public.toml private.toml")
	}
	roster, err := readRoster(c.Args().First())
	if err != nil {
		return err
	}
	cfg, err := app.LoadCothority(c.Args().Get(1))
	if err != nil {
		return xerrors.Errorf("loading private.toml: %v", err)
	}
	si, err := cfg.GetServerIdentity()
	if err != nil {
		return xerrors.Errorf("getting server identity: %v", err)
	}

	authIndex := c.Int("authority")
	if authIndex < 0 || authIndex >= len(roster.List) {
		return xerrors.New("authority index out of range")
	}
	authNode := roster.List[authIndex]

	var sources []kyber.Point
	for _, s := range c.StringSlice("source") {
		pub, err := encoding.StringHexToPoint(delphi.Suite, s)
		if err != nil {
			return xerrors.Errorf("parsing source key: %v", err)
		}
		sources = append(sources, pub)
	}
	if len(sources) == 0 {
		return xerrors.New("at least one --source key is required")
	}

	X, err := decryptor.NewClient(authNode).CreateKey()
	if err != nil {
		return xerrors.Errorf("creating authority key: %v", err)
	}
	err = oracle.NewClient(si).Setup(si.GetPrivate(), X, authNode, sources)
	if err != nil {
		return err
	}

	xStr, err := encoding.PointToStringHex(nil, X)
	if err != nil {
		return err
	}
	log.Info("Feed configured on", si.Address)
	log.Info("Authority:", authNode.Address)
	log.Info("Authority key:", xStr)
	return nil
}

// keygen creates a source keypair and prints it, or writes it to the
// --out file for later use with --key.
func keygen(c *cli.Context) error {
	kp := key.NewKeyPair(delphi.Suite)
	secStr, err := encoding.ScalarToStringHex(nil, kp.Private)
	if err != nil {
		return err
	}
	pubStr, err := encoding.PointToStringHex(nil, kp.Public)
	if err != nil {
		return err
	}
	if out := c.String("out"); out != "" {
		f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return xerrors.Errorf("creating key file: %v", err)
		}
		defer f.Close()
		err = toml.NewEncoder(f).Encode(sourceKey{
			Private: secStr,
			Public:  pubStr,
		})
		if err != nil {
			return xerrors.Errorf("writing key file: %v", err)
		}
		log.Info("Wrote source key to", out)
		log.Info("Public:", pubStr)
		return nil
	}
	log.Infof("Private: %s\nPublic: %s", secStr, pubStr)
	return nil
}

func submit(c *cli.Context) error {
	cl, err := feedClient(c)
	if err != nil {
		return err
	}
	kp, err := sourcePair(c)
	if err != nil {
		return err
	}
	topic := c.String("topic")
	if topic == "" {
		return xerrors.New("--topic is required")
	}
	if !c.IsSet("value") {
		return xerrors.New("--value is required")
	}

	// The value is encrypted under the authority key of the feed.
	info, err := cl.Info()
	if err != nil {
		return xerrors.Errorf("fetching feed info: %v", err)
	}
	reply, err := cl.Submit(kp, info.Authority, topic, c.Int64("value"))
	if err != nil {
		return err
	}
	log.Info("Stored data point", reply.Index, "on topic", topic)
	return nil
}

func aggregate(c *cli.Context) error {
	cl, err := feedClient(c)
	if err != nil {
		return err
	}
	op := c.String("op")
	var reply *oracle.AggregateReply
	if arg := c.String("indexes"); arg != "" {
		indexes, err := parseIndexes(arg)
		if err != nil {
			return err
		}
		reply, err = cl.AggregateIndexes(indexes, op)
		if err != nil {
			return err
		}
	} else if topic := c.String("topic"); topic != "" {
		reply, err = cl.AggregateTopic(topic, op)
		if err != nil {
			return err
		}
	} else {
		return xerrors.New("give --topic or --indexes")
	}
	log.Info("Derived data point", reply.Index)
	return nil
}

func reveal(c *cli.Context) error {
	cl, err := feedClient(c)
	if err != nil {
		return err
	}
	kp, err := sourcePair(c)
	if err != nil {
		return err
	}
	if !c.IsSet("index") {
		return xerrors.New("--index is required")
	}
	index := c.Uint64("index")
	id, err := cl.RequestDecryption(kp, index)
	if err != nil {
		return err
	}
	log.Info("Opened decryption request", id)
	if !c.Bool("wait") {
		return nil
	}
	for i := 0; i < 30; i++ {
		dp, err := cl.GetDataPoint(index)
		if err != nil {
			return err
		}
		if dp.State == oracle.Revealed {
			log.Info("Data point", index, "revealed:", dp.Value)
			return nil
		}
		time.Sleep(time.Second)
	}
	return xerrors.New("timed out waiting for the reveal")
}

func get(c *cli.Context) error {
	cl, err := feedClient(c)
	if err != nil {
		return err
	}
	if !c.IsSet("index") {
		return xerrors.New("--index is required")
	}
	dp, err := cl.GetDataPoint(c.Uint64("index"))
	if err != nil {
		return err
	}
	log.Infof("Data point %d on topic %q", dp.Index, dp.Topic)
	log.Info(" State:", dp.State)
	if len(dp.Sources) > 0 {
		log.Infof(" Derived with %s from %v", dp.Op, dp.Sources)
	}
	if dp.State == oracle.Revealed {
		log.Info(" Value:", dp.Value)
	}
	return nil
}

// topics lists the known topics, or with --topic the indexes of one topic
// in submission order.
func topics(c *cli.Context) error {
	cl, err := feedClient(c)
	if err != nil {
		return err
	}
	name := c.String("topic")
	if name == "" {
		info, err := cl.Info()
		if err != nil {
			return err
		}
		for _, t := range info.Topics {
			log.Info(t)
		}
		return nil
	}
	indexes, err := cl.ListTopic(name)
	if err != nil {
		return err
	}
	log.Infof("Topic %q: %v", name, indexes)
	return nil
}

func status(c *cli.Context) error {
	cl, err := feedClient(c)
	if err != nil {
		return err
	}
	info, err := cl.Info()
	if err != nil {
		return err
	}
	xStr, err := encoding.PointToStringHex(nil, info.Authority)
	if err != nil {
		return err
	}
	log.Info("Authority key:", xStr)
	log.Info("Authority node:", info.AuthorityNode.Address)
	log.Info("Sources:", len(info.Sources))
	log.Info("Topics:", info.Topics)
	log.Info("Last index:", info.Last)
	return nil
}

func watch(c *cli.Context) error {
	cl, err := feedClient(c)
	if err != nil {
		return err
	}
	log.Info("Watching feed events, interrupt to stop")
	return cl.StreamEvents(func(ev oracle.FeedEvent, err error) {
		if err != nil {
			log.Error("stream closed:", err)
			return
		}
		when := time.Unix(0, ev.When).Format(time.RFC3339)
		switch ev.Type {
		case oracle.EventSubmitted:
			log.Infof("%s submitted data point %d", when, ev.Index)
		case oracle.EventRequested:
			log.Infof("%s decryption requested for %d", when, ev.Index)
		case oracle.EventDecrypted:
			log.Infof("%s revealed data point %d", when, ev.Index)
		}
	})
}

// sourceKey is the on-disk form of a source keypair as written by keygen.
type sourceKey struct {
	Private string
	Public  string
}

// readRoster parses a group definition and returns its roster.
func readRoster(path string) (*onet.Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("opening group file: %v", err)
	}
	defer f.Close()
	group, err := app.ReadGroupDescToml(f)
	if err != nil {
		return nil, xerrors.Errorf("reading group file: %v", err)
	}
	if len(group.Roster.List) == 0 {
		return nil, xerrors.New("empty roster")
	}
	return group.Roster, nil
}

// feedClient builds the client for the feed conode selected by --feed in
// the group file given as first argument.
func feedClient(c *cli.Context) (*oracle.Client, error) {
	if c.NArg() < 1 {
		return nil, xerrors.New("please give: public.toml")
	}
	roster, err := readRoster(c.Args().First())
	if err != nil {
		return nil, err
	}
	feed := c.Int("feed")
	if feed < 0 || feed >= len(roster.List) {
		return nil, xerrors.New("feed index out of range")
	}
	return oracle.NewClient(roster.List[feed]), nil
}

// sourcePair loads the source keypair from --key (a keygen file) or
// --private (a hex scalar).
func sourcePair(c *cli.Context) (*key.Pair, error) {
	if file := c.String("key"); file != "" {
		buf, err := ioutil.ReadFile(file)
		if err != nil {
			return nil, xerrors.Errorf("reading key file: %v", err)
		}
		sk := &sourceKey{}
		if _, err := toml.Decode(string(buf), sk); err != nil {
			return nil, xerrors.Errorf("parsing key file: %v", err)
		}
		return pairFromHex(sk.Private)
	}
	if priv := c.String("private"); priv != "" {
		return pairFromHex(priv)
	}
	return nil, xerrors.New("give --key or --private for the source key")
}

func pairFromHex(priv string) (*key.Pair, error) {
	kp := &key.Pair{}
	var err error
	kp.Private, err = encoding.StringHexToScalar(delphi.Suite, priv)
	if err != nil {
		return nil, xerrors.Errorf("parsing private key: %v", err)
	}
	kp.Public = delphi.Suite.Point().Mul(kp.Private, nil)
	return kp, nil
}

// parseIndexes converts a comma-separated list like 1,2,3 to indexes.
func parseIndexes(arg string) ([]uint64, error) {
	var indexes []uint64
	for _, s := range strings.Split(arg, ",") {
		index, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, xerrors.Errorf("parsing index %q: %v", s, err)
		}
		indexes = append(indexes, index)
	}
	return indexes, nil
}
