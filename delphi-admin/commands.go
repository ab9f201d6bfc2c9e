package main

import (
	"github.com/urfave/cli"
	"go.dedis.ch/delphi/lib"
)

var cmds = cli.Commands{
	{
		Name:      "setup",
		Usage:     "create the authority key and configure the feed",
		Aliases:   []string{"s"},
		ArgsUsage: "public.toml private.toml",
		Action:    setup,
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "authority, a",
				Usage: "index in public.toml of the conode running the decryption authority",
			},
			cli.StringSliceFlag{
				Name:  "source, src",
				Usage: "hexadecimal public key allowed to submit (can be repeated)",
			},
		},
	},
	{
		Name:   "keygen",
		Usage:  "generate a source keypair",
		Action: keygen,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "out, o",
				Usage: "write the keypair to this file instead of printing it",
			},
		},
	},
	{
		Name:      "submit",
		Usage:     "encrypt a value under the authority key and store it on a topic",
		ArgsUsage: "public.toml",
		Action:    submit,
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "feed, f",
				Usage: "index of the feed conode in public.toml",
			},
			cli.StringFlag{
				Name:  "topic, t",
				Usage: "topic to submit on",
			},
			cli.Int64Flag{
				Name:  "value, v",
				Usage: "integer value to encrypt",
			},
			cli.StringFlag{
				Name:  "key, k",
				Usage: "source key file written by keygen",
			},
			cli.StringFlag{
				Name:  "private, p",
				Usage: "hexadecimal private source key",
			},
		},
	},
	{
		Name:      "aggregate",
		Usage:     "fold the ciphertexts of a topic or an index list into a derived data point",
		ArgsUsage: "public.toml",
		Action:    aggregate,
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "feed, f",
				Usage: "index of the feed conode in public.toml",
			},
			cli.StringFlag{
				Name:  "topic, t",
				Usage: "aggregate every ciphertext of this topic",
			},
			cli.StringFlag{
				Name:  "indexes, i",
				Usage: "comma-separated list of indexes to aggregate",
			},
			cli.StringFlag{
				Name:  "op",
				Value: lib.OpSum,
				Usage: "operator to fold with",
			},
		},
	},
	{
		Name:      "reveal",
		Usage:     "request the decryption of one data point",
		ArgsUsage: "public.toml",
		Action:    reveal,
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "feed, f",
				Usage: "index of the feed conode in public.toml",
			},
			cli.Uint64Flag{
				Name:  "index, i",
				Usage: "index of the data point to reveal",
			},
			cli.StringFlag{
				Name:  "key, k",
				Usage: "source key file written by keygen",
			},
			cli.StringFlag{
				Name:  "private, p",
				Usage: "hexadecimal private source key",
			},
			cli.BoolFlag{
				Name:  "wait, w",
				Usage: "wait for the authority's callback",
			},
		},
	},
	{
		Name:      "get",
		Usage:     "show one data point",
		ArgsUsage: "public.toml",
		Action:    get,
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "feed, f",
				Usage: "index of the feed conode in public.toml",
			},
			cli.Uint64Flag{
				Name:  "index, i",
				Usage: "index of the data point",
			},
		},
	},
	{
		Name:      "topics",
		Usage:     "list topics, or the indexes of one topic",
		ArgsUsage: "public.toml",
		Action:    topics,
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "feed, f",
				Usage: "index of the feed conode in public.toml",
			},
			cli.StringFlag{
				Name:  "topic, t",
				Usage: "show the indexes of this topic",
			},
		},
	},
	{
		Name:      "status",
		Usage:     "show the feed configuration",
		ArgsUsage: "public.toml",
		Action:    status,
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "feed, f",
				Usage: "index of the feed conode in public.toml",
			},
		},
	},
	{
		Name:      "watch",
		Usage:     "print feed events as they happen",
		ArgsUsage: "public.toml",
		Action:    watch,
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "feed, f",
				Usage: "index of the feed conode in public.toml",
			},
		},
	},
}
