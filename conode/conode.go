// Conode is the main binary for running a delphi server. Every conode
// carries both the feed service and the decryption authority; which role a
// node actually plays is fixed by the feed configuration, so the same
// binary serves either side.
// You first need to set up a config file for the server using:
//
// 	./conode setup
//
// Then you can launch the daemon with:
//
//  	./conode server
//
package main

import (
	"os"
	"path"

	"github.com/urfave/cli"
	"go.dedis.ch/delphi"
	"go.dedis.ch/onet/v3/app"
	"go.dedis.ch/onet/v3/cfgpath"
	"go.dedis.ch/onet/v3/log"

	// Empty imports to have the init-functions called which register the
	// services.
	_ "go.dedis.ch/delphi/decryptor"
	_ "go.dedis.ch/delphi/oracle"
)

const (
	// DefaultName is the name of the binary we produce and is used to create a directory
	// folder with this name
	DefaultName = "delphi"

	// Version of this binary
	Version = "1.0"
)

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = DefaultName
	cliApp.Usage = "run a delphi server"
	cliApp.Version = Version
	serverFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: path.Join(cfgpath.GetConfigPath(DefaultName), app.DefaultServerConfig),
			Usage: "configuration file of the server",
		},
	}

	cliApp.Commands = []cli.Command{
		{
			Name:    "setup",
			Aliases: []string{"s"},
			Usage:   "Setup server configuration (interactive)",
			Action: func(c *cli.Context) error {
				if c.String("config") != "" {
					log.Fatal("[-] Configuration file option cannot be used for the 'setup' command")
				}
				if c.String("debug") != "" {
					log.Fatal("[-] Debug option cannot be used for the 'setup' command")
				}
				app.InteractiveConfig(delphi.Suite, DefaultName)
				return nil
			},
		},
		{
			Name:  "server",
			Usage: "Start delphi server",
			Action: func(c *cli.Context) error {
				runServer(c)
				return nil
			},
			Flags: serverFlags,
		},
	}
	cliApp.Flags = append([]cli.Flag{
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug-level: 1 for terse, 5 for maximal",
		},
	}, serverFlags...)
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.Int("debug"))
		return nil
	}
	// default action
	cliApp.Action = func(c *cli.Context) error {
		runServer(c)
		return nil
	}

	err := cliApp.Run(os.Args)
	log.ErrFatal(err)
}

func runServer(ctx *cli.Context) {
	// first check the options
	config := ctx.String("config")

	app.RunServer(config)
}
