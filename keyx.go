package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	// -v is the log level
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
	app := &cli.App{
		Name:        app_name,
		Usage:       "one-shot Diffie-Hellman / ECDH key exchange between two peers",
		Version:     fmt.Sprintf("v%d.%d.%04d%s", ver_major, ver_minor, ver_build, build_flag),
		Description: fmt.Sprintf("%s project: <%s>\n%s", app_name, project_url, buildString()),
		Before:      context.initialize,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "indicate config if in nontypical path",
				Destination: &context.configFile,
			},
			&cli.IntFlag{
				Name:        "v",
				Value:       1,
				Usage:       "verbose log level",
				Destination: &context.vFlag,
			},
			&cli.StringFlag{
				Name:        "logdir",
				Usage:       "write log into the directory instead of stderr",
				Destination: &context.logdir,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Hidden:      true,
				Destination: &context.debug,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run as Responder: accept one Initiator and exchange keys",
				Flags:  exchangeFlags(),
				Action: context.serveCommandHandler,
			},
			{
				Name:   "connect",
				Usage:  "run as Initiator: dial the Responder and exchange keys",
				Flags:  exchangeFlags(),
				Action: context.connectCommandHandler,
			},
			{
				Name:  "init",
				Usage: "create a config template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "output file, stdout if absent",
					},
					&cli.BoolFlag{
						Name:  "initiator",
						Usage: "template for the Initiator instead of the Responder",
					},
				},
				Action: context.initCommandHandler,
			},
			{
				Name:   "info",
				Usage:  "print the resolved config and the curve or group parameters",
				Flags:  exchangeFlags(),
				Action: context.infoCommandHandler,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fatalError(err)
	}
}

func exchangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "Responder address"},
		&cli.IntFlag{Name: "port", Usage: "Responder port, 1024-65535"},
		&cli.BoolFlag{Name: "ec", Usage: "ECDH when true, classic DH when false"},
		&cli.StringFlag{Name: "curve", Usage: "ECDH curve: P-256 or secp256k1"},
		&cli.IntFlag{Name: "group", Usage: "DH group of RFC 3526: 14 or 16"},
		&cli.StringFlag{Name: "timeout", Usage: "read/write deadline like 30s, 0 blocks forever"},
		&cli.StringFlag{Name: "out", Usage: "directory of the key files"},
		&cli.StringFlag{Name: "transport", Usage: "tcp or kcp://:PORT/mode"},
		&cli.BoolFlag{Name: "validate-peer", Usage: "reject invalid peer public keys"},
	}
}
