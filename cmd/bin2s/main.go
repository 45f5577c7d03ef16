package main

import (
	"io/ioutil"
	"log"
	"os"

	"github.com/bodgit/homebrew"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func main() {
	app := cli.NewApp()

	app.Name = "bin2s"
	app.Usage = "convert binary files to assembly language"
	app.Version = "1.0.0"
	app.ArgsUsage = "FILE..."
	app.HideHelpCommand = true

	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "alignment",
			Aliases: []string{"a"},
			EnvVars: []string{"BIN2S_ALIGNMENT"},
			Value:   4,
			Usage:   "set parameter for .balign",
		},
		&cli.BoolFlag{
			Name:  "apple-llvm",
			Usage: "output for apple assembler",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write assembler source to `FILE` instead of standard output",
		},
		&cli.StringFlag{
			Name:    "header",
			Aliases: []string{"H"},
			Usage:   "write a C header declaring the symbols to `FILE`",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Action = func(c *cli.Context) error {
		if c.NArg() < 1 {
			cli.ShowAppHelpAndExit(c, 1)
		}

		logger := log.New(ioutil.Discard, "", 0)
		if c.Bool("verbose") {
			logger.SetOutput(os.Stderr)
		}
		warn := log.New(os.Stderr, "bin2s: warning: ", 0)

		opts := homebrew.AssembleOptions{
			Files:     c.Args().Slice(),
			Output:    c.String("output"),
			Header:    c.String("header"),
			Alignment: c.Int("alignment"),
			AppleLLVM: c.Bool("apple-llvm"),
		}

		if err := homebrew.New(nil, logger, warn).Assemble(os.Stdout, opts); err != nil {
			return cli.Exit(err, 1)
		}

		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
