package main

import (
	"errors"
	"io/ioutil"
	"log"
	"os"

	"github.com/bodgit/homebrew"
	"github.com/bodgit/homebrew/cache"
	"github.com/bodgit/homebrew/pixel"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func formats(c *cli.Context) []pixel.Format {
	var f []pixel.Format
	for name, format := range map[string]pixel.Format{
		"rgb555":     pixel.RGB555,
		"gameboy":    pixel.BGR555,
		"ds":         pixel.BGR555,
		"bgr233":     pixel.BGR233,
		"lut":        pixel.LUT,
		"rgb888":     pixel.RGB888,
		"palette":    pixel.Quantized,
		"median-cut": pixel.Quantized,
	} {
		if c.IsSet(name) {
			f = append(f, format)
		}
	}
	return f
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "bmp2bin"
	app.Usage = "Bitmap to raw pixel data converter"
	app.Version = "1.0.0"
	app.ArgsUsage = "INPUT.BMP OUTPUT.RAW [PALETTE.TXT]"
	app.HideHelpCommand = true
	app.UseShortOptionHandling = true

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "lut",
			Aliases: []string{"i"},
			Usage:   "8 bits output, LUT index, writes PALETTE.TXT for 8-bit input",
		},
		&cli.BoolFlag{
			Name:    "bgr233",
			Aliases: []string{"e"},
			Usage:   "8 bits output, b2g3r3",
		},
		&cli.StringFlag{
			Name:    "palette",
			Aliases: []string{"1"},
			Usage:   "8 bits output, nearest color in palette `FILE` (768 or 1024 bytes)",
		},
		&cli.BoolFlag{
			Name:    "median-cut",
			Aliases: []string{"m"},
			Usage:   "8 bits output, nearest color in a palette built from the image",
		},
		&cli.StringFlag{
			Name:  "save-palette",
			Usage: "write the palette used for quantized output to `FILE`",
		},
		&cli.BoolFlag{
			Name:    "gameboy",
			Aliases: []string{"g"},
			Usage:   "16 bits output, x1b5g5r5, GameBoy",
		},
		&cli.BoolFlag{
			Name:    "ds",
			Aliases: []string{"d"},
			Usage:   "16 bits output, x1b5g5r5, DS, x bit set",
		},
		&cli.BoolFlag{
			Name:    "rgb555",
			Aliases: []string{"p"},
			Usage:   "16 bits output, r5g5b5x1, GP32 (default)",
		},
		&cli.BoolFlag{
			Name:    "rgb888",
			Aliases: []string{"t"},
			Usage:   "24 bits output, r8g8b8",
		},
		&cli.BoolFlag{
			Name:    "rotate",
			Aliases: []string{"r"},
			Usage:   "rotate 90 degrees clockwise",
		},
		&cli.BoolFlag{
			Name:    "sprite",
			Aliases: []string{"x"},
			Usage:   "write sprite header",
		},
		&cli.StringFlag{
			Name:    "cache",
			EnvVars: []string{"BMP2BIN_CACHE"},
			Usage:   "path to conversion cache database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Action = func(c *cli.Context) error {
		if c.NArg() < 2 {
			cli.ShowAppHelpAndExit(c, 1)
		}
		if c.NArg() > 3 {
			return cli.Exit(errors.New("too many filenames given"), 1)
		}

		logger := log.New(ioutil.Discard, "", 0)
		if c.Bool("verbose") {
			logger.SetOutput(os.Stderr)
		}
		warn := log.New(os.Stderr, "warning: ", 0)

		var db *cache.DB
		if c.String("cache") != "" {
			var err error
			if db, err = cache.Open(c.String("cache")); err != nil {
				return cli.Exit(err, 1)
			}
			defer db.Close()
		}

		opts := homebrew.Options{
			Input:         c.Args().Get(0),
			Output:        c.Args().Get(1),
			PaletteOutput: c.Args().Get(2),
			Palette:       c.String("palette"),
			MedianCut:     c.Bool("median-cut"),
			SavePalette:   c.String("save-palette"),
			Formats:       formats(c),
			DS:            c.Bool("ds"),
			Rotate:        c.Bool("rotate"),
			Sprite:        c.Bool("sprite"),
		}

		if err := homebrew.New(db, logger, warn).Convert(opts); err != nil {
			return cli.Exit(err, 1)
		}

		return nil
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
