package homebrew

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bodgit/homebrew/asm"
)

var errNoFiles = errors.New("no input files")

// AssembleOptions describes a run of bin2s.
type AssembleOptions struct {
	Files []string

	// Output receives the assembler source, standard output if empty.
	Output string

	// Header, if set, receives a C header declaring the symbols.
	Header string

	Alignment int
	AppleLLVM bool
}

// Assemble converts each of opts.Files into assembler source. Empty files
// are skipped with a warning. When opts.Output is empty the source is written
// to stdout.
func (c *Converter) Assemble(stdout io.Writer, opts AssembleOptions) error {
	if len(opts.Files) == 0 {
		return errNoFiles
	}

	e := asm.Encoder{
		Alignment: opts.Alignment,
		AppleLLVM: opts.AppleLLVM,
	}

	src := new(bytes.Buffer)
	var names []string

	for _, file := range opts.Files {
		b, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if len(b) == 0 {
			c.warn.Printf("Skipping empty file \"%s\"\n", file)
			continue
		}

		if err := e.Encode(src, file, b); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		names = append(names, file)

		c.logger.Printf("Converted %d bytes from \"%s\" as %s\n", len(b), file, asm.Identifier(file, opts.AppleLLVM))
	}

	var header []byte
	if opts.Header != "" {
		b := new(bytes.Buffer)
		if err := e.EncodeHeader(b, names...); err != nil {
			return err
		}
		header = b.Bytes()
	}

	if opts.Output == "" {
		if _, err := stdout.Write(src.Bytes()); err != nil {
			return err
		}
		return writeOutputs(output{opts.Header, header})
	}

	return writeOutputs(output{opts.Output, src.Bytes()}, output{opts.Header, header})
}
