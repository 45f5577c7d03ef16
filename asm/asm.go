/*
Package asm writes binary data as a GNU assembler source module so it can be
linked straight into a program.

For a file named gfx/foo.bin the module defines foo_bin (the bytes), foo_bin_end
(the address just past them) and foo_bin_size (the length as a 32-bit int).
A file named 4bit.chr becomes _4bit_chr, _4bit_chr_end and _4bit_chr_size.
*/
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	bytesPerLine     = 16
	defaultAlignment = 4
	banner           = "/* Generated by BIN2S - please don't edit directly */\n"
)

var errAlignment = errors.New("asm: alignment must be a power of two")

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Identifier returns the closest valid C identifier to name. Any directory
// component is removed first. With appleLLVM set the identifier always gains
// a leading underscore to match the Mach-O symbol convention. Only one
// underscore is added however many leading characters are dropped, so
// "+x" becomes "_x" rather than "__x".
func Identifier(name string, appleLLVM bool) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	first := true
	for i := 0; i < len(name); i++ {
		c := name[i]
		if first && (isDigit(c) || appleLLVM) {
			b.WriteByte('_')
			first = false
		}
		switch {
		case isAlpha(c), isDigit(c), c == '_':
		case c == '-', c == '.', c == '/':
			c = '_'
		default:
			continue
		}
		b.WriteByte(c)
		first = false
	}

	return b.String()
}

// Encoder writes assembler modules and matching C headers.
type Encoder struct {
	// Alignment for the start of the data. Zero means the default of 4,
	// not byte alignment.
	Alignment int

	// AppleLLVM selects the Apple assembler dialect.
	AppleLLVM bool
}

func (e *Encoder) alignment() (int, error) {
	a := e.Alignment
	if a == 0 {
		a = defaultAlignment
	}
	if a < 0 || a&(a-1) != 0 {
		return 0, errAlignment
	}
	return a, nil
}

// Encode writes data to w as an assembler module with symbols derived from
// name.
func (e *Encoder) Encode(w io.Writer, name string, data []byte) error {
	align, err := e.alignment()
	if err != nil {
		return err
	}

	id := Identifier(name, e.AppleLLVM)
	bw := bufio.NewWriter(w)

	section := "\t.section .rodata\n"
	if e.AppleLLVM {
		section = "\t.const_data\n"
	}

	fmt.Fprint(bw, banner)
	fmt.Fprint(bw, section)
	fmt.Fprintf(bw, "\t.balign %d\n", align)
	fmt.Fprintf(bw, "\t.global %s_size\n", id)
	fmt.Fprintf(bw, "\t.global %s\n", id)
	fmt.Fprintf(bw, "%s:\n\t.byte ", id)

	for i, c := range data {
		fmt.Fprintf(bw, "%3d", c)
		switch {
		case i == len(data)-1:
		case (i+1)%bytesPerLine == 0:
			fmt.Fprint(bw, "\n\t.byte ")
		default:
			fmt.Fprint(bw, ",")
		}
	}

	fmt.Fprintf(bw, "\n\n\t.global %s_end\n", id)
	fmt.Fprintf(bw, "%s_end:\n\n", id)
	fmt.Fprint(bw, "\t.balign 4\n")
	fmt.Fprintf(bw, "%s_size: .int %d\n", id, len(data))

	return bw.Flush()
}

// EncodeHeader writes a C header declaring the symbols Encode defines for
// each of names.
func (e *Encoder) EncodeHeader(w io.Writer, names ...string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprint(bw, banner)
	fmt.Fprint(bw, "#pragma once\n\n#include <stdint.h>\n")

	for _, name := range names {
		// C sees the symbol without the Mach-O underscore
		id := Identifier(name, false)
		fmt.Fprintf(bw, "\nextern const uint8_t %s[];\n", id)
		fmt.Fprintf(bw, "extern const uint8_t %s_end[];\n", id)
		fmt.Fprintf(bw, "extern const uint32_t %s_size;\n", id)
	}

	return bw.Flush()
}
