package coprocess

import (
	"fmt"
	"os"
)

type stdioKind int

const (
	stdioUnset stdioKind = iota
	stdioInherit
	stdioPiped
	stdioNull
	stdioFile
)

// Stdio describes what a child's standard input, output or error is
// connected to:
//   - Inherit(): the parent's own stream
//   - Piped(): a new pipe, whose parent end is available on the Child
//   - Null(): the null device
//   - File(f): an already open file, which the caller keeps owning
type Stdio struct {
	kind stdioKind
	file *os.File
}

// Inherit connects the stream to the parent's corresponding stream
func Inherit() Stdio { return Stdio{kind: stdioInherit} }

// Piped connects the stream to a new pipe
func Piped() Stdio { return Stdio{kind: stdioPiped} }

// Null connects the stream to the null device
func Null() Stdio { return Stdio{kind: stdioNull} }

// File connects the stream to f. A nil file behaves like Null
func File(f *os.File) Stdio {
	if f == nil {
		return Null()
	}
	return Stdio{kind: stdioFile, file: f}
}

func (s Stdio) or(def Stdio) Stdio {
	if s.kind == stdioUnset {
		return def
	}
	return s
}

func (s Stdio) String() string {
	switch s.kind {
	case stdioInherit:
		return "inherit"
	case stdioPiped:
		return "piped"
	case stdioNull:
		return "null"
	case stdioFile:
		return "file " + s.file.Name()
	default:
		return "default"
	}
}

type stream int

const (
	streamStdin stream = iota
	streamStdout
	streamStderr
)

func (st stream) String() string {
	return [...]string{"stdin", "stdout", "stderr"}[st]
}

// setup resolves the configuration for one stream. child is what the new
// process gets (nil means the null device, handled by os/exec); parent is
// our end of a pipe, if any; closeAfterStart is set when child was opened
// here and must be closed once the process has started
func (s Stdio) setup(st stream) (child, parent *os.File, closeAfterStart bool, err error) {
	switch s.kind {
	case stdioInherit:
		return [...]*os.File{os.Stdin, os.Stdout, os.Stderr}[st], nil, false, nil

	case stdioNull:
		return nil, nil, false, nil

	case stdioFile:
		return s.file, nil, false, nil

	case stdioPiped:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, false, fmt.Errorf("%s pipe: %w", st, err)
		}
		if st == streamStdin {
			return r, w, true, nil
		}
		return w, r, true, nil
	}

	return nil, nil, false, fmt.Errorf("%s: invalid stdio configuration", st)
}
