package file

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

const (
	Type = "path"
	// Stdio selects standard input or output instead of a file.
	Stdio = "-"
)

// Flag defines a path flag. A set path must not be a directory.
type Flag struct {
	path   *string
	exists bool
}

func (f *Flag) String() string {
	return *f.path
}

// IsStdio reports whether the flag selects standard input or output.
func (f *Flag) IsStdio() bool {
	return *f.path == Stdio
}

func (f *Flag) Exists() bool {
	return f.exists
}

// Open opens the file for reading, or returns standard input for "-".
func (f *Flag) Open() (io.ReadCloser, error) {
	if f.IsStdio() {
		return io.NopCloser(os.Stdin), nil
	}
	if *f.path == "" {
		return nil, fmt.Errorf("no file specified")
	}
	if !f.exists {
		return nil, fmt.Errorf("file %q does not exist", *f.path)
	}
	return os.Open(*f.path)
}

// Create truncates the file for writing, or returns out for "-" and an
// empty path.
func (f *Flag) Create(out io.Writer) (io.WriteCloser, error) {
	if f.IsStdio() || *f.path == "" {
		return nopWriteCloser{out}, nil
	}
	return os.Create(*f.path)
}

func (f *Flag) Set(s string) error {
	*f.path = s
	f.exists = false
	if s == Stdio {
		return nil
	}
	info, err := os.Stat(s)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to stat path %q: %w", s, err)
	}
	if info.IsDir() {
		return fmt.Errorf("path %q is a directory", s)
	}
	f.exists = true
	return nil
}

func (f *Flag) Type() string {
	return Type
}

func Var(f *pflag.FlagSet, name string, value string, usage string) {
	VarP(f, name, "", value, usage)
}

func VarP(f *pflag.FlagSet, name, shorthand string, value string, usage string) {
	actual := strings.Clone(value)
	flag := Flag{path: &actual}
	f.VarP(&flag, name, shorthand, usage)
}

func Get(f *pflag.FlagSet, name string) (*Flag, error) {
	flag := f.Lookup(name)
	if flag == nil {
		return nil, fmt.Errorf("flag accessed but not defined: %s", name)
	}
	val, ok := flag.Value.(*Flag)
	if !ok {
		return nil, fmt.Errorf("trying to Get %s value of flag of type %s", Type, flag.Value.Type())
	}
	return val, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
