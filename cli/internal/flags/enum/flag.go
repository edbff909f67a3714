// Package enum provides a flag that only accepts one of a fixed set of values.
package enum

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"gradle2nix.dev/gradle2nix/cli/internal/flags"
)

const Type = "enum"

// Flag holds a value out of Options. The first option is the default.
type Flag struct {
	value   string
	options []string
}

func (f *Flag) String() string {
	return f.value
}

func (f *Flag) Set(s string) error {
	if !slices.Contains(f.options, s) {
		return fmt.Errorf("must be one of %s", strings.Join(f.options, ", "))
	}
	f.value = s
	return nil
}

func (f *Flag) Type() string {
	return Type
}

// Options returns the accepted values.
func (f *Flag) Options() []string {
	return slices.Clone(f.options)
}

func Var(f *pflag.FlagSet, name string, options []string, usage string) {
	VarP(f, name, "", options, usage)
}

func VarP(f *pflag.FlagSet, name, shorthand string, options []string, usage string) {
	if len(options) == 0 {
		panic(fmt.Sprintf("enum flag %s needs at least one option", name))
	}
	flag := &Flag{value: options[0], options: slices.Clone(options)}
	f.VarP(flag, name, shorthand, fmt.Sprintf("%s (must be one of %s)", usage, strings.Join(options, ", ")))
}

func Get(f *pflag.FlagSet, name string) (string, error) {
	return flags.Get(f, name, Type, func(sval string) (string, error) {
		return sval, nil
	})
}
