package flags

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Get looks up the flag name, checks that it is of type ftype and converts
// its value with conv.
func Get[T any](f *pflag.FlagSet, name, ftype string, conv func(string) (T, error)) (T, error) {
	var zero T
	flag := f.Lookup(name)
	if flag == nil {
		return zero, fmt.Errorf("flag accessed but not defined: %s", name)
	}
	if flag.Value.Type() != ftype {
		return zero, fmt.Errorf("trying to Get %s value of flag of type %s", ftype, flag.Value.Type())
	}
	return conv(flag.Value.String())
}
