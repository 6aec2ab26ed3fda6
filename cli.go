package fetchkit

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"
)

const usageHint = "No arguments were passed to %s.\n" +
	"Please pass the required arguments via the command line.\n" +
	"Use the -h or --help argument to bring up the documentation.\n"

// CheckArgs prints a usage hint to w and returns false when the program was
// started without arguments. It runs before any flag parsing.
func CheckArgs(w io.Writer, args []string) bool {
	if len(args) > 1 {
		return true
	}
	name := "this program"
	if len(args) == 1 {
		name = args[0]
	}
	fmt.Fprintf(w, usageHint, name)
	return false
}

// SetupLogging sends log output to stdout at the given level.
func SetupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	log.SetOutput(os.Stdout)
	log.SetLevel(lvl)
	log.SetReportTimestamp(true)
	return nil
}

// ParseFlags parses args into fs. It returns true when --help was requested,
// and wraps every other parse error in ErrConfig.
func ParseFlags(fs *flag.FlagSet, args []string) (bool, error) {
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return false, nil
}

// RequireFlags fails with ErrConfig naming the first required flag that is
// still empty.
func RequireFlags(fs *flag.FlagSet, names ...string) error {
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil || f.Value.String() == "" {
			return fmt.Errorf("%w: missing required parameter --%s", ErrConfig, name)
		}
	}
	return nil
}
