package cmdargs

import (
	"fmt"
	"strings"
	"time"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/urfave/cli"
)

// EnsureNone returns an error if there are any positional arguments present.
// It can be used to check for them in commands that don't accept arguments.
func EnsureNone(ctx *cli.Context) *cli.ExitError {
	if ctx.Args().Present() {
		return cli.NewExitError("additional arguments given while this command expects none", 1)
	}
	return nil
}

// GetSingleArg returns the only positional argument of the command, name is
// used in error messages.
func GetSingleArg(ctx *cli.Context, name string) (string, *cli.ExitError) {
	args := ctx.Args()
	switch {
	case len(args) == 0:
		return "", cli.NewExitError(fmt.Sprintf("%s is missing", name), 1)
	case len(args) > 1:
		return "", cli.NewExitError(fmt.Sprintf("only one %s is expected", name), 1)
	case strings.TrimSpace(args[0]) == "":
		return "", cli.NewExitError(fmt.Sprintf("empty %s", name), 1)
	}
	return args[0], nil
}

// ParseExpiry parses message expiry time given either as RFC 3339 timestamp
// or as a duration from now (like "30m").
func ParseExpiry(s string, now time.Time) (ccd.Timestamp, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("non-positive expiry duration %s", s)
		}
		return ccd.TimestampFromTime(now.Add(d)), nil
	}
	ts, err := ccd.TimestampFromSchemaValue(s)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: neither a duration nor RFC 3339 time", s)
	}
	return ts, nil
}
