package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/BukiOffor/registry/cli/registry"
	"github.com/BukiOffor/registry/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "registry-cli\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates an instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "registry-cli"
	ctl.Version = config.Version
	ctl.Usage = "Client for the Concordium tag registry contract"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, registry.NewCommands()...)
	return ctl
}
