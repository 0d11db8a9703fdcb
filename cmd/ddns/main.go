package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jxo-me/porkbun-ddns/cmd/ddns/cliutil"
	"github.com/urfave/cli/v2"
)

var (
	Version   = "DEV"
	BuildTime = "unknown"
	BuildType = ""
)

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(in io.Reader, out, errOut io.Writer) *cli.App {
	bInfo := cliutil.GetBuildInfo(BuildType, Version)

	app := &cli.App{}
	app.Name = "porkbun-ddns"
	app.Usage = "Keep a Porkbun DNS record pointed at this machine's public IP"
	app.UsageText = "porkbun-ddns [global options] [command] [command options]"
	app.Version = fmt.Sprintf("%s (built %s%s, %s %s)", Version, BuildTime, bInfo.GetBuildTypeMsg(), bInfo.GoVersion, bInfo.OSArch())
	app.Description = `porkbun-ddns reads config.toml, finds the current public IP (or uses a fixed one)
	and makes the A or AAAA record of the configured domain answer with it.

	Without a command it runs a single update. On first run a config template is written
	and the command exits asking you to fill it in.`
	app.Reader = in
	app.Writer = out
	app.ErrWriter = errOut
	app.Flags = flags()
	app.Action = cliutil.Action(update)
	app.Commands = commands()
	return app
}
