package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command. They override the config file
// and CENTURY_* environment variables.
type Globals struct {
	Config   string `kong:"short='c',default='century.hcl',type='path',help='HCL configuration file'"`
	Debug    bool   `kong:"help='Enable debug logging'"`
	Store    string `kong:"help='Storage backend: sqlite, file, memory or redis (overrides config)'"`
	Spectate string `kong:"help='Serve the live scoreboard on this address, e.g. :8080'"`
}

type CLI struct {
	Globals

	Version     kong.VersionFlag `short:"v" help:"Show version"`
	Play        PlayCmd          `cmd:"" default:"withargs" help:"Keep score for a game in the terminal"`
	Games       GamesCmd         `cmd:"" help:"Manage saved games"`
	VersionInfo VersionCmd       `cmd:"version" help:"Print version and build information"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("century"),
		kong.Description("Scorekeeper for the Century CHECK card game"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
