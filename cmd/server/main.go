package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Config string `help:"Configuration file (yaml, json or toml)." short:"c" type:"existingfile"`
	Debug  bool   `help:"Whether to enable debug logging."`

	Serve struct {
		Addr string `help:"Listen address, overrides server.addr."`
	} `cmd:"" default:"1" help:"Run the simulation and serve it over HTTP and websockets."`

	Fly struct {
		Script string `arg:"" name:"script" help:"Scenario script to fly." type:"existingfile"`
		Record bool   `help:"Record the flight in the flight log."`
	} `cmd:"" help:"Fly a scripted scenario headless and print its summary."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx := kong.Parse(&CLI,
		kong.Name("flightsim"),
		kong.Description("an endless low-poly flight simulator"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	var err error
	switch ctx.Command() {
	case "serve":
		err = serveCommand(CLI.Config, CLI.Serve.Addr)
	case "fly <script>":
		err = flyCommand(CLI.Config, CLI.Fly.Script, CLI.Fly.Record)
	}
	if err != nil {
		writeError(err)
	}
}

// setLevel applies the configured level unless --debug asked for more.
func setLevel(lvl zerolog.Level) {
	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
