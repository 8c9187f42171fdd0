// Package main is the steppe CLI: run agent-based models from Lua
// scenarios, sweep parameter spaces, and serve a browser
// visualization.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	batchcmd "github.com/steppesim/steppe/internal/cmd/batch"
	"github.com/steppesim/steppe/internal/cmd/initcmd"
	runcmd "github.com/steppesim/steppe/internal/cmd/run"
	servecmd "github.com/steppesim/steppe/internal/cmd/serve"
	"github.com/steppesim/steppe/internal/platform/config"
)

const usage = `Usage: steppe <command> [flags]

Commands:
  run    Execute one model run and write its collected series
  batch  Run every combination a scenario sweeps
  serve  Host the browser visualization
  init   Scaffold a project directory

Run 'steppe <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	command := os.Args[1]
	args := os.Args[2:]
	fs := flag.NewFlagSet(command, flag.ExitOnError)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case "run":
		log.SetPrefix("[RUN] ")
		var cfg runcmd.Config
		cfg, err = runcmd.ParseConfig(fs, args, os.LookupEnv)
		if err == nil {
			err = runcmd.Run(ctx, cfg)
		}
	case "batch":
		log.SetPrefix("[BATCH] ")
		var cfg batchcmd.Config
		cfg, err = batchcmd.ParseConfig(fs, args, os.LookupEnv)
		if err == nil {
			err = batchcmd.Run(ctx, cfg)
		}
	case "serve":
		log.SetPrefix("[SERVE] ")
		var cfg servecmd.Config
		cfg, err = servecmd.ParseConfig(fs, args, os.LookupEnv)
		if err == nil {
			err = servecmd.Run(ctx, cfg)
		}
	case "init":
		log.SetPrefix("[INIT] ")
		var cfg initcmd.Config
		cfg, err = initcmd.ParseConfig(fs, args, os.LookupEnv)
		if err == nil {
			err = initcmd.Run(ctx, cfg)
		}
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		config.Exitf("%s failed: %v", command, err)
	}
}
