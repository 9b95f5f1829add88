// Command matrixctl pushes images to a greyscale matrix controller over
// serial, or drives a matrix wired to this machine's GPIO.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"greymatrix/host/config"
)

var (
	configPath = flag.String("config", "matrixctl.yaml", "path to the settings file")
	device     = flag.String("device", "", "serial device (overrides the settings file)")
	logLevel   = flag.String("log-level", "", "log level: trace, debug, info, warn, error")
	timeout    = flag.Duration("timeout", 10*time.Second, "limit for controller commands")
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\nCommands:\n", os.Args[0])
	for _, c := range commands {
		fmt.Fprintf(out, "  %-22s %s\n", c.usage, c.help)
	}
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg := loadConfig()
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("bad log level")
	}
	zerolog.SetGlobalLevel(level)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := lookupCommand(args[0])
	if !ok {
		log.Error().Str("command", args[0]).Msg("unknown command")
		usage()
		os.Exit(2)
	}
	if len(args)-1 != cmd.args {
		log.Fatal().Str("usage", cmd.usage).Msg("wrong number of arguments")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, cfg, args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Str("command", cmd.name).Msg("failed")
	}
}

// loadConfig reads the settings file, falling back to defaults, and applies
// flag overrides.
func loadConfig() *config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
		log.Debug().Str("path", *configPath).Msg("no settings file; using defaults")
		cfg = config.Default()
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	return cfg
}
