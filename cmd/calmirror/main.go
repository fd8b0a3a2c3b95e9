package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"calmirror/internal/config"
)

var commands = map[string]func(context.Context, *env) error{
	"sync":   syncCmd,
	"daemon": daemonCmd,
	"login":  loginCmd,
	"reset":  resetCmd,
}

func main() {
	flags := config.Flags()
	flags.Usage = func() {
		usage()
		fmt.Println(flags.FlagUsages())
	}
	k, err := config.Load(flags, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := newLogger(k.String(config.LogLevel))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[flags.Arg(0)]
	if !ok {
		log.Error().Str("command", flags.Arg(0)).Msg("unknown command")
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	if err := cmd(ctx, &env{k: k, log: log}); err != nil {
		log.Fatal().Err(err).Str("command", flags.Arg(0)).Msg("command failed")
	}
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func usage() {
	fmt.Println("Usage: calmirror [flags] <command>")
	fmt.Println("Commands:")
	fmt.Println("  sync    run one mirroring pass over every profile")
	fmt.Println("  daemon  run sync on a cron schedule until interrupted")
	fmt.Println("  login   obtain and cache an oauth token")
	fmt.Println("  reset   wipe a profile's mirrors and state (requires --profile)")
}
