package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	spellcraftcmd "github.com/spellcraft/spellcraft/internal/cmd/spellcraft"
)

func main() {
	cfg, err := spellcraftcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[SPELLCRAFT] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := spellcraftcmd.Run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("spellcraft: %v", err)
	}
}
