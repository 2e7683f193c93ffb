package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/cmd/corpusctl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	commands.ExecuteContext(ctx)
}
