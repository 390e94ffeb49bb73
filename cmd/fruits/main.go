package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/fruits/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewCommand().ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("fruits failed")
		stop()
		os.Exit(1)
	}
}
