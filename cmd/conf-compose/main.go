package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"conf-compose/pkg/logger"
)

var log = logger.GetLogger()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
