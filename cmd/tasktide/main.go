package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yukikurage/tasktide/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		stop()
		log.Fatalf("tasktide: %v", err)
	}
}
