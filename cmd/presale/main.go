package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fraction-presale-go/internal/cli"
	"fraction-presale-go/internal/common"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx)

	stop()
	loggerCleanup()
	os.Exit(code)
}
