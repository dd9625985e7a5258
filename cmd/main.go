package main

import (
	"context"
	"os"
	"os/signal"

	"CVECatalog/pkg/cli"
)

var version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	root := cli.NewRootCommand(version)
	code := cli.Execute(ctx, root)
	stop()
	os.Exit(code)
}
