package main

import (
	"context"
	"log"

	"github.com/safenetai/safebank-client/internal/client/cli"
	"github.com/safenetai/safebank-client/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
