package main

import (
	"context"
	"log"

	"github.com/keepsake-app/keepsake/internal/client"
	"github.com/keepsake-app/keepsake/internal/client/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := client.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
