package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/sampleapp/internal/admin"
	"github.com/dmitrijs2005/sampleapp/internal/flagx"
	"github.com/dmitrijs2005/sampleapp/internal/logging"
	"github.com/dmitrijs2005/sampleapp/internal/server"
	"github.com/dmitrijs2005/sampleapp/internal/server/config"
)

func main() {

	ctx := context.Background()
	command, args := flagx.SplitCommand(os.Args[1:])

	if command == "" || command == "help" {
		_ = admin.New(os.Stdin, os.Stdout, nil).Run(ctx, command)
		return
	}

	cfg, err := config.Load(args)
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSONLogger(os.Stderr, "sampleapp-admin", slog.LevelWarn)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = admin.New(os.Stdin, os.Stdout, app.Users()).Run(ctx, command)
	_ = app.Close()
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

}
