package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/usersctl"
)

func main() {

	ctx := context.Background()

	global, command, rest := usersctl.SplitArgs(os.Args[1:])
	if command == "" {
		os.Exit(usersctl.NewApp(nil, os.Stderr).Run(ctx, command, rest))
	}

	cfg, err := config.Load(global, os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(logging.FormatConsole, "warn", os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	users, closeDB, err := usersctl.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	code := usersctl.NewApp(users, os.Stdout).Run(ctx, command, rest)
	closeDB()
	os.Exit(code)

}
