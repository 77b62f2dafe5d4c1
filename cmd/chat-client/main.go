package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"shopchat/go-client/internal/composition/clientservice"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to chat-client.yaml (optional)")
	stateDir := flag.String("state-dir", "", "Directory for persisted guest state (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("chat-client version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := clientservice.Build(clientservice.Options{
		ConfigPath: *configPath,
		StateDir:   *stateDir,
	})
	if err != nil {
		log.Fatalf("chat-client failed to initialize: %v", err)
	}

	log.Println("chat-client starting")
	if err := svc.Run(ctx); err != nil {
		log.Fatalf("chat-client failed: %v", err)
	}
	log.Println("chat-client stopped")
}
