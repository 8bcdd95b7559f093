package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netdiag/internal/runner"
)

func main() {
	options := runner.ParseOptions()
	netdiagRunner, err := runner.NewRunner(options)
	if err != nil {
		gologger.Fatal().Msgf("Could not create runner: %s\n", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup close handler
	go func() {
		<-c
		fmt.Println("\r- Ctrl+C pressed in Terminal, Exiting...")
		cancel()
	}()

	runErr := netdiagRunner.Run(ctx)
	if err := netdiagRunner.Close(); err != nil {
		gologger.Error().Msgf("Could not close result log: %s\n", err)
	}
	if runErr != nil {
		gologger.Fatal().Msgf("Could not run netdiag: %s\n", runErr)
	}
}
