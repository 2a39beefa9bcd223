package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/sbwgg/Checker-bot/internal/drill"
	"github.com/sbwgg/Checker-bot/pkg/logger"
)

// Default configuration constants.
const (
	defaultTeamSize     = 5
	defaultFirstID      = 900000
	defaultChannelBase  = 800000
	defaultRounds       = 10
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 10 * time.Second
	defaultDrillTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		teamSize    = flag.Int("team-size", defaultTeamSize, "Players per side")
		firstID     = flag.Uint64("first-id", defaultFirstID, "First player id used by the drill")
		channelBase = flag.Uint64("channel-base", defaultChannelBase, "First vote channel id used by the drill")
		rounds      = flag.Int("rounds", defaultRounds, "Matches to play")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent ballot senders")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose     = flag.Bool("verbose", false, "Log every ballot")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		drill.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultDrillTimeout)
	defer cancel()

	config := &drill.Config{
		BaseURL:       *baseURL,
		TeamSize:      *teamSize,
		FirstPlayerID: *firstID,
		ChannelBase:   *channelBase,
		Rounds:        *rounds,
		Workers:       *workers,
		Timeout:       *timeout,
		Verbose:       *verbose,
	}

	if _, err := drill.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Drill failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
