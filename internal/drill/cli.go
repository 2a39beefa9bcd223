package drill

import "os"

// ShowHelp prints usage information for the vote drill.
func ShowHelp() {
	os.Stdout.WriteString(`Checkers Vote Drill
===================

Plays matches against a running server and fires every ballot of two
competing end-match votes at once, then checks each match settled once.

Usage:
  go run ./cmd/vote-drill [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -team-size int
        Players per side; must match the server's team_size (default 5)
  -first-id uint
        First player id used by the drill (default 900000)
  -channel-base uint
        First vote channel id used by the drill (default 800000)
  -rounds int
        Matches to play (default 10)
  -workers int
        Concurrent ballot senders (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -verbose
        Log every ballot
  -help
        Show this help message

Examples:
  # One quick round against a local server
  go run ./cmd/vote-drill -rounds 1

  # A longer drill against 3v3 matches
  go run ./cmd/vote-drill -team-size 3 -rounds 100 -workers 32
`)
}
