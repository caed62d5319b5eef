package main

import (
	"os"

	"github.com/soyeahso/thecafe/internal/cli"
	"github.com/tillberg/autorestart"
)

func main() {
	// Restart on binary change while developing.
	if os.Getenv("THECAFE_DEV") != "" {
		go autorestart.RestartOnChange()
	}

	if err := cli.Execute(); err != nil {
		os.Stderr.WriteString("thecafe: " + err.Error() + "\n")
		os.Exit(1)
	}
}
