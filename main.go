package main

import (
	"os"

	"skidoodle/lastfm-rpc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
