// Package main is the entry point for audiobroadcaster (HTTP + WebSocket relay).
package main

import (
	"log"

	"github.com/nobledeveloper01/AudioBroadcaster/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
