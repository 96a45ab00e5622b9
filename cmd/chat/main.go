// Package main is the entry point for the terminal chat client.
package main

import (
	"github.com/hikari-ai/chat-assistant/internal/cli"
)

func main() {
	cli.Main()
}
