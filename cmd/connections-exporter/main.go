package main

import (
	"context"

	"connections-exporter/cmd/connections-exporter/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
