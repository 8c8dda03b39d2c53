package main

import (
	"context"

	"arcinfo-pdf/cmd/arcinfo-pdf/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
