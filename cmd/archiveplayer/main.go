// Command archiveplayer plays the audio of an archival catalog item.
//
// Build:
//
//	go build -o build/archiveplayer ./cmd/archiveplayer
//
// Run the desktop player:
//
//	./build/archiveplayer gui --item 74465213
//
// Serve the HTTP API instead:
//
//	./build/archiveplayer serve --item 74465213
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
