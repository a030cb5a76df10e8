// Command claimctl is the operator CLI for claimdesk: it seeds master data,
// evaluates FNOL payloads locally and replays corpora against a running server.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
