package main

import (
	"fmt"
	"os"

	"warp/internal/app"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: warp [command] [flags]

commands:
  run      start the node (default)
  keygen   print a node identity as NODE_PRIV_B64/NODE_PEER_ID
  journal  list recently journaled hub events
`)
}

func main() {
	args := os.Args[1:]
	cmd := "run"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = app.Run(args)
	case "keygen":
		err = app.RunKeygen(args)
	case "journal":
		err = app.RunJournal(args)
	case "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "[APP] %s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}
