package main

import (
	"fmt"
	"os"

	"github.com/passfoto/PassFoto/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [flags]

Commands:
  serve       run the HTTP/WebSocket server
  render      turn an image file into an ID photo
  countries   list supported countries and photo sizes
  secret      set or clear the payment provider secret key
  version     print the version, -check looks for a newer release
`, config.AppName)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(args)
	case "render":
		err = runRender(args)
	case "countries":
		err = runCountries(args, os.Stdout)
	case "secret":
		err = runSecret(args)
	case "version":
		err = runVersion(args, os.Stdout)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}
