package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/passfoto/PassFoto/config"
	"github.com/passfoto/PassFoto/util"
)

func runVersion(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	check := fs.Bool("check", false, "check GitHub for a newer release")
	_ = fs.Parse(args)

	fmt.Fprintf(w, "%s %s\n", config.AppName, config.AppVersion)
	if !*check {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	res, err := util.CheckForUpdates(ctx, &http.Client{})
	if err != nil {
		return err
	}
	if res.UpdateAvailable {
		fmt.Fprintf(w, "Update available: %s\n%s\n", res.LatestVersion, res.ReleaseURL)
	} else {
		fmt.Fprintln(w, "You are running the latest version.")
	}
	return nil
}

func runSecret(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: secret set <key> | secret clear")
	}
	switch args[0] {
	case "set":
		if len(args) != 2 || args[1] == "" {
			return errors.New("usage: secret set <key>")
		}
		if err := config.SetProviderSecret(args[1]); err != nil {
			return fmt.Errorf("storing secret: %w", err)
		}
		fmt.Println("Secret key stored in the system keyring.")
	case "clear":
		if err := config.ClearProviderSecret(); err != nil {
			return fmt.Errorf("clearing secret: %w", err)
		}
		fmt.Println("Secret key removed.")
	default:
		return fmt.Errorf("unknown secret action %q", args[0])
	}
	return nil
}
