package util

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v63/github"
	"github.com/passfoto/PassFoto/config"
	"golang.org/x/mod/semver"
)

const (
	githubOwner = "passfoto"
	githubRepo  = "PassFoto"
)

// CheckForUpdatesResult holds the outcome of the update check.
type CheckForUpdatesResult struct {
	UpdateAvailable bool
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	ReleaseNotes    string
}

// CheckForUpdates polls GitHub for the latest stable release and compares it
// with config.AppVersion. A nil client uses http.DefaultClient.
func CheckForUpdates(ctx context.Context, client *http.Client) (*CheckForUpdatesResult, error) {
	gh := github.NewClient(client)

	release, _, err := gh.Repositories.GetLatestRelease(ctx, githubOwner, githubRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest GitHub release: %w", err)
	}

	currentVersion := canonicalVersion(config.AppVersion)
	latestVersion := canonicalVersion(release.GetTagName())
	if !semver.IsValid(latestVersion) {
		return nil, fmt.Errorf("latest release tag %q is not a semantic version", release.GetTagName())
	}

	return &CheckForUpdatesResult{
		UpdateAvailable: semver.Compare(latestVersion, currentVersion) > 0,
		CurrentVersion:  currentVersion,
		LatestVersion:   latestVersion,
		ReleaseURL:      release.GetHTMLURL(),
		ReleaseNotes:    release.GetBody(),
	}, nil
}

func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
