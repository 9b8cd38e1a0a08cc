package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const repoSlug = "happyhackingspace/insincere"

// updater is the part of *selfupdate.Updater the up command drives.
type updater interface {
	DetectLatest(ctx context.Context, repo selfupdate.Repository) (*selfupdate.Release, bool, error)
	UpdateTo(ctx context.Context, rel *selfupdate.Release, cmdPath string) error
}

func newReleaseUpdater() (updater, error) {
	return selfupdate.NewUpdater(selfupdate.Config{})
}

func (c *CLI) newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Self-update to the latest version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.selfUpdate(cmd.Context())
		},
	}
}

func (c *CLI) selfUpdate(ctx context.Context) error {
	v := c.version
	if v == "dev" {
		v = "0.0.0"
	}

	up, err := c.newUpdater()
	if err != nil {
		return err
	}

	latest, found, err := up.DetectLatest(ctx, selfupdate.ParseSlug(repoSlug))
	if err != nil {
		return fmt.Errorf("detect latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found")
	}

	if latest.LessOrEqual(v) {
		fmt.Fprintf(c.out, "Already up to date (%s)\n", c.version)
		return nil
	}

	c.log.Info().Str("from", c.version).Str("to", latest.Version()).Msg("updating")

	exe, err := os.Executable()
	if err != nil {
		return err
	}

	if err := up.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	fmt.Fprintf(c.out, "Updated to %s\n", latest.Version())
	return nil
}
