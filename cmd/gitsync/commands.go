package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/vishal-go/GitSync/internal/config"
	"github.com/vishal-go/GitSync/internal/gitapi"
	"github.com/vishal-go/GitSync/internal/sync"
)

type runFn func(ctx context.Context, engine *sync.Engine) (*sync.Result, error)

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload local changes as one commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd, func(ctx context.Context, engine *sync.Engine) (*sync.Result, error) {
				return engine.Push(ctx)
			})
		},
	}
}

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Download remote changes into the vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd, func(ctx context.Context, engine *sync.Engine) (*sync.Result, error) {
				return engine.Pull(ctx)
			})
		},
	}
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Full two-way sync: push then pull",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch, _ := cmd.Flags().GetBool("watch"); watch {
				return watchLoop(cmd)
			}
			return runEngine(cmd, func(ctx context.Context, engine *sync.Engine) (*sync.Result, error) {
				return engine.Sync(ctx)
			})
		},
	}
	cmd.Flags().BoolP("watch", "w", false, "keep syncing every auto-sync interval until interrupted")
	return cmd
}

// watchLoop repeats the full sync on the configured interval. It is the
// caller-side scheduler; the engine itself never schedules anything.
func watchLoop(cmd *cobra.Command) error {
	cmd.SilenceUsage = true

	cfg, api, err := buildClient()
	if err != nil {
		return err
	}

	engine, err := sync.NewEngine(cfg, api)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()
	interval := time.Duration(cfg.AutoSyncMinutes) * time.Minute
	slog.Info("watching vault", "dir", cfg.VaultDir, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := engine.Sync(ctx)
		if result != nil {
			printResult(result)
		}
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			fmt.Println(red("!"), "sync failed:", err)
		default:
			persistLastSync(cfg, result)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check credentials and repository access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, api, err := buildClient()
			if err != nil {
				return err
			}

			if !cfg.IsConfigured() {
				return sync.ErrNotConfigured
			}
			if !api.VerifyConnection(cmd.Context()) {
				return fmt.Errorf("cannot access %s/%s: check credentials and repository name",
					cfg.Username, cfg.RepositoryName)
			}

			fmt.Println(green("✓"), "read access to", cyan(cfg.Username+"/"+cfg.RepositoryName), "confirmed")
			return nil
		},
	}
}

func buildClient() (*config.Config, *gitapi.Client, error) {
	cfg, err := configFromViper()
	if err != nil {
		return nil, nil, err
	}

	api, err := gitapi.New(&gitapi.Config{
		BaseURL:    cfg.APIBaseURL,
		Username:   cfg.Username,
		Token:      cfg.Token,
		Repository: cfg.RepositoryName,
		Branch:     cfg.Branch,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, api, nil
}

func runEngine(cmd *cobra.Command, fn runFn) error {
	cmd.SilenceUsage = true

	cfg, api, err := buildClient()
	if err != nil {
		return err
	}

	engine, err := sync.NewEngine(cfg, api)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := fn(cmd.Context(), engine)
	if result != nil {
		printResult(result)
	}
	if err != nil {
		return err
	}

	persistLastSync(cfg, result)
	return nil
}

// persistLastSync remembers when the last successful operation finished.
func persistLastSync(cfg *config.Config, result *sync.Result) {
	cfg.LastSyncTimestamp = result.Timestamp.UnixMilli()
	if cfg.Path == "" {
		return
	}
	if err := cfg.Save(cfg.Path); err != nil {
		fmt.Println(red("!"), "could not persist last sync time:", err)
	}
}

func printResult(result *sync.Result) {
	fmt.Printf("%s pushed %d, pulled %d (%s) at %s\n",
		green("✓"),
		result.Pushed,
		result.Pulled,
		humanize.Bytes(uint64(result.Bytes)),
		result.Timestamp.Format(time.RFC3339))

	if result.CommitID != "" {
		fmt.Println("  commit:", cyan(result.CommitID))
	}
	for _, path := range result.Conflicts {
		fmt.Println(red("  conflict:"), path)
	}
	for _, failure := range result.Failures {
		fmt.Printf("%s %s: %v\n", red("  failed:"), failure.Path, failure.Err)
	}
}
