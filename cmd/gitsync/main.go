package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vishal-go/GitSync/internal/config"
	"github.com/vishal-go/GitSync/internal/version"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:           "gitsync",
	Short:         "Sync a local vault with a git-hosted repository",
	Version:       version.Detailed(),
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "config file")
	rootCmd.PersistentFlags().StringP("vault", "d", "", "vault directory")
	rootCmd.PersistentFlags().StringP("repo", "r", "", "repository name")
	rootCmd.PersistentFlags().StringP("branch", "b", config.DefaultBranch, "target branch")
	rootCmd.PersistentFlags().StringP("username", "u", "", "repository owner")
	rootCmd.PersistentFlags().StringP("token", "t", "", "access token")

	rootCmd.AddCommand(newPushCmd(), newPullCmd(), newSyncCmd(), newVerifyCmd())
}

func main() {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.SetConfigFile(config.DefaultConfigPath)
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("vault_dir", cmd.Flags().Lookup("vault"))
	viper.BindPFlag("repository_name", cmd.Flags().Lookup("repo"))
	viper.BindPFlag("branch", cmd.Flags().Lookup("branch"))
	viper.BindPFlag("username", cmd.Flags().Lookup("username"))
	viper.BindPFlag("token", cmd.Flags().Lookup("token"))

	viper.SetEnvPrefix("GITSYNC")
	viper.AutomaticEnv()

	return nil
}

func configFromViper() (*config.Config, error) {
	cfg := &config.Config{
		VaultDir:              viper.GetString("vault_dir"),
		Username:              viper.GetString("username"),
		Token:                 viper.GetString("token"),
		RepositoryName:        viper.GetString("repository_name"),
		Branch:                viper.GetString("branch"),
		APIBaseURL:            viper.GetString("api_base_url"),
		ExcludedFolders:       viper.GetString("excluded_folders"),
		ExcludedFiles:         viper.GetString("excluded_files"),
		CommitMessageTemplate: viper.GetString("commit_message_template"),
		AutoSyncMinutes:       viper.GetInt("auto_sync_interval_minutes"),
		Path:                  viper.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
