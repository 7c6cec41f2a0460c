package cli

import (
	"context"
	"fmt"
	"os"

	"reviewhooks/internal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "reviewhooks",
	Short:        "Relay pull request webhooks to an AI reviewer",
	Long:         "reviewhooks receives GitHub and GitLab pull/merge request webhooks, sends the diff to a review API and posts the feedback back as a comment.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print reviewhooks version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reviewhooks version %s\n", version)
	},
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := internal.NewReviewFilter(cfg.Review.SkipWhen); err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file (environment only when empty)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkConfigCmd)
}

// Run executes the root command and returns a process exit code.
func Run() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return 1
	}
	return 0
}

func loadConfig() (internal.Config, error) {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := internal.ConfigureLogging(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q, using info\n", cfg.Log.Level)
	}
	return cfg, nil
}
