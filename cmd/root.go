// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prscore/prscore/internal/output"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui      *output.UI
	verbose bool

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "prscore",
	Short: "Compute and publish a pull-request quality score",
	Long: `prscore is the CI automation layer behind pull-request quality checks.
It consumes linter, duplication, coverage, and test-runner output produced
earlier in the workflow, computes a deterministic 0-100 quality score for
the changed files, and publishes the result as a PR comment, a quality
label, and a spreadsheet row.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("config", "", "Process config file (default ./prscore.yaml)")
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("prscore")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PRSCORE")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	viper.SetDefault("github.token_env", "GITHUB_TOKEN")
	viper.SetDefault("sheets.credentials_env", "GOOGLE_CREDENTIALS")
	viper.SetDefault("sheets.spreadsheet_id", "")
	viper.SetDefault("sheets.sheet_name", "Raw PR Logs")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
}

// newLogger returns the logger injected into gateways and use cases.
// All logs are discarded unless --verbose is set.
func newLogger() *log.Logger {
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger.SetOutput(os.Stderr)
	}
	return logger
}
