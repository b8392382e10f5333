package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel     string // Log verbosity level
	scenarioPath string // Scenario YAML file
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "mobsim",
	Short: "Queue-based traffic simulation with parking search, route guidance and freight tours",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "Path to the scenario YAML file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(vrpCmd)
}
