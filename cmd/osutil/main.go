package main

import (
	"os"

	"github.com/obentoo/osutil/internal/common/logger"
	"github.com/obentoo/osutil/internal/common/output"
	"github.com/obentoo/osutil/internal/common/version"
	"github.com/spf13/cobra"
)

var (
	verbose  bool
	quiet    bool
	noColor  bool
	useColor bool
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:     "osutil",
	Short:   "openSUSE packaging utilities",
	Long:    `Tools for openSUSE package maintainers: find outdated packages you maintain on OBS and list the build dependencies of spec files.`,
	Version: version.Short(),

	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Configure logging based on flags
		if verbose {
			logger.SetVerbose(true)
		}
		if quiet {
			logger.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
		if useColor {
			output.ForceColor()
		}
		if logFile != "" {
			if err := logger.Default().EnableFileLogging(logFile); err != nil {
				logger.Warn("Warning: %v", err)
			}
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&useColor, "color", false, "Force colored output even when not a terminal")
	rootCmd.MarkFlagsMutuallyExclusive("color", "no-color")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also append log messages to this file")
}

// execute runs the root command and closes the file log on every exit path
func execute() error {
	defer logger.Default().Close()
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Error: %v", err)
		return err
	}
	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
