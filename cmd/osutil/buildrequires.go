package main

import (
	"fmt"

	"github.com/obentoo/osutil/internal/common/logger"
	"github.com/obentoo/osutil/internal/specfile"
	"github.com/spf13/cobra"
)

var buildRequiresCmd = &cobra.Command{
	Use:   "buildrequires FILE",
	Short: "List the build dependencies of a spec file",
	Long: `Print the name of every BuildRequires entry of an RPM spec file, one per line.

Python module macros are resolved to the module name and version constraints
are dropped, so "%{python_module requests >= 2}" prints "requests".

Examples:
  osutil buildrequires python-requests.spec`,
	Args: cobra.ExactArgs(1),
	RunE: runBuildRequires,
}

func init() {
	rootCmd.AddCommand(buildRequiresCmd)
}

func runBuildRequires(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	names, err := specfile.ExtractFile(args[0])
	if err != nil {
		return err
	}

	logger.Debug("%s: %d build dependencies", args[0], len(names))
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
