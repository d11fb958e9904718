package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/obentoo/osutil/internal/common/config"
	"github.com/obentoo/osutil/internal/common/logger"
	"github.com/obentoo/osutil/internal/common/output"
	"github.com/spf13/cobra"
)

var (
	// configInitUsername is the OBS user written by config init
	configInitUsername string
	// configInitPassword is the OBS password; read from stdin when empty
	configInitPassword string
	// configInitForce overwrites an existing file
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the osutil configuration file",
	Long: `Commands for creating and inspecting the configuration file.

The file lives at $XDG_CONFIG_HOME/osutil/osutil.conf (usually
~/.config/osutil/osutil.conf) and holds your OBS credentials:

  username = "geeko"
  password = "secret"`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration file",
	Long: `Write a configuration file with your OBS credentials.

The password is read from stdin when --password is not given.

Examples:
  osutil config init --username geeko
  echo "$OBS_PASSWORD" | osutil config init --username geeko --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with the password masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		showConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVarP(&configInitUsername, "username", "u", "", "OBS username")
	configInitCmd.Flags().StringVarP(&configInitPassword, "password", "p", "", "OBS password (read from stdin if omitted)")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing configuration file")
	configInitCmd.MarkFlagRequired("username")

	configCmd.AddCommand(configInitCmd, configPathCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	path, err := config.DefaultPath()
	if err != nil {
		return err
	}

	password := configInitPassword
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		password, err = readLine(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	if err := initConfig(path, configInitUsername, password, configInitForce); err != nil {
		return err
	}
	logger.Debug("Wrote configuration for %s", configInitUsername)
	output.PrintSuccess("Configuration written to %s", path)
	return nil
}

// initConfig writes a new configuration file with the given credentials
func initConfig(path, username, password string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	cfg := &config.Config{Username: username, Password: password}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// showConfig prints every setting, including defaults
func showConfig(w io.Writer, cfg *config.Config) {
	tablePath := cfg.Outdated.DistributionsFile
	if tablePath == "" {
		tablePath = output.Sprint(output.Dim, "(built-in)")
	}
	userAgent := cfg.Repology.UserAgent
	if userAgent == "" {
		userAgent = output.Sprint(output.Dim, "(default)")
	}

	output.Header.Fprintln(w, "Credentials")
	output.KeyValue(w, "username", output.Sprint(output.Package, cfg.Username))
	output.KeyValue(w, "password", output.Mask(cfg.Password))

	output.Header.Fprintln(w, "Services")
	output.KeyValue(w, "obs.api_url", cfg.OBS.APIURL)
	output.KeyValue(w, "repology.api_url", cfg.Repology.APIURL)
	output.KeyValue(w, "repology.user_agent", userAgent)
	output.KeyValue(w, "repology.requests_per_second", strconv.FormatFloat(cfg.Repology.RequestsPerSecond, 'g', -1, 64))

	output.Header.Fprintln(w, "Outdated check")
	output.KeyValue(w, "outdated.concurrency", strconv.Itoa(cfg.Outdated.Concurrency))
	output.KeyValue(w, "outdated.timeout", cfg.RequestTimeout().String())
	output.KeyValue(w, "outdated.retries", strconv.Itoa(cfg.Outdated.Retries))
	output.KeyValue(w, "outdated.strip_prefixes", strings.Join(cfg.Outdated.StripPrefixes, ", "))
	output.KeyValue(w, "outdated.distributions_file", tablePath)
}
