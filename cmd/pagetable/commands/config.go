package commands

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/maruel/pagetable/internal/config"
	"github.com/maruel/pagetable/internal/kvstore"
	"github.com/maruel/pagetable/internal/output"
)

var (
	configForce       bool
	configInteractive bool
	configShowOutput  string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage the pagetable configuration file.

Subcommands:
  init    Write a configuration file
  show    Display the effective configuration
  schema  Print the JSON schema of the configuration file`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file",
	Long: `Write a configuration file with the default settings.

When stdin is a terminal, a short wizard asks for the main settings.

Examples:
  pagetable config init
  pagetable config init --config ./pagetable.yaml --force
  pagetable config init --interactive=false`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	RunE:  runConfigShow,
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE:  runConfigSchema,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
	configInitCmd.Flags().BoolVar(&configInteractive, "interactive", true, "prompt for settings when stdin is a terminal")
	configShowCmd.Flags().StringVarP(&configShowOutput, "output", "o", "yaml", "output format (yaml|json)")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSchemaCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}
	c := config.Default()
	if configInteractive && isatty.IsTerminal(os.Stdin.Fd()) {
		if err := runOnboarding(c); err != nil {
			if isAborted(err) {
				return errors.New("aborted")
			}
			return fmt.Errorf("onboarding failed: %w", err)
		}
	}
	if err := config.Validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Save(c, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  1. Fetch the first page:  pagetable fetch")
	fmt.Fprintln(cmd.OutOrStdout(), "  2. Browse it:             pagetable tui")
	fmt.Fprintln(cmd.OutOrStdout(), "  3. Or serve the API:      pagetable serve")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	format, err := output.ParseFormat(configShowOutput)
	if err != nil {
		return err
	}
	if format == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}

func runConfigSchema(cmd *cobra.Command, _ []string) error {
	return output.PrintJSON(cmd.OutOrStdout(), config.Schema())
}

// runOnboarding asks for the main settings, starting from the values in c.
func runOnboarding(c *config.Config) error {
	fmt.Println("Welcome to pagetable! Let's set up your configuration.")
	fmt.Println("")

	baseURL, err := (&promptui.Prompt{
		Label:   "Remote list URL",
		Default: c.Remote.BaseURL,
		Validate: func(s string) error {
			u, err := url.Parse(s)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return errors.New("must be an http or https URL")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}
	c.Remote.BaseURL = baseURL

	pageSize, err := (&promptui.Prompt{
		Label:   "Page size",
		Default: strconv.Itoa(c.Remote.PageSize),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 1000 {
				return errors.New("must be an integer between 1 and 1000")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}
	c.Remote.PageSize, _ = strconv.Atoi(pageSize)

	backends := []string{string(kvstore.BackendFile), string(kvstore.BackendBadger), string(kvstore.BackendSQLite), string(kvstore.BackendMemory)}
	_, backend, err := (&promptui.Select{
		Label: "Storage backend",
		Items: backends,
	}).Run()
	if err != nil {
		return err
	}
	c.Store.Backend = backend

	dir, err := (&promptui.Prompt{
		Label:   "Data directory",
		Default: c.DataDir,
	}).Run()
	if err != nil {
		return err
	}
	c.DataDir = dir

	addr, err := (&promptui.Prompt{
		Label:   "HTTP listen address",
		Default: c.Server.HTTP,
	}).Run()
	if err != nil {
		return err
	}
	c.Server.HTTP = addr
	fmt.Println("")
	return nil
}

// isAborted returns true if the user aborted a prompt.
func isAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrEOF)
}
