/*
Copyright © 2026 Mapforge Labs <oss@mapforge.dev>
*/
package cmd

import (
	"os"
	"sync"

	"github.com/mapforge/stacmeta/internal/ops"
	"github.com/mapforge/stacmeta/pkg/buildinfo"
	"github.com/mapforge/stacmeta/pkg/exitcode"
	"github.com/mapforge/stacmeta/pkg/logger"
	"github.com/spf13/cobra"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stacmeta",
		Short: "Support tooling for STAC metadata projects",
		Long: `Stacmeta bundles the support utilities used across our STAC metadata
tooling: test fixture management and the shared entry point that dataset
plugins attach their create commands to.

Examples:
   stacmeta fixtures get scene.tif   # Resolve (and fetch) an external fixture
   stacmeta fixtures prefetch        # Fetch everything the manifest registers
   stacmeta version                  # Show version`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	// Add global flags
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Use verbose mode")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Use quiet mode (errors only)")
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Wire Cobra's built-in --version using the binary version
	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("stacmeta {{.Version}}\n")

	// Grouped help rendered from the command registry
	cmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		reg := ops.GetRegistry()
		cmd.Println(cmd.Long)
		cmd.Println()
		cmd.Println("Create Commands (contributed by dataset plugins):")
		for _, c := range reg.GetCommandsByGroup(ops.GroupCreate) {
			cmd.Printf("  %-12s %s\n", c.Name, c.Description)
		}
		cmd.Println()
		cmd.Println("Support Commands:")
		for _, c := range reg.GetCommandsByGroup(ops.GroupSupport) {
			cmd.Printf("  %-12s %s\n", c.Name, c.Description)
		}
		cmd.Println()
		cmd.Println("Flags:")
		cmd.Print(cmd.UsageString())
	})

	return cmd
}

// assembleSubcommands attaches every registered command to the root. The
// registry is the single source of subcommands; dataset plugins contribute
// theirs by registering from init().
func assembleSubcommands(cmd *cobra.Command) {
	for _, reg := range ops.GetRegistry().GetAllCommands() {
		cmd.AddCommand(reg.Command)
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

var assembleOnce sync.Once

// Execute assembles the registered subcommands onto the root command and
// runs it. This is called by main.main().
func Execute() {
	assembleOnce.Do(func() { assembleSubcommands(rootCmd) })
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitcode.GeneralError)
	}
}

// initializeLogger sets up the logger based on command flags. Verbosity flags
// take precedence over --log-level; quiet wins over verbose.
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")
	// Read log format from the root flag set: subcommands may define their
	// own --json for output formatting and must not flip the log format.
	jsonLogs, _ := cmd.Root().PersistentFlags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	logLevel := logger.ParseLevel(logLevelStr)
	if verbose {
		logLevel = logger.DebugLevel
	}
	if quiet {
		logLevel = logger.ErrorLevel
	}

	config := logger.Config{
		Level:     logLevel,
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "stacmeta",
	}

	if err := logger.Initialize(config); err != nil {
		if _, writeErr := os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n"); writeErr != nil {
			_ = writeErr
		}
		os.Exit(exitcode.ConfigError)
	}
}
