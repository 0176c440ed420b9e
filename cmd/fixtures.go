/*
Copyright © 2026 Mapforge Labs <oss@mapforge.dev>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mapforge/stacmeta/internal/ops"
	"github.com/mapforge/stacmeta/internal/signing"
	"github.com/mapforge/stacmeta/pkg/config"
	"github.com/mapforge/stacmeta/pkg/logger"
	"github.com/mapforge/stacmeta/pkg/testdata"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// fixturesCmd groups the external test fixture operations
var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Manage external test fixtures",
	Long: `Resolve local test-data paths and fetch external fixtures registered in
the fixture manifest. Fixtures are downloaded on first use and cached under
data-files/external inside the test-data tree.`,
}

var fixturesGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Resolve an external fixture, downloading it when missing",
	Args:  cobra.ExactArgs(1),
	RunE:  runFixturesGet,
}

var fixturesListCmd = &cobra.Command{
	Use:   "list [PATTERN]",
	Short: "List files in the test-data tree matching a glob pattern",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFixturesList,
}

var fixturesPrefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Download every fixture registered in the manifest",
	RunE:  runFixturesPrefetch,
}

func init() {
	fixturesCmd.PersistentFlags().String("data-dir", "", "Test-data root directory (defaults to configuration)")
	fixturesCmd.PersistentFlags().String("manifest", "", "External fixture manifest path (defaults to configuration)")

	fixturesCmd.AddCommand(fixturesGetCmd)
	fixturesCmd.AddCommand(fixturesListCmd)
	fixturesCmd.AddCommand(fixturesPrefetchCmd)

	if err := ops.RegisterCommand("fixtures", ops.GroupSupport, fixturesCmd, "Manage external test fixtures"); err != nil {
		logger.Error("Failed to register fixtures command", logger.Err(err))
	}
}

// stringOverride returns the flag value when set, the fallback otherwise.
func stringOverride(flags *pflag.FlagSet, name, fallback string) string {
	if v, err := flags.GetString(name); err == nil && v != "" {
		return v
	}
	return fallback
}

// newFixtureManager builds a Manager from configuration and flag overrides.
func newFixtureManager(cmd *cobra.Command) (*testdata.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dataDir := stringOverride(cmd.Flags(), "data-dir", cfg.DataDir)
	manifest := stringOverride(cmd.Flags(), "manifest", cfg.Manifest)
	if manifest != "" && !filepath.IsAbs(manifest) {
		manifest = filepath.Join(dataDir, manifest)
	}

	external := map[string]testdata.ExternalEntry{}
	if manifest != "" {
		if _, err := os.Stat(manifest); err == nil {
			external, err = testdata.LoadManifest(manifest)
			if err != nil {
				return nil, err
			}
			logger.Debug("loaded fixture manifest",
				logger.String("path", manifest),
				logger.Int("entries", len(external)))
		}
	}

	return testdata.New(dataDir, external,
		testdata.WithSigner(signing.New(cfg.SignEndpoint)),
	), nil
}

func runFixturesGet(cmd *cobra.Command, args []string) error {
	m, err := newFixtureManager(cmd)
	if err != nil {
		return err
	}

	path, err := m.ExternalPath(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	cmd.Println(path)
	return nil
}

func runFixturesList(cmd *cobra.Command, args []string) error {
	m, err := newFixtureManager(cmd)
	if err != nil {
		return err
	}

	pattern := "**/*"
	if len(args) == 1 {
		pattern = args[0]
	}

	matches, err := m.List(pattern)
	if err != nil {
		return err
	}
	for _, match := range matches {
		cmd.Println(match)
	}
	return nil
}

func runFixturesPrefetch(cmd *cobra.Command, _ []string) error {
	m, err := newFixtureManager(cmd)
	if err != nil {
		return err
	}

	keys := m.Keys()
	if len(keys) == 0 {
		logger.Info("no external fixtures registered")
		return nil
	}

	logger.Info("prefetching external fixtures", logger.Int("count", len(keys)))
	if err := m.Prefetch(cmd.Context()); err != nil {
		return fmt.Errorf("prefetch failed: %w", err)
	}
	return nil
}
