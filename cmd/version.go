/*
Copyright © 2026 Mapforge Labs <oss@mapforge.dev>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/mapforge/stacmeta/internal/ops"
	"github.com/mapforge/stacmeta/pkg/buildinfo"
	"github.com/mapforge/stacmeta/pkg/logger"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("json", false, "Output version information in JSON format")

	if err := ops.RegisterCommand("version", ops.GroupSupport, versionCmd, "Show version information"); err != nil {
		logger.Error("Failed to register version command", logger.Err(err))
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := versionInfo{
		Version:   buildinfo.Version(),
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal version info: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	cmd.Printf("stacmeta %s (%s, %s)\n", info.Version, info.GoVersion, info.Platform)
	return nil
}
