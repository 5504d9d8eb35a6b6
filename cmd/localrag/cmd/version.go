package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dshills/localrag-mcp/internal/storage"
)

// versionInfo describes the running binary.
type versionInfo struct {
	Version       string `json:"version"`
	BuildTime     string `json:"build_time"`
	GoVersion     string `json:"go_version"`
	BuildMode     string `json:"build_mode"`
	SQLiteDriver  string `json:"sqlite_driver"`
	SchemaVersion string `json:"schema_version"`
}

func currentVersion() versionInfo {
	return versionInfo{
		Version:       version,
		BuildTime:     buildTime,
		GoVersion:     runtime.Version(),
		BuildMode:     storage.BuildMode,
		SQLiteDriver:  storage.DriverName,
		SchemaVersion: storage.CurrentSchemaVersion,
	}
}

func newVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := currentVersion()
			out := newPrinter(cmd.OutOrStdout())
			if jsonOutput {
				return out.json(info)
			}

			fmt.Fprintln(out.w, out.render(titleStyle, "localrag "+info.Version))
			fmt.Fprintf(out.w, "Build Time: %s\n", info.BuildTime)
			fmt.Fprintf(out.w, "Go Version: %s\n", info.GoVersion)
			fmt.Fprintf(out.w, "Build Mode: %s\n", info.BuildMode)
			fmt.Fprintf(out.w, "SQLite Driver: %s\n", info.SQLiteDriver)
			fmt.Fprintf(out.w, "Schema Version: %s\n", info.SchemaVersion)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	return cmd
}
