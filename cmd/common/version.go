package common

import (
	"fmt"
	"io"
	"runtime"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	ProjectName    = "Trading Bot v5"
	ProjectVersion = "5.0.0"
	ProjectRepo    = "github.com/Cenotaph26/trading-botv5"
)

// Build information, set with -ldflags "-X".
var (
	BuildDate   = "unknown"
	BuildCommit = "dev"
)

// VersionInfo contains version and build information
type VersionInfo struct {
	ProjectName  string `json:"project_name"`
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	BuildCommit  string `json:"build_commit"`
	GoVersion    string `json:"go_version"`
	Architecture string `json:"architecture"`
	Repository   string `json:"repository"`
}

// GetVersionInfo returns complete version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		ProjectName:  ProjectName,
		Version:      ProjectVersion,
		BuildDate:    BuildDate,
		BuildCommit:  BuildCommit,
		GoVersion:    runtime.Version(),
		Architecture: runtime.GOOS + "/" + runtime.GOARCH,
		Repository:   ProjectRepo,
	}
}

// GetFullVersion returns a full version string with build info
func GetFullVersion() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s-%s (%s)", info.Version, info.BuildCommit, info.BuildDate)
}

// PrintDetailedVersion writes the version table to out.
func PrintDetailedVersion(out io.Writer, appName string) {
	info := GetVersionInfo()

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("VERSION INFORMATION")
	t.AppendRows([]table.Row{
		{"Application", appName},
		{"Version", info.Version},
		{"Project", info.ProjectName},
		{"Repository", info.Repository},
		{"Build Date", info.BuildDate},
		{"Build Hash", info.BuildCommit},
		{"Go Version", info.GoVersion},
		{"Platform", info.Architecture},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
