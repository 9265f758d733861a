package version

import (
	"fmt"
	"runtime"
)

// Build information, set via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// GetVersion returns the current version
func GetVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

// Info is the build information printed by `covgate version`
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the build information of the running binary
func Get() Info {
	return Info{
		Version:   GetVersion(),
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the build information on one line
func (i Info) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s %s)",
		i.Version, i.Commit, i.Date, i.GoVersion, i.Platform)
}
