package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "covgate"

	// ConfigFileName is the config file written by `covgate init`
	ConfigFileName = "covgate.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "COVGATE"
)

// ConfigFileNames lists the config file names searched for, in priority order
var ConfigFileNames = []string{
	"covgate.yaml",
	"covgate.yml",
	".covgate.yaml",
	".covgate.yml",
	"covgate.json",
	"covgate.toml",
}

// Exit codes of the verify command
const (
	ExitPassed     = 0
	ExitViolations = 1
	ExitError      = 2
)
