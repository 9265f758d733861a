package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ludo-technologies/covgate/domain"
)

// Agent system properties carried on the JVM argument line
const (
	propTracing                  = "idea.new.tracing.coverage"
	propLogLevel                 = "idea.coverage.log.level"
	propIgnoreStaticConstructors = "coverage.ignore.private.constructor.util.class"
	propCountHits                = "idea.coverage.calculate.hits"
)

// AgentArgs returns the lines of the agent arguments file: the data file,
// the per-test, unloaded-classes, append and line-only switches, then
// "-exclude" followed by one regex per excluded class when there are any.
func AgentArgs(dataFile string, flags domain.EngineFlags, excludeRegexes []string) []string {
	lines := []string{
		dataFile,
		strconv.FormatBool(flags.TrackPerTest),
		strconv.FormatBool(flags.CalculateForUnloadedClasses),
		strconv.FormatBool(flags.AppendToDataFile),
		strconv.FormatBool(flags.LineOnly),
	}
	if len(excludeRegexes) > 0 {
		lines = append(lines, "-exclude")
		lines = append(lines, excludeRegexes...)
	}
	return lines
}

// WriteAgentArgs writes the agent arguments file, creating its directory
func WriteAgentArgs(path, dataFile string, flags domain.EngineFlags, excludeRegexes []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to create directory for %s", path), err)
	}

	content := strings.Join(AgentArgs(dataFile, flags, excludeRegexes), "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to write agent arguments to %s", path), err)
	}
	return nil
}

// AgentArgLine builds the JVM argument line attaching the coverage agent
func AgentArgLine(agentPath, argsFile string, flags domain.EngineFlags) string {
	parts := []string{
		fmt.Sprintf("-javaagent:%s=%s", agentPath, filepath.Clean(argsFile)),
		systemProperty(propTracing, strconv.FormatBool(flags.Tracing)),
		systemProperty(propLogLevel, flags.LogLevel),
		systemProperty(propIgnoreStaticConstructors, strconv.FormatBool(flags.IgnoreStaticConstructors)),
		systemProperty(propCountHits, strconv.FormatBool(flags.CountHits)),
	}
	return strings.Join(parts, " ")
}

func systemProperty(name, value string) string {
	return "-D" + name + "=" + value
}
