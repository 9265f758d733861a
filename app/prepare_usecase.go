package app

import (
	"github.com/ludo-technologies/covgate/domain"
	servicepkg "github.com/ludo-technologies/covgate/service"
	"go.uber.org/zap"
)

// PrepareRequest describes the agent setup for a test run
type PrepareRequest struct {
	AgentPath string
	ArgsFile  string
	DataFile  string
	Flags     domain.EngineFlags
	Filters   domain.Filters
}

// PrepareResult is what the prepare step produced. ArgLine is empty when
// no agent path is configured.
type PrepareResult struct {
	ArgsFile string
	ArgLine  string
}

// PrepareUseCase writes the coverage agent arguments file and builds the
// JVM argument line that attaches the agent
type PrepareUseCase struct {
	fileHelper *FileHelper
	logger     *zap.Logger
}

// NewPrepareUseCase creates a new prepare use case
func NewPrepareUseCase(logger *zap.Logger) *PrepareUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrepareUseCase{
		fileHelper: NewFileHelper(),
		logger:     logger,
	}
}

// Execute writes the arguments file and returns the argument line
func (uc *PrepareUseCase) Execute(req PrepareRequest) (*PrepareResult, error) {
	if req.ArgsFile == "" {
		return nil, domain.NewInvalidInputError("agent arguments file is not configured", nil)
	}
	if req.DataFile == "" {
		return nil, domain.NewInvalidInputError("coverage data file is not configured", nil)
	}

	compiled, err := servicepkg.CompileFilters(req.Filters)
	if err != nil {
		return nil, err
	}

	dataFile := uc.fileHelper.AbsPath(req.DataFile)
	if err := servicepkg.WriteAgentArgs(req.ArgsFile, dataFile, req.Flags, compiled.ExcludeClasses); err != nil {
		return nil, err
	}

	result := &PrepareResult{ArgsFile: req.ArgsFile}
	if req.AgentPath == "" {
		uc.logger.Warn("Agent path is not configured, no argument line built",
			zap.String("args_file", req.ArgsFile))
		return result, nil
	}

	result.ArgLine = servicepkg.AgentArgLine(uc.fileHelper.AbsPath(req.AgentPath), req.ArgsFile, req.Flags)
	uc.logger.Info("argLine set", zap.String("arg_line", result.ArgLine))
	return result, nil
}
