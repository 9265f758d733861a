package app

import (
	"context"
	"fmt"

	"github.com/ludo-technologies/covgate/domain"
	servicepkg "github.com/ludo-technologies/covgate/service"
	"go.uber.org/zap"
)

// Skip reasons reported in VerifyResult.SkipReason
const (
	SkipReasonConfigured = "verification is disabled by configuration"
	SkipReasonNoData     = "no coverage data file found"
)

// VerifyUseCase orchestrates the coverage verification workflow
type VerifyUseCase struct {
	validator  domain.RuleValidator
	service    domain.VerificationService
	formatter  domain.VerifyResultFormatter
	fileHelper *FileHelper
	logger     *zap.Logger
}

// Execute runs one verification. Violations are reported through the result;
// the error is reserved for configuration, engine and output failures.
func (uc *VerifyUseCase) Execute(ctx context.Context, req domain.VerifyRequest) (*domain.VerifyResult, error) {
	if req.Skip {
		uc.logger.Info("Coverage verification is skipped")
		return uc.skipped(req, SkipReasonConfigured)
	}

	exists, err := uc.fileHelper.FileExists(req.Artifacts.DataFile)
	if err != nil {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("cannot access coverage data file %s", req.Artifacts.DataFile), err)
	}
	if req.Artifacts.DataFile == "" || !exists {
		uc.logger.Info("Coverage verification is skipped", zap.String("reason", SkipReasonNoData),
			zap.String("data_file", req.Artifacts.DataFile))
		return uc.skipped(req, SkipReasonNoData)
	}

	rules, err := uc.validator.Validate(req.Rules)
	if err != nil {
		return nil, err
	}

	result, err := uc.service.Verify(ctx, rules, req.Filters, req.Artifacts, req.Flags)
	if err != nil {
		return nil, err
	}

	if result.Passed {
		uc.logger.Info(servicepkg.PassMessage, zap.Int("rules", result.Summary.RulesChecked))
	} else {
		uc.logger.Warn(servicepkg.FailMessage,
			zap.String("run_id", result.RunID),
			zap.Int("rules_violated", result.Summary.RulesViolated),
			zap.Int("violations", result.Summary.TotalViolations),
			zap.String("report", result.Report))
	}

	if err := uc.writeOutput(req, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *VerifyUseCase) skipped(req domain.VerifyRequest, reason string) (*domain.VerifyResult, error) {
	result := &domain.VerifyResult{
		Passed:     true,
		Skipped:    true,
		SkipReason: reason,
		Violations: []domain.RuleViolations{},
	}
	if err := uc.writeOutput(req, result); err != nil {
		return nil, err
	}
	return result, nil
}

// writeOutput renders the result. Text output of a passing run is only
// written in verbose mode since the log already carries the outcome.
func (uc *VerifyUseCase) writeOutput(req domain.VerifyRequest, result *domain.VerifyResult) error {
	if req.OutputWriter == nil {
		return nil
	}
	format := req.OutputFormat
	if format == "" {
		format = domain.OutputFormatText
	}
	if format == domain.OutputFormatText && result.Passed && !req.Verbose {
		return nil
	}
	if err := uc.formatter.Write(result, format, req.OutputWriter); err != nil {
		return domain.NewOutputError("failed to write verification result", err)
	}
	return nil
}

// VerifyUseCaseBuilder provides a builder pattern for creating VerifyUseCase
type VerifyUseCaseBuilder struct {
	validator  domain.RuleValidator
	service    domain.VerificationService
	formatter  domain.VerifyResultFormatter
	fileHelper *FileHelper
	logger     *zap.Logger
}

// NewVerifyUseCaseBuilder creates a new builder
func NewVerifyUseCaseBuilder() *VerifyUseCaseBuilder {
	return &VerifyUseCaseBuilder{}
}

// WithValidator sets the rule validator
func (b *VerifyUseCaseBuilder) WithValidator(validator domain.RuleValidator) *VerifyUseCaseBuilder {
	b.validator = validator
	return b
}

// WithService sets the verification service
func (b *VerifyUseCaseBuilder) WithService(service domain.VerificationService) *VerifyUseCaseBuilder {
	b.service = service
	return b
}

// WithFormatter sets the output formatter
func (b *VerifyUseCaseBuilder) WithFormatter(formatter domain.VerifyResultFormatter) *VerifyUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithFileHelper sets the file helper
func (b *VerifyUseCaseBuilder) WithFileHelper(fileHelper *FileHelper) *VerifyUseCaseBuilder {
	b.fileHelper = fileHelper
	return b
}

// WithLogger sets the logger
func (b *VerifyUseCaseBuilder) WithLogger(logger *zap.Logger) *VerifyUseCaseBuilder {
	b.logger = logger
	return b
}

// Build creates the VerifyUseCase with the configured dependencies
func (b *VerifyUseCaseBuilder) Build() (*VerifyUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("verification service is required")
	}

	uc := &VerifyUseCase{
		validator:  b.validator,
		service:    b.service,
		formatter:  b.formatter,
		fileHelper: b.fileHelper,
		logger:     b.logger,
	}

	if uc.validator == nil {
		uc.validator = servicepkg.NewRuleValidator()
	}
	if uc.formatter == nil {
		uc.formatter = servicepkg.NewOutputFormatter()
	}
	if uc.fileHelper == nil {
		uc.fileHelper = NewFileHelper()
	}
	if uc.logger == nil {
		uc.logger = zap.NewNop()
	}

	return uc, nil
}
