package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	requestFileName = "verify-request.json"
	resultFileName  = "verify-result.json"
)

// ExecRequest is the request file handed to an external coverage tool
type ExecRequest struct {
	RunID      string                 `json:"runId"`
	ResultFile string                 `json:"resultFile"`
	Artifacts  ExecArtifacts          `json:"artifacts"`
	Flags      domain.EngineFlags     `json:"flags"`
	Filters    domain.CompiledFilters `json:"filters"`
	Rules      []ExecRule             `json:"rules"`
}

// ExecArtifacts locates the coverage data for the external tool
type ExecArtifacts struct {
	DataFile      string `json:"dataFile"`
	ReportFile    string `json:"reportFile,omitempty"`
	SourceMapFile string `json:"sourceMapFile,omitempty"`
}

// ExecRule is one rule of the request
type ExecRule struct {
	ID         int         `json:"id"`
	TargetType string      `json:"targetType"`
	Bounds     []ExecBound `json:"bounds"`
}

// ExecBound is one bound of a rule. Rates are fractions in [0,1].
type ExecBound struct {
	ID        int              `json:"id"`
	Counter   string           `json:"counter"`
	ValueType string           `json:"valueType"`
	Min       *decimal.Decimal `json:"min,omitempty"`
	Max       *decimal.Decimal `json:"max,omitempty"`
}

// ExecResult is the result file written by the external tool. An empty rule
// list means every bound holds.
type ExecResult struct {
	Rules []ExecRuleResult `json:"rules"`
}

// ExecRuleResult holds the breached bounds of one rule
type ExecRuleResult struct {
	ID     int               `json:"id"`
	Bounds []ExecBoundResult `json:"bounds"`
}

// ExecBoundResult maps entity names ("" for the whole scope) to actual values
type ExecBoundResult struct {
	ID  int                        `json:"id"`
	Min map[string]decimal.Decimal `json:"min,omitempty"`
	Max map[string]decimal.Decimal `json:"max,omitempty"`
}

// ExecEngine runs an external coverage tool as
// `<command> <args...> <request file> <result file>`
type ExecEngine struct {
	command string
	args    []string
	workDir string
	timeout time.Duration
	logger  *zap.Logger
}

// NewExecEngine creates an engine around an external command
func NewExecEngine(command string, args []string, workDir string, timeout time.Duration, logger *zap.Logger) *ExecEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecEngine{
		command: command,
		args:    args,
		workDir: workDir,
		timeout: timeout,
		logger:  logger,
	}
}

// Verify writes the request, runs the tool and reads its result
func (e *ExecEngine) Verify(ctx context.Context, req domain.EngineRequest) (*domain.EngineResult, error) {
	dir, err := os.MkdirTemp("", "covgate-"+req.RunID+"-")
	if err != nil {
		return nil, domain.NewEngineError("failed to create work directory", err)
	}
	defer os.RemoveAll(dir)

	requestPath := filepath.Join(dir, requestFileName)
	resultPath := filepath.Join(dir, resultFileName)

	if err := writeJSONFile(requestPath, BuildExecRequest(req, resultPath)); err != nil {
		return nil, domain.NewEngineError("failed to write verification request", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := append(append([]string{}, e.args...), requestPath, resultPath)
	cmd := exec.CommandContext(runCtx, e.command, args...)
	cmd.Dir = e.workDir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := e.logger.With(zap.String("run_id", req.RunID), zap.String("command", e.command))
	log.Debug("Starting coverage engine", zap.Strings("args", args))

	runErr := cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		log.Debug("Coverage engine output", zap.String("stdout", out))
	}
	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewEngineError(fmt.Sprintf("coverage engine timed out after %s", e.timeout), runErr)
		}
		msg := "coverage engine failed"
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			msg = fmt.Sprintf("%s: %s", msg, detail)
		}
		return nil, domain.NewEngineError(msg, runErr)
	}

	data, err := os.ReadFile(resultPath)
	if err != nil {
		return nil, domain.NewEngineError("coverage engine produced no verification result", err)
	}
	return ParseExecResult(data)
}

// BuildExecRequest converts an engine request into the request file layout
func BuildExecRequest(req domain.EngineRequest, resultPath string) ExecRequest {
	rules := make([]ExecRule, 0, len(req.Bounds))
	index := make(map[domain.RuleID]int)

	for _, b := range req.Bounds {
		i, ok := index[b.RuleID]
		if !ok {
			i = len(rules)
			index[b.RuleID] = i
			rules = append(rules, ExecRule{ID: int(b.RuleID), TargetType: string(b.Target)})
		}
		rules[i].Bounds = append(rules[i].Bounds, ExecBound{
			ID:        int(b.BoundID),
			Counter:   string(b.Metric),
			ValueType: b.Aggregation.ValueType(),
			Min:       b.Min,
			Max:       b.Max,
		})
	}

	return ExecRequest{
		RunID:      req.RunID,
		ResultFile: resultPath,
		Artifacts: ExecArtifacts{
			DataFile:      req.Artifacts.DataFile,
			ReportFile:    req.Artifacts.ReportFile,
			SourceMapFile: req.Artifacts.SourceMapFile,
		},
		Flags:   req.Flags,
		Filters: req.Filters,
		Rules:   rules,
	}
}

// ParseExecResult decodes a result file. Ids are not checked here; they are
// correlated with the declared rules when violations are collected.
func ParseExecResult(data []byte) (*domain.EngineResult, error) {
	var raw ExecResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.NewEngineError("failed to parse verification result", err)
	}

	result := &domain.EngineResult{Rules: make(map[domain.RuleID]map[domain.BoundID]domain.BoundBreaches)}
	for _, rule := range raw.Rules {
		if len(rule.Bounds) == 0 {
			continue
		}
		bounds := result.Rules[domain.RuleID(rule.ID)]
		if bounds == nil {
			bounds = make(map[domain.BoundID]domain.BoundBreaches)
			result.Rules[domain.RuleID(rule.ID)] = bounds
		}
		for _, b := range rule.Bounds {
			if len(b.Min) == 0 && len(b.Max) == 0 {
				continue
			}
			// repeated ids are merged so no breach is lost
			existing := bounds[domain.BoundID(b.ID)]
			bounds[domain.BoundID(b.ID)] = domain.BoundBreaches{
				Min: mergeBreaches(existing.Min, b.Min),
				Max: mergeBreaches(existing.Max, b.Max),
			}
		}
		if len(bounds) == 0 {
			delete(result.Rules, domain.RuleID(rule.ID))
		}
	}
	return result, nil
}

func mergeBreaches(dst, src map[string]decimal.Decimal) map[string]decimal.Decimal {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]decimal.Decimal, len(src))
	}
	for entity, value := range src {
		dst[entity] = value
	}
	return dst
}

func writeJSONFile(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
