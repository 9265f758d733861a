package service

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ludo-technologies/covgate/domain"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// ciEnvVars are set by common CI systems
var ciEnvVars = []string{"CI", "CONTINUOUS_INTEGRATION", "BUILD_NUMBER", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TF_BUILD"}

// IsInteractiveEnvironment reports whether stderr is a terminal outside CI
func IsInteractiveEnvironment() bool {
	for _, name := range ciEnvVars {
		if os.Getenv(name) != "" {
			return false
		}
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

var boundsTheme = progressbar.Theme{
	Saucer:        "=",
	SaucerHead:    ">",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// NewProgressManager draws bound evaluation progress on stderr when enabled
// in an interactive terminal. Otherwise progress is discarded.
func NewProgressManager(enabled bool) domain.ProgressManager {
	if enabled && IsInteractiveEnvironment() {
		return NewBarProgress(os.Stderr)
	}
	return DiscardProgress{}
}

// BarProgress draws one progress bar per started task on its writer
type BarProgress struct {
	mu     sync.Mutex
	writer io.Writer
	bars   []*progressbar.ProgressBar
}

// NewBarProgress draws on w regardless of the environment
func NewBarProgress(w io.Writer) *BarProgress {
	return &BarProgress{writer: w}
}

// StartTask opens a bar with total steps
func (p *BarProgress) StartTask(description string, total int) domain.TaskProgress {
	w := p.writer
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(boundsTheme),
		progressbar.OptionSetWidth(24),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)

	p.mu.Lock()
	p.bars = append(p.bars, bar)
	p.mu.Unlock()
	return barTask{bar: bar}
}

// IsInteractive is always true; the environment was checked on construction
func (p *BarProgress) IsInteractive() bool {
	return true
}

// Close finishes every bar still open
func (p *BarProgress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bar := range p.bars {
		if !bar.IsFinished() {
			_ = bar.Finish()
		}
	}
	p.bars = nil
}

type barTask struct {
	bar *progressbar.ProgressBar
}

func (t barTask) Increment(n int) { _ = t.bar.Add(n) }

func (t barTask) Describe(description string) { t.bar.Describe(description) }

func (t barTask) Complete() {
	if !t.bar.IsFinished() {
		_ = t.bar.Finish()
	}
}

// DiscardProgress drops all progress. It serves as both manager and task.
type DiscardProgress struct{}

func (DiscardProgress) StartTask(string, int) domain.TaskProgress { return DiscardProgress{} }
func (DiscardProgress) IsInteractive() bool                       { return false }
func (DiscardProgress) Close()                                    {}
func (DiscardProgress) Increment(int)                             {}
func (DiscardProgress) Describe(string)                           {}
func (DiscardProgress) Complete()                                 {}
