package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/giantswarm/stepflow/pkg/logging"
	pkgstrings "github.com/giantswarm/stepflow/pkg/strings"
)

const (
	// CharsPerToken approximates the tokenizer ratio used to turn a token
	// budget into a character budget.
	CharsPerToken = 4

	// DefaultTokenBudget is the token budget of a prompt submitted directly.
	DefaultTokenBudget = 25000

	// DirName is the directory under os.TempDir() holding persisted prompts.
	DirName = "stepflow-prompts"
)

// TruncationNotice is appended to a bounded prompt. The arguments are the
// full length in characters and the path of the full prompt file.
const TruncationNotice = "\n\n[Prompt truncated. The full prompt (%d characters) is at %s. Read that file for the remaining instructions before starting.]"

// Prepared is the outcome of Manager.Prepare.
type Prepared struct {
	// FullPath is the file holding the complete prompt.
	FullPath string
	// Bounded is the text to submit directly to the agent.
	Bounded string
	// Truncated reports whether Bounded is a prefix plus TruncationNotice.
	Truncated bool
	// Length is the full prompt length in characters.
	Length int
}

// Manager persists prompts of AI agent steps and bounds what is submitted.
type Manager struct {
	dir         string
	budgetChars int
	log         *logging.Logger
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// NewManager creates a manager writing into dir with the given token budget.
// An empty dir selects DefaultDir(""); a non-positive budget selects
// DefaultTokenBudget.
func NewManager(dir string, tokenBudget int, log *logging.Logger) *Manager {
	if dir == "" {
		dir = DefaultDir("")
	}
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{
		dir:         dir,
		budgetChars: tokenBudget * CharsPerToken,
		log:         log.With("Prompt"),
	}
}

// DefaultDir returns the per-run prompt directory below the system temp dir,
// which is never inside a workflow's working directory.
func DefaultDir(runID string) string {
	if runID == "" {
		return filepath.Join(os.TempDir(), DirName)
	}
	return filepath.Join(os.TempDir(), DirName, runID)
}

// Dir returns the directory prompts are written to.
func (m *Manager) Dir() string {
	return m.dir
}

// BudgetChars returns the character budget of a bounded prompt.
func (m *Manager) BudgetChars() int {
	return m.budgetChars
}

// Prepare writes the full prompt of stepID to disk and returns the bounded
// version to submit. The file is written before anything is returned, so the
// complete prompt is never lost.
func (m *Manager) Prepare(stepID, prompt string) (*Prepared, error) {
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create prompt directory %s: %w", m.dir, err)
	}

	fullPath := filepath.Join(m.dir, unsafeFileChars.ReplaceAllString(stepID, "_")+".md")
	if err := os.WriteFile(fullPath, []byte(prompt), 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist prompt for step %s: %w", stepID, err)
	}

	prepared := &Prepared{
		FullPath: fullPath,
		Bounded:  prompt,
		Length:   pkgstrings.RuneCount(prompt),
	}

	prefix, cut := pkgstrings.PrefixRunes(prompt, m.budgetChars)
	if cut {
		prepared.Bounded = prefix + fmt.Sprintf(TruncationNotice, prepared.Length, fullPath)
		prepared.Truncated = true
		m.log.Info("Prompt of step %s has %d characters, submitting first %d; full prompt at %s",
			stepID, prepared.Length, m.budgetChars, fullPath)
	} else {
		m.log.Debug("Prompt of step %s (%d characters) persisted to %s", stepID, prepared.Length, fullPath)
	}

	return prepared, nil
}
