package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"devsess/internal/logging"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the per-project configuration file, discovered by
// walking up from a start directory the way git finds .git.
const ProjectFileName = ".devsess.yaml"

// Action names the three ways a file rule can land in a session workspace.
const (
	ActionCopy    = "copy"
	ActionSymlink = "symlink"
	ActionEncrypt = "encrypt"
)

// FileRule describes one file carried into each session workspace.
type FileRule struct {
	// Source is the path relative to the project root.
	Source string `yaml:"source"`

	// Target is the destination relative to the session workspace. Empty
	// means same relative path as Source.
	Target string `yaml:"target,omitempty"`

	// Action is copy, symlink, or encrypt. Empty defaults to copy.
	Action string `yaml:"action,omitempty"`
}

// ProjectConfig is the parsed .devsess.yaml. Values set here override the
// user-level Config for sessions of this project.
type ProjectConfig struct {
	// SessionPrefix prefixes session branch names. Empty defaults to "session".
	SessionPrefix string `yaml:"session_prefix,omitempty"`

	// WorkspaceDir overrides the user-level workspace directory.
	WorkspaceDir string `yaml:"workspace_dir,omitempty"`

	// Rules lists the files copied, symlinked, or encrypted into each
	// session workspace.
	Rules []FileRule `yaml:"rules,omitempty"`
}

// Normalized returns a copy with defaults applied to every rule.
func (pc ProjectConfig) Normalized() ProjectConfig {
	out := pc
	if out.SessionPrefix == "" {
		out.SessionPrefix = "session"
	}
	out.Rules = make([]FileRule, len(pc.Rules))
	for i, rule := range pc.Rules {
		if rule.Target == "" {
			rule.Target = rule.Source
		}
		if rule.Action == "" {
			rule.Action = ActionCopy
		}
		out.Rules[i] = rule
	}
	return out
}

// Validate rejects rules with no source or an unknown action before any
// session work starts.
func (pc ProjectConfig) Validate() error {
	for i, rule := range pc.Rules {
		if rule.Source == "" {
			return fmt.Errorf("rule %d: source is required", i)
		}
		switch rule.Action {
		case "", ActionCopy, ActionSymlink, ActionEncrypt:
		default:
			return fmt.Errorf("rule %d: unknown action %q", i, rule.Action)
		}
	}
	return nil
}

// FindProjectFile walks up from startDir looking for a .devsess.yaml. It
// returns the file path and true when found, or the empty string and false
// at the filesystem root.
func FindProjectFile(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}

	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			logging.Debug("Project config found", "path", candidate)
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// LoadProject parses a project config file.
func LoadProject(path string) (*ProjectConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open project config: %w", err)
	}
	defer f.Close()

	var pc ProjectConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&pc); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}

	if err := pc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project config: %w", err)
	}

	normalized := pc.Normalized()
	return &normalized, nil
}

// Effective holds the merged view used to create a session: the user config
// with project overrides applied.
type Effective struct {
	WorkspaceDir  string
	SessionPrefix string
	Rules         []FileRule

	// ProjectRoot is the directory holding the project file, or startDir
	// when no project file exists.
	ProjectRoot string
}

// Resolve merges the user config with the project config discovered from
// startDir. A missing project file yields the user config with no rules,
// which is still a usable session (a bare workspace).
func Resolve(startDir string) (*Effective, error) {
	userCfg, err := Load()
	if err != nil {
		return nil, err
	}

	eff := &Effective{
		WorkspaceDir:  userCfg.WorkspaceDir,
		SessionPrefix: "session",
	}

	path, found := FindProjectFile(startDir)
	if !found {
		abs, err := filepath.Abs(startDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve project root: %w", err)
		}
		eff.ProjectRoot = abs
		return eff, nil
	}

	pc, err := LoadProject(path)
	if err != nil {
		return nil, err
	}

	eff.ProjectRoot = filepath.Dir(path)
	eff.SessionPrefix = pc.SessionPrefix
	eff.Rules = pc.Rules
	if pc.WorkspaceDir != "" {
		eff.WorkspaceDir = pc.WorkspaceDir
	}

	return eff, nil
}

// WriteProject writes a project config next to root. Used by `session init`;
// refuses to clobber an existing file.
func WriteProject(root string, pc ProjectConfig) error {
	if err := pc.Validate(); err != nil {
		return err
	}

	path := filepath.Join(root, ProjectFileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("project config already exists: %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check project config: %w", err)
	}

	data, err := yaml.Marshal(pc)
	if err != nil {
		return fmt.Errorf("failed to encode project config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}
	return nil
}
