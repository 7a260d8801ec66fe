// Package session orchestrates session workspaces: an isolated git clone of
// the project on a dedicated branch, with the project's file rules applied
// through the secure file operations layer.
//
// Workspaces live inside the project boundary (under the configured
// workspace directory, .devsess/sessions by default), so every path this
// package touches goes through the same validator the rest of the system
// uses. The file operations layer never touches git state; only this package
// does.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"devsess/internal/config"
	"devsess/internal/keystore"
	"devsess/internal/logging"
	"devsess/internal/registry"
	"devsess/pkg/securefs"

	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/google/uuid"
)

// Manager creates, lists, and removes sessions for one project.
type Manager struct {
	eff    *config.Effective
	copier *securefs.FileCopier
	reg    *registry.Registry
	keys   keystore.Store
	logger *logging.AppLogger
}

// NewManager builds a manager for the resolved project configuration. The
// audit sink is handed to the file operations layer; nil disables auditing.
func NewManager(eff *config.Effective, reg *registry.Registry, keys keystore.Store, logger *logging.AppLogger, sink securefs.AuditSink) (*Manager, error) {
	copier, err := securefs.NewFileCopier(eff.ProjectRoot, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to set up file operations for project: %w", err)
	}
	return &Manager{
		eff:    eff,
		copier: copier,
		reg:    reg,
		keys:   keys,
		logger: logger,
	}, nil
}

// Create provisions a new session: a clone of the project repository on a
// dedicated branch, with every configured file rule applied. Generated
// encryption keys go to the keystore; the session is registered on success.
// A failed creation leaves no workspace behind.
func (m *Manager) Create(name string) (*registry.Session, error) {
	if err := validateSessionName(name); err != nil {
		return nil, err
	}

	root := m.copier.Validator().Root()
	if existing, err := m.reg.FindByName(root, name); err == nil {
		return nil, fmt.Errorf("session %q already exists (id %s)", name, existing.ID)
	}

	id := uuid.NewString()
	wsRel := filepath.Join(m.eff.WorkspaceDir, id)

	// Boundary check before anything touches the disk; a workspace dir
	// configured outside the project fails here.
	wsAbs, err := m.copier.Validator().ValidatePath(wsRel, true)
	if err != nil {
		return nil, fmt.Errorf("workspace location rejected: %w", err)
	}

	branch := m.eff.SessionPrefix + "/" + name
	if m.logger != nil {
		m.logger.Info("Creating session", "name", name, "id", id, "workspace", wsAbs, "branch", branch)
	}

	if err := m.provisionWorkspace(wsAbs, branch); err != nil {
		_ = os.RemoveAll(wsAbs)
		return nil, err
	}

	if err := m.applyRules(id, wsRel); err != nil {
		_ = os.RemoveAll(wsAbs)
		return nil, err
	}

	s := &registry.Session{
		ID:          id,
		Name:        name,
		ProjectRoot: root,
		Workspace:   wsAbs,
		Branch:      branch,
		Status:      registry.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.reg.Save(s); err != nil {
		_ = os.RemoveAll(wsAbs)
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	if m.logger != nil {
		m.logger.Info("Session created", "name", name, "id", id)
	}
	return s, nil
}

// provisionWorkspace clones the project into the workspace directory and
// checks out a fresh session branch at the clone's HEAD.
func (m *Manager) provisionWorkspace(wsAbs, branch string) error {
	if err := os.MkdirAll(filepath.Dir(wsAbs), 0o755); err != nil {
		return fmt.Errorf("failed to create workspace parent: %w", err)
	}

	repo, err := git.PlainClone(wsAbs, &git.CloneOptions{
		URL: m.copier.Validator().Root(),
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) || errors.Is(err, transport.ErrRepositoryNotFound) {
			return fmt.Errorf("project root is not a git repository: %s", m.copier.Validator().Root())
		}
		return fmt.Errorf("failed to clone project: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	}); err != nil {
		return fmt.Errorf("failed to create session branch: %w", err)
	}

	return nil
}

// applyRules runs every configured file rule against the new workspace. All
// paths are project-root relative, so the copier's validator covers both
// ends of each operation.
func (m *Manager) applyRules(id, wsRel string) error {
	for _, rule := range m.eff.Rules {
		dst := filepath.Join(wsRel, rule.Target)

		switch rule.Action {
		case config.ActionSymlink:
			if _, err := m.copier.CreateSymlink(rule.Source, dst, true); err != nil {
				return fmt.Errorf("rule %q: %w", rule.Source, err)
			}

		case config.ActionEncrypt:
			opts := securefs.DefaultCopyOptions()
			opts.Encrypt = true
			result, err := m.copier.CopyFile(rule.Source, dst, opts)
			if err != nil {
				return fmt.Errorf("rule %q: %w", rule.Source, err)
			}
			keyName := keystore.SessionKeyName(id, rule.Target)
			if err := m.keys.Put(keyName, result.Key); err != nil {
				return fmt.Errorf("rule %q: failed to store key: %w", rule.Source, err)
			}

		default: // config.ActionCopy
			if _, err := m.copier.CopyFile(rule.Source, dst, securefs.DefaultCopyOptions()); err != nil {
				return fmt.Errorf("rule %q: %w", rule.Source, err)
			}
		}

		if m.logger != nil {
			m.logger.Debug("Applied file rule", "source", rule.Source, "target", rule.Target, "action", rule.Action)
		}
	}
	return nil
}

// List returns the project's active sessions.
func (m *Manager) List() ([]*registry.Session, error) {
	return m.reg.ListByProject(m.copier.Validator().Root())
}

// Get resolves a session by ID first, then by name within this project.
func (m *Manager) Get(idOrName string) (*registry.Session, error) {
	if s, err := m.reg.Load(idOrName); err == nil {
		return s, nil
	}
	return m.reg.FindByName(m.copier.Validator().Root(), idOrName)
}

// Remove deletes a session's workspace, its stored keys, and its registry
// row. The workspace path comes from the registry, so it is re-checked
// against the project boundary before anything is deleted.
func (m *Manager) Remove(idOrName string) error {
	s, err := m.Get(idOrName)
	if err != nil {
		return err
	}

	// A workspace that is already gone still gets its registry row and keys
	// cleaned up.
	if _, statErr := os.Stat(s.Workspace); statErr == nil {
		if !m.copier.Validator().WithinBoundaries(s.Workspace) {
			return fmt.Errorf("refusing to delete workspace outside project boundary: %s", s.Workspace)
		}
		if err := os.RemoveAll(s.Workspace); err != nil {
			return fmt.Errorf("failed to delete workspace: %w", err)
		}
	}

	for _, rule := range m.eff.Rules {
		if rule.Action != config.ActionEncrypt {
			continue
		}
		keyName := keystore.SessionKeyName(s.ID, rule.Target)
		if err := m.keys.Delete(keyName); err != nil && !errors.Is(err, keystore.ErrNotFound) {
			if m.logger != nil {
				m.logger.Warn("Failed to delete session key", "key", keyName, "error", err)
			}
		}
	}

	if err := m.reg.Remove(s.ID); err != nil {
		return err
	}

	if m.logger != nil {
		m.logger.Info("Session removed", "name", s.Name, "id", s.ID)
	}
	return nil
}

// Key returns the stored encryption key for one encrypted file of a session.
func (m *Manager) Key(sessionID, relPath string) (string, error) {
	return m.keys.Get(keystore.SessionKeyName(sessionID, relPath))
}

// validateSessionName keeps names usable as branch suffixes and keystore
// entries.
func validateSessionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\ ") {
		return fmt.Errorf("session name cannot contain spaces or path separators: %q", name)
	}
	return nil
}
