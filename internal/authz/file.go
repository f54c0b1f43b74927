package authz

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// PolicyFile is the on-disk TOML form of a FilePolicy:
//
//	keywords = ["manager", "lead"]   # optional; defaults to DefaultKeywords
//	managers = ["U0123ABC"]           # always authorized
//	denied   = ["U0999XYZ"]           # never authorized, even with a matching title
type PolicyFile struct {
	Keywords []string `toml:"keywords"`
	Managers []string `toml:"managers"`
	Denied   []string `toml:"denied"`
}

// LoadPolicyFile decodes a policy file.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	var pf PolicyFile
	if _, err := toml.DecodeFile(path, &pf); err != nil {
		return nil, fmt.Errorf("decode policy %s: %w", path, err)
	}
	return &pf, nil
}

// FilePolicy combines explicit user lists with title keywords, reloading the
// file when it changes on disk.
type FilePolicy struct {
	path   string
	titles TitleLookup
	logger *slog.Logger

	mu     sync.RWMutex
	policy *PolicyFile
}

// NewFilePolicy loads path and returns a policy backed by it.
func NewFilePolicy(path string, titles TitleLookup, logger *slog.Logger) (*FilePolicy, error) {
	pf, err := LoadPolicyFile(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FilePolicy{path: path, titles: titles, logger: logger, policy: pf}, nil
}

func (p *FilePolicy) current() *PolicyFile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.policy
}

func (p *FilePolicy) IsAuthorizedManager(ctx context.Context, userID string) (bool, error) {
	pf := p.current()
	if slices.Contains(pf.Denied, userID) {
		return false, nil
	}
	if slices.Contains(pf.Managers, userID) {
		return true, nil
	}
	tp := TitlePolicy{Titles: p.titles, Keywords: pf.Keywords}
	return tp.IsAuthorizedManager(ctx, userID)
}

// Reload re-reads the policy file. A file that fails to parse leaves the
// previous policy in place.
func (p *FilePolicy) Reload() error {
	pf, err := LoadPolicyFile(p.path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.policy = pf
	p.mu.Unlock()
	return nil
}

// Watch reloads the policy whenever its file is written, until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
func (p *FilePolicy) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	var debounceTimer *time.Timer
	const debounceDelay = 250 * time.Millisecond
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	target := filepath.Clean(p.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				if err := p.Reload(); err != nil {
					p.logger.Warn("policy reload failed, keeping previous policy", "path", p.path, "error", err)
					return
				}
				p.logger.Info("policy reloaded", "path", p.path)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("policy watcher error", "error", err)
		}
	}
}

// WriteExample writes a starter policy file, refusing to overwrite.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(PolicyFile{Keywords: DefaultKeywords})
}
