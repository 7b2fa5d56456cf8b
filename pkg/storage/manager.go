// Package storage handles media file persistence under a configured save
// root, with duplicate detection so re-runs never re-fetch saved media.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Manager owns the save directory. Filenames are the derived media names
// (note id, media id, basename); the manager itself is name-agnostic.
type Manager struct {
	saveDir    string
	savedFiles map[string]bool
	mu         sync.RWMutex
}

// NewManager creates a storage manager rooted at saveDir, creating the
// directory if needed and indexing files already present.
func NewManager(saveDir string) (*Manager, error) {
	if err := os.MkdirAll(saveDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}

	manager := &Manager{
		saveDir:    saveDir,
		savedFiles: make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles indexes already-saved media for duplicate detection
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.saveDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			m.savedFiles[entry.Name()] = true
		}
	}

	return nil
}

// IsDownloaded reports whether a file with the given name has already been
// saved. The filesystem is consulted when the in-memory index misses, so
// files saved by earlier processes are also detected.
func (m *Manager) IsDownloaded(filename string) bool {
	m.mu.RLock()
	known := m.savedFiles[filename]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(filepath.Join(m.saveDir, filename)); err == nil {
		m.mu.Lock()
		m.savedFiles[filename] = true
		m.mu.Unlock()
		return true
	}

	return false
}

// Save writes the payload to the destination path atomically: the data goes
// to a temporary file first and is renamed into place only on success.
func (m *Manager) Save(r io.Reader, filename string) error {
	destination := filepath.Join(m.saveDir, filename)
	tempFile := destination + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to save media data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, destination); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.savedFiles[filename] = true
	m.mu.Unlock()

	return nil
}

// SaveDir returns the save directory path
func (m *Manager) SaveDir() string {
	return m.saveDir
}

// SavedCount returns the number of indexed media files
func (m *Manager) SavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.savedFiles)
}
