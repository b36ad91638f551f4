package repository

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// CopyOnWriteTx stages changes to a store directory in a private copy and
// swaps the copy into place on Commit, so readers only ever see a complete
// directory.
type CopyOnWriteTx struct {
	baseDir   string
	tempDir   string
	backupDir string
	done      bool
}

// NewCopyOnWriteTx creates a transaction over baseDir.
func NewCopyOnWriteTx(baseDir string) *CopyOnWriteTx {
	suffix := fmt.Sprintf("%d.%d", os.Getpid(), time.Now().UnixNano())
	return &CopyOnWriteTx{
		baseDir:   baseDir,
		tempDir:   baseDir + ".tmp." + suffix,
		backupDir: baseDir + ".backup." + suffix,
	}
}

// Begin copies baseDir into the staging directory. A missing baseDir starts
// an empty one.
func (tx *CopyOnWriteTx) Begin() error {
	if _, err := os.Stat(tx.baseDir); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(tx.tempDir, 0755); err != nil {
				return fmt.Errorf("create staging directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("stat base directory: %w", err)
	}

	// Real copies, not hard links: a link would let staged writes reach the
	// live directory before Commit.
	if err := copyDir(tx.baseDir, tx.tempDir); err != nil {
		_ = os.RemoveAll(tx.tempDir)
		return fmt.Errorf("copy directory tree: %w", err)
	}
	return nil
}

// WriteFile writes a file inside the staging directory.
func (tx *CopyOnWriteTx) WriteFile(relativePath string, content []byte) error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	fullPath := filepath.Join(tx.tempDir, relativePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Remove deletes a file inside the staging directory.
func (tx *CopyOnWriteTx) Remove(relativePath string) error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	if err := os.Remove(filepath.Join(tx.tempDir, relativePath)); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// ReadFile reads a file from the staging directory.
func (tx *CopyOnWriteTx) ReadFile(relativePath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(tx.tempDir, relativePath))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Commit swaps the staging directory into place.
func (tx *CopyOnWriteTx) Commit() error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}

	_, err := os.Stat(tx.baseDir)
	switch {
	case os.IsNotExist(err):
		if err := os.Rename(tx.tempDir, tx.baseDir); err != nil {
			return fmt.Errorf("commit new directory: %w", err)
		}
	case err != nil:
		return fmt.Errorf("stat base directory: %w", err)
	default:
		if err := os.Rename(tx.baseDir, tx.backupDir); err != nil {
			return fmt.Errorf("backup base directory: %w", err)
		}
		if err := os.Rename(tx.tempDir, tx.baseDir); err != nil {
			if restoreErr := os.Rename(tx.backupDir, tx.baseDir); restoreErr != nil {
				return fmt.Errorf("commit failed and restore failed: commit error: %w, restore error: %v", err, restoreErr)
			}
			return fmt.Errorf("commit base directory (restored): %w", err)
		}
		// A leftover backup does not affect the committed data.
		_ = os.RemoveAll(tx.backupDir)
	}

	tx.done = true
	return nil
}

// Rollback discards the staging directory.
func (tx *CopyOnWriteTx) Rollback() error {
	if tx.done {
		return fmt.Errorf("cannot roll back a finished transaction")
	}
	tx.done = true
	if err := os.RemoveAll(tx.tempDir); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// TempDir returns the staging directory.
func (tx *CopyOnWriteTx) TempDir() string {
	return tx.tempDir
}

func copyDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			err = copyDir(from, to)
		} else {
			err = copyFile(from, to)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy contents: %w", err)
	}
	return out.Close()
}
