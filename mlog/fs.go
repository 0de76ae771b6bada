package mlog

import (
	"io"
	"os"
	"path/filepath"
)

type (
	// Dir is the directory snapshots and the operation log live in. It only
	// exposes the handful of operations checkpoint and recovery need.
	Dir interface {
		Path() string
		CreateFile(name string) (File, error)
		AppendFile(name string) (File, error)
		OpenFile(name string) (File, error)
		List() ([]string, error)
		Rename(oldName, newName string) error
		Remove(name string) error
		Truncate(name string, size int64) error
		Exists(name string) (bool, error)
	}
	File interface {
		io.Reader
		io.Writer
		Sync() error
		Close() error
	}
)

type posixDir struct {
	path string
}

// OpenDir opens path as the log directory, creating it if absent.
func OpenDir(path string) (Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &posixDir{path: path}, nil
}

func (d *posixDir) Path() string {
	return d.path
}

// CreateFile creates name for writing, truncating an existing file.
func (d *posixDir) CreateFile(name string) (File, error) {
	return os.OpenFile(filepath.Join(d.path, name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
}

// AppendFile opens name for appending, creating it if absent.
func (d *posixDir) AppendFile(name string) (File, error) {
	return os.OpenFile(filepath.Join(d.path, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func (d *posixDir) OpenFile(name string) (File, error) {
	return os.OpenFile(filepath.Join(d.path, name), os.O_RDONLY, 0o644)
}

func (d *posixDir) List() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}

	ret := make([]string, len(entries))
	for i := range entries {
		ret[i] = entries[i].Name()
	}

	return ret, nil
}

// Rename replaces newName with oldName atomically and syncs the directory so
// the swap survives a crash.
func (d *posixDir) Rename(oldName, newName string) error {
	if err := os.Rename(filepath.Join(d.path, oldName), filepath.Join(d.path, newName)); err != nil {
		return err
	}
	return d.syncDir()
}

func (d *posixDir) Remove(name string) error {
	return os.Remove(filepath.Join(d.path, name))
}

// Truncate cuts name down to size bytes.
func (d *posixDir) Truncate(name string, size int64) error {
	return os.Truncate(filepath.Join(d.path, name), size)
}

func (d *posixDir) Exists(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(d.path, name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (d *posixDir) syncDir() error {
	f, err := os.Open(d.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
