package store

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/kestrelsearch/kestrel/core/kerrors"
)

// FSDirectory is an os.File-backed Directory implementation rooted at
// a single filesystem path. CreateOutput truncates any existing file;
// Sync calls File.Sync on each named file to force it to stable
// storage, matching the Directory contract's fsync requirement.
type FSDirectory struct {
	root string
}

// NewFSDirectory opens (creating if necessary) a directory rooted at root.
func NewFSDirectory(root string) (*FSDirectory, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, kerrors.NewIOError(err, "mkdir "+root)
	}
	return &FSDirectory{root: root}, nil
}

func (d *FSDirectory) path(name string) string { return filepath.Join(d.root, name) }

func (d *FSDirectory) ListAll() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, kerrors.NewIOError(err, "ReadDir")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *FSDirectory) FileExists(name string) bool {
	_, err := os.Stat(d.path(name))
	return err == nil
}

func (d *FSDirectory) FileLength(name string) (int64, error) {
	fi, err := os.Stat(d.path(name))
	if err != nil {
		return 0, kerrors.NewIOError(err, "Stat "+name)
	}
	return fi.Size(), nil
}

func (d *FSDirectory) FileModified(name string) (int64, error) {
	fi, err := os.Stat(d.path(name))
	if err != nil {
		return 0, kerrors.NewIOError(err, "Stat "+name)
	}
	return fi.ModTime().UnixMilli(), nil
}

type fsRawFile struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func (r *fsRawFile) readAt(p []byte, off int64) (int, error) {
	n, err := r.f.ReadAt(p, off)
	if err != nil && n == 0 {
		return 0, err
	}
	return n, nil
}

func (r *fsRawFile) length() int64 {
	fi, err := r.f.Stat()
	if err != nil {
		return 0
	}
	return fi.Size()
}

func (r *fsRawFile) clone() rawReader {
	f, err := os.Open(r.path)
	if err != nil {
		return r
	}
	return &fsRawFile{f: f, path: r.path}
}

func (r *fsRawFile) close() error { return r.f.Close() }

func (r *fsRawFile) append(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.f.Write(p)
	return err
}

func (d *FSDirectory) CreateOutput(name string) (IndexOutput, error) {
	f, err := os.OpenFile(d.path(name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, kerrors.NewIOError(err, "create "+name)
	}
	return newBufferedIndexOutput(&fsRawFile{f: f, path: d.path(name)}, DefaultBufferSize), nil
}

func (d *FSDirectory) OpenInput(name string, bufferSize int) (IndexInput, error) {
	p := d.path(name)
	f, err := os.Open(p)
	if err != nil {
		return nil, kerrors.NewIOError(err, "open "+name)
	}
	return newBufferedIndexInput(&fsRawFile{f: f, path: p}, bufferSize), nil
}

func (d *FSDirectory) DeleteFile(name string) error {
	err := os.Remove(d.path(name))
	if err != nil && !os.IsNotExist(err) {
		return kerrors.NewIOError(err, "remove "+name)
	}
	return nil
}

func (d *FSDirectory) Rename(oldName, newName string) error {
	if err := os.Rename(d.path(oldName), d.path(newName)); err != nil {
		return kerrors.NewIOError(err, "rename")
	}
	return nil
}

func (d *FSDirectory) Sync(names []string) error {
	for _, name := range names {
		f, err := os.Open(d.path(name))
		if err != nil {
			return kerrors.NewIOError(err, "sync open "+name)
		}
		err = f.Sync()
		closeErr := f.Close()
		if err != nil {
			return kerrors.NewIOError(err, "fsync "+name)
		}
		if closeErr != nil {
			return kerrors.NewIOError(closeErr, "close after fsync "+name)
		}
	}
	return nil
}

func (d *FSDirectory) MakeLock(name string) Lock {
	return &fsLock{path: d.path(name)}
}

func (d *FSDirectory) Close() error { return nil }

// fsLock implements advisory locking via exclusive file creation: a
// second Obtain from a different process fails because O_EXCL refuses
// to create over an existing file.
type fsLock struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func (l *fsLock) Obtain() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return kerrors.NewLockTimeoutError(l.path)
	}
	l.f = f
	return nil
}

func (l *fsLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	_ = l.f.Close()
	err := os.Remove(l.path)
	l.f = nil
	if err != nil && !os.IsNotExist(err) {
		return kerrors.NewIOError(err, "release lock")
	}
	return nil
}

func (l *fsLock) IsLocked() bool {
	_, err := os.Stat(l.path)
	return err == nil
}
