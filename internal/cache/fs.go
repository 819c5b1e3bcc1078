package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// DefaultRoot is the default filesystem cache root
const DefaultRoot = "/tmp/cache"

// ErrDirectoryNotEmpty is reported when a package entry is a directory that
// still has contents
var ErrDirectoryNotEmpty = errors.New("cache entry is a non-empty directory")

// FS invalidates entries stored as files under a root directory
type FS struct {
	fs   afero.Fs
	root string
}

// NewFS creates a filesystem invalidator rooted at root
func NewFS(fsys afero.Fs, root string) *FS {
	if root == "" {
		root = DefaultRoot
	}
	return &FS{fs: fsys, root: filepath.Clean(root)}
}

// NewOsFS creates a filesystem invalidator on the real filesystem
func NewOsFS(root string) *FS {
	return NewFS(afero.NewOsFs(), root)
}

// Root returns the cache root
func (f *FS) Root() string {
	return f.root
}

// Locate implements Invalidator
func (f *FS) Locate(pkg PackageID) Handle {
	return Handle{
		Package:  pkg,
		Backend:  "fs",
		Location: filepath.Join(f.root, filepath.FromSlash(string(pkg))),
	}
}

// Invalidate implements Invalidator. The removal is not recursive: a
// directory that still has contents fails instead of being wiped. A symlink
// entry is unlinked; its target is never inspected or touched.
func (f *FS) Invalidate(ctx context.Context, h Handle) Result {
	if err := ctx.Err(); err != nil {
		return Result{Handle: h, Outcome: Failed, Err: err}
	}

	if fi, err := f.lstat(h.Location); err == nil && fi.IsDir() {
		empty, err := afero.IsEmpty(f.fs, h.Location)
		if err != nil {
			return Result{Handle: h, Outcome: Failed, Err: err}
		}
		if !empty {
			return Result{Handle: h, Outcome: Failed, Err: &fs.PathError{Op: "invalidate", Path: h.Location, Err: ErrDirectoryNotEmpty}}
		}
	}

	err := f.fs.Remove(h.Location)
	switch {
	case err == nil:
		return Result{Handle: h, Outcome: Removed}
	case errors.Is(err, fs.ErrNotExist), os.IsNotExist(err):
		return Result{Handle: h, Outcome: AlreadyAbsent}
	default:
		return Result{Handle: h, Outcome: Failed, Err: err}
	}
}

// lstat does not follow a symlink when the filesystem can tell them apart
func (f *FS) lstat(name string) (os.FileInfo, error) {
	if ls, ok := f.fs.(afero.Lstater); ok {
		fi, _, err := ls.LstatIfPossible(name)
		return fi, err
	}
	return f.fs.Stat(name)
}
