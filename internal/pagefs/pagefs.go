// Package pagefs presents a page object as a read-only billy.Filesystem.
//
// Nodes and collection items are directories, queries and plain values are
// files holding their current result. Collections list their items as "0",
// "1", ... and every directory carries a virtual "_scope" file with the
// resolved locator. Actions are not listed.
package pagefs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/pagetree/internal/scope"
	"github.com/agentic-research/pagetree/internal/tree"
)

// ScopeFile is the virtual file holding a directory's locator.
const ScopeFile = "_scope"

var errReadOnly = errors.New("read-only filesystem")

// FS adapts a page object tree to billy.Filesystem. Every read evaluates the
// underlying query against the tree's current test context.
type FS struct {
	ctx     context.Context
	root    *tree.Node
	exclude []string
	created time.Time
}

// Option configures an FS.
type Option func(*FS)

// Exclude hides the named properties in every directory.
func Exclude(names ...string) Option {
	return func(fs *FS) { fs.exclude = append(fs.exclude, names...) }
}

// New returns a filesystem view of root. ctx bounds every query the view runs.
func New(ctx context.Context, root *tree.Node, opts ...Option) *FS {
	fs := &FS{ctx: ctx, root: root, created: time.Now()}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// entry is a resolved path: a directory (node or collection) or a file.
type entry struct {
	node  *tree.Node
	list  *tree.Collection
	owner *tree.Node // file owner
	name  string     // file name
	loc   *scope.Locator
}

func (e entry) isDir() bool { return e.node != nil || e.list != nil }

// --- billy.Basic ---

func (fs *FS) Create(filename string) (billy.File, error) {
	return nil, errReadOnly
}

func (fs *FS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *FS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	filename = cleanPath(filename)
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, errReadOnly
	}

	e, err := fs.resolve(filename)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: filename, Err: err}
	}
	if e.isDir() {
		return nil, &os.PathError{Op: "open", Path: filename, Err: errors.New("is a directory")}
	}
	data, err := fs.content(e)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: filename, Err: err}
	}
	return &bytesFile{name: filename, data: data}, nil
}

func (fs *FS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *FS) Rename(oldpath, newpath string) error {
	return errReadOnly
}

func (fs *FS) Remove(filename string) error {
	return errReadOnly
}

func (fs *FS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *FS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (fs *FS) ReadDir(path string) ([]os.FileInfo, error) {
	path = cleanPath(path)

	e, err := fs.resolve(path)
	if err != nil {
		return nil, &os.PathError{Op: "readdir", Path: path, Err: err}
	}
	if !e.isDir() {
		return nil, &os.PathError{Op: "readdir", Path: path, Err: errors.New("not a directory")}
	}

	names, err := fs.list(e)
	if err != nil {
		return nil, &os.PathError{Op: "readdir", Path: path, Err: err}
	}
	infos := make([]os.FileInfo, 0, len(names))
	for _, name := range names {
		info, err := fs.Lstat(filepath.Join(path, name))
		if err != nil {
			// queries that fail against the current document are not listed
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (fs *FS) MkdirAll(filename string, perm os.FileMode) error {
	return errReadOnly
}

// --- billy.Symlink ---

func (fs *FS) Lstat(filename string) (os.FileInfo, error) {
	filename = cleanPath(filename)

	e, err := fs.resolve(filename)
	if err != nil {
		return nil, &os.PathError{Op: "lstat", Path: filename, Err: err}
	}
	name := filepath.Base(filename)
	if e.isDir() {
		return &staticFileInfo{name: name, mode: os.ModeDir | 0o555, modTime: fs.created}, nil
	}
	data, err := fs.content(e)
	if err != nil {
		return nil, &os.PathError{Op: "lstat", Path: filename, Err: err}
	}
	return &staticFileInfo{name: name, size: int64(len(data)), mode: 0o444, modTime: fs.created}, nil
}

func (fs *FS) Symlink(target, link string) error {
	return billy.ErrNotSupported
}

func (fs *FS) Readlink(link string) (string, error) {
	return "", billy.ErrNotSupported
}

// --- billy.Chroot ---

func (fs *FS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *FS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *FS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// Export copies the whole view into dst under dir.
func (fs *FS) Export(dst billy.Filesystem, dir string) error {
	return fs.export(dst, "/", dir)
}

func (fs *FS) export(dst billy.Filesystem, src, dir string) error {
	if err := dst.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	infos, err := fs.ReadDir(src)
	if err != nil {
		return err
	}
	for _, info := range infos {
		from, to := filepath.Join(src, info.Name()), dst.Join(dir, info.Name())
		if info.IsDir() {
			if err := fs.export(dst, from, to); err != nil {
				return err
			}
			continue
		}
		data, err := util.ReadFile(fs, from)
		if err != nil {
			return err
		}
		if err := util.WriteFile(dst, to, data, 0o644); err != nil {
			return fmt.Errorf("export %s: %w", from, err)
		}
	}
	return nil
}

// --- internals ---

func (fs *FS) resolve(path string) (entry, error) {
	cur := entry{node: fs.root}
	if path == "/" {
		return cur, nil
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, part := range parts {
		if !cur.isDir() {
			return entry{}, os.ErrNotExist
		}
		if part == ScopeFile {
			if i != len(parts)-1 {
				return entry{}, os.ErrNotExist
			}
			loc := locatorOf(cur)
			return entry{loc: &loc}, nil
		}
		next, err := fs.step(cur, part)
		if err != nil {
			return entry{}, err
		}
		cur = next
	}
	return cur, nil
}

func (fs *FS) step(cur entry, part string) (entry, error) {
	if cur.list != nil {
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 || strconv.Itoa(i) != part {
			return entry{}, os.ErrNotExist
		}
		n, err := cur.list.Len(fs.ctx)
		if err != nil {
			return entry{}, err
		}
		if i >= n {
			return entry{}, os.ErrNotExist
		}
		item, err := cur.list.ObjectAt(i)
		if err != nil {
			return entry{}, err
		}
		return entry{node: item}, nil
	}

	n := cur.node
	if slices.Contains(fs.exclude, part) || !slices.Contains(n.Keys(), part) {
		return entry{}, os.ErrNotExist
	}
	if child := n.Child(part); child != nil {
		return entry{node: child}, nil
	}
	if c := n.Collection(part); c != nil {
		return entry{list: c}, nil
	}
	return entry{owner: n, name: part}, nil
}

func (fs *FS) list(e entry) ([]string, error) {
	names := []string{ScopeFile}
	if e.list != nil {
		n, err := e.list.Len(fs.ctx)
		if err != nil {
			return nil, err
		}
		for i := range n {
			names = append(names, strconv.Itoa(i))
		}
		return names, nil
	}
	for _, k := range e.node.Keys() {
		if !slices.Contains(fs.exclude, k) {
			names = append(names, k)
		}
	}
	return names, nil
}

// content renders a file: strings as text, everything else as JSON.
func (fs *FS) content(e entry) ([]byte, error) {
	if e.loc != nil {
		return []byte(e.loc.String() + "\n"), nil
	}
	v, err := e.owner.Value(fs.ctx, e.name)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		return []byte(s + "\n"), nil
	}
	return []byte(oj.JSON(v, &ojg.Options{Sort: true}) + "\n"), nil
}

func locatorOf(e entry) scope.Locator {
	if e.list != nil {
		return e.list.Locator()
	}
	return e.node.Locator()
}

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(path string) string {
	return filepath.Clean("/" + path)
}

// staticFileInfo implements os.FileInfo with static values.
type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() any           { return nil }

var (
	_ billy.Filesystem = (*FS)(nil)
	_ billy.Capable    = (*FS)(nil)
	_ billy.File       = (*bytesFile)(nil)
)
