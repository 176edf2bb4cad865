// Package copier implements the file and subtree copy used by the merge
// tool. All opens and creates are issued relative to directory descriptors
// with O_NOFOLLOW, so a symbolic link planted in either tree cannot redirect
// the copy, and destinations are created with O_EXCL so an entry that
// appeared concurrently is never overwritten.
package copier

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jamesainslie/mirror/pkg/mirror/logging"
	"github.com/jamesainslie/mirror/pkg/mirror/types"
	"github.com/jamesainslie/mirror/pkg/mirror/walker"
)

// logger is the package-level logger for copy operations.
var logger = logging.Get("copier")

// chunkSize is the copy granularity.
const chunkSize = 4096

// Options configures an Engine.
type Options struct {
	// PreserveMTime carries the source modification time (at second
	// precision) onto copied files, so a merged tree round-trips through
	// verification. Disabling it restores the legacy behavior where a
	// merged file reports an mtime mismatch on the next verify.
	PreserveMTime bool

	// Walk configures the traversal used by subtree copies.
	Walk walker.Options
}

// Engine copies entries from a source tree into a destination tree. It owns
// descriptors on both roots for the duration of a merge run.
type Engine struct {
	srcRoot  *os.File
	destRoot *os.File
	srcPath  string
	opts     Options
}

// New opens both roots and returns an engine. Both must be directories.
func New(srcPath, destPath string, opts Options) (*Engine, error) {
	src, err := openDir(srcPath)
	if err != nil {
		return nil, fmt.Errorf("opening source root: %w", err)
	}
	dest, err := openDir(destPath)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("opening destination root: %w", err)
	}
	return &Engine{srcRoot: src, destRoot: dest, srcPath: strings.TrimSuffix(srcPath, "/"), opts: opts}, nil
}

// Close releases the root descriptors.
func (e *Engine) Close() error {
	var first error
	for _, f := range []*os.File{e.srcRoot, e.destRoot} {
		if f != nil {
			if err := f.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	e.srcRoot, e.destRoot = nil, nil
	return first
}

// CopyFile copies the regular file at rel from the source tree into the
// destination tree. The destination's parent directories must already exist.
// Any failure is logged and reported as false; no partial destination is
// cleaned up beyond the failed create itself.
func (e *Engine) CopyFile(rel string) bool {
	dir, name := types.SplitRel(rel)

	srcDir, err := e.openRel(e.srcRoot, dir)
	if err != nil {
		logger.Error("copy failed", "path", rel, "error", err)
		return false
	}
	defer srcDir.Close()

	destDir, err := e.openRel(e.destRoot, dir)
	if err != nil {
		logger.Error("copy failed", "path", rel, "error", err)
		return false
	}
	defer destDir.Close()

	if err := e.copyAt(srcDir, destDir, name); err != nil {
		logger.Error("copy failed", "path", rel, "error", err)
		return false
	}
	logger.Info("copied file", "path", rel)
	return true
}

// CopySubtree copies the directory at rel and everything below it from the
// source tree into the destination tree, driving the shared walker with a
// copying visitor. Failures on individual files are logged and skipped;
// failures creating directories abort the subtree.
func (e *Engine) CopySubtree(rel string) bool {
	// Resolve the subtree root component-wise with O_NOFOLLOW first, so a
	// symlink standing in for the directory is refused rather than walked.
	d, err := e.openRel(e.srcRoot, rel)
	if err != nil {
		logger.Error("subtree copy failed", "path", rel, "error", err)
		return false
	}
	_ = d.Close()

	v := &copyVisitor{eng: e, base: rel}
	defer v.release()

	err = walker.Walk(e.srcPath+"/"+rel, v, e.opts.Walk)
	if err != nil {
		logger.Error("subtree copy failed", "path", rel, "error", err)
		return false
	}
	logger.Info("copied subtree", "path", rel, "files", v.copied)
	return true
}

// copyAt copies src/name into dest/name in fixed-size chunks. Both
// descriptors are closed on every exit path.
func (e *Engine) copyAt(srcDir, destDir *os.File, name string) error {
	sfd, err := unix.Openat(int(srcDir.Fd()), name, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	src := os.NewFile(uintptr(sfd), srcDir.Name()+"/"+name)
	defer src.Close()

	var st unix.Stat_t
	if err := unix.Fstat(sfd, &st); err != nil {
		return fmt.Errorf("fstat source: %w", err)
	}
	return e.copyContent(src, &st, destDir, name)
}

// copyContent streams an open source file into destDir/name.
func (e *Engine) copyContent(src *os.File, st *unix.Stat_t, destDir *os.File, name string) error {
	dfd, err := unix.Openat(int(destDir.Fd()), name,
		unix.O_WRONLY|unix.O_CREAT|unix.O_EXCL|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	dst := os.NewFile(uintptr(dfd), destDir.Name()+"/"+name)

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		_ = dst.Close()
		return fmt.Errorf("copying content: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("closing destination: %w", err)
	}

	if e.opts.PreserveMTime {
		sec := walker.Mtim(st).Sec
		ts := []unix.Timespec{{Sec: sec}, {Sec: sec}}
		if err := unix.UtimesNanoAt(int(destDir.Fd()), name, ts, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			return fmt.Errorf("setting mtime: %w", err)
		}
	} else {
		logger.Debug("mtime not preserved; next verify will report a mismatch", "name", name)
	}
	return nil
}

// openRel resolves a relative directory under root one component at a time,
// each with O_NOFOLLOW. An empty rel yields a duplicate of the root handle
// so the caller can close the result uniformly.
func (e *Engine) openRel(root *os.File, rel string) (*os.File, error) {
	fd, err := unix.Dup(int(root.Fd()))
	if err != nil {
		return nil, fmt.Errorf("dup %q: %w", root.Name(), err)
	}
	cur := os.NewFile(uintptr(fd), root.Name())
	if rel == "" {
		return cur, nil
	}
	for _, comp := range strings.Split(rel, "/") {
		nfd, err := unix.Openat(int(cur.Fd()), comp,
			unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
		name := cur.Name() + "/" + comp
		_ = cur.Close()
		if err != nil {
			return nil, fmt.Errorf("opening %q: %w", name, err)
		}
		cur = os.NewFile(uintptr(nfd), name)
	}
	return cur, nil
}

// copyVisitor mirrors a source subtree into the destination, creating
// directories as they are entered and copying regular files from their
// already-open walk descriptors.
type copyVisitor struct {
	eng    *Engine
	base   string
	stack  []*os.File // destination directory handles, innermost last
	copied int64
}

func (v *copyVisitor) DirEnter(relDir []byte) error {
	if len(v.stack) == 0 {
		// Root of the subtree: create base under its destination parent.
		parentRel, name := types.SplitRel(v.base)
		parent, err := v.eng.openRel(v.eng.destRoot, parentRel)
		if err != nil {
			return err
		}
		defer parent.Close()
		return v.enter(parent, name)
	}
	_, name := types.SplitRel(string(relDir))
	return v.enter(v.stack[len(v.stack)-1], name)
}

// enter creates destination directory name under parent and pushes its
// handle.
func (v *copyVisitor) enter(parent *os.File, name string) error {
	if err := unix.Mkdirat(int(parent.Fd()), name, 0o755); err != nil && err != unix.EEXIST {
		return fmt.Errorf("mkdir %q: %w", parent.Name()+"/"+name, err)
	}
	fd, err := unix.Openat(int(parent.Fd()), name,
		unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("opening %q: %w", parent.Name()+"/"+name, err)
	}
	v.stack = append(v.stack, os.NewFile(uintptr(fd), parent.Name()+"/"+name))
	return nil
}

func (v *copyVisitor) File(e *walker.Entry) (bool, error) {
	if e.IsDir {
		return true, nil
	}
	dest := v.stack[len(v.stack)-1]
	if err := v.eng.copyContent(e.File, &e.Stat, dest, string(e.Name)); err != nil {
		logger.Error("copy failed", "path", e.Rel, "error", err)
		return false, nil
	}
	v.copied++
	return false, nil
}

func (v *copyVisitor) DirLeave(relDir []byte) error {
	top := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return top.Close()
}

// release closes any destination handles left by an aborted walk.
func (v *copyVisitor) release() {
	for i := len(v.stack) - 1; i >= 0; i-- {
		_ = v.stack[i].Close()
	}
	v.stack = nil
}

func openDir(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), strings.TrimSuffix(path, "/")), nil
}
