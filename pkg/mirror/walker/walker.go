// Package walker implements the depth-first directory traversal shared by
// the mirror tools. The traversal is iterative with an explicit frame stack,
// so adversarial-depth trees cannot exhaust the call stack, and every
// descent is opened relative to its parent descriptor with O_NOFOLLOW, so a
// symbolic link introduced mid-tree cannot route the walk outside the root.
package walker

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jamesainslie/mirror/pkg/mirror/logging"
)

// logger is the package-level logger for walk events.
var logger = logging.Get("walker")

// ErrAccessDenied marks permission failures surfaced by the walk.
var ErrAccessDenied = errors.New("access denied")

// Policy selects the behavior when a descent hits a permission failure.
// Access denied on the walk root is always fatal.
type Policy int

const (
	// PolicySkip logs the subtree and continues.
	PolicySkip Policy = iota
	// PolicyFail aborts the walk.
	PolicyFail
)

// ParsePolicy parses "skip" or "fail".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "skip":
		return PolicySkip, nil
	case "fail":
		return PolicyFail, nil
	default:
		return PolicySkip, fmt.Errorf("invalid access-denied policy %q", s)
	}
}

// Options configures a walk.
type Options struct {
	// OnAccessDenied selects the mid-walk permission failure behavior.
	OnAccessDenied Policy
}

// frame is one level of the explicit traversal stack. It owns the directory
// handle; releasing a frame closes the handle.
type frame struct {
	f       *os.File
	names   []string
	next    int
	nameLen int // length of this directory's "/name" suffix in the path buffer
}

type walk struct {
	buf    []byte // growing path buffer; '/'-separated
	relOff int    // byte index where the root-relative portion begins
	stack  []frame
	cur    frame
	opts   Options
	v      Visitor
}

// Walk traverses the tree rooted at root, emitting events to v. The root's
// trailing separator is stripped before the walk begins. I/O errors inside
// the walk propagate to the caller after all pending descriptors have been
// released; the walker never retries.
func Walk(root string, v Visitor, opts Options) error {
	for len(root) > 1 && strings.HasSuffix(root, "/") {
		root = root[:len(root)-1]
	}

	// The user-supplied root may itself be a symlink; O_NOFOLLOW guards
	// every descent below it.
	fd, err := unix.Open(root, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		if err == unix.EACCES {
			return fmt.Errorf("%w: opening root %q", ErrAccessDenied, root)
		}
		return fmt.Errorf("opening root %q: %w", root, err)
	}
	rootFile := os.NewFile(uintptr(fd), root)

	w := &walk{
		buf:    []byte(root),
		relOff: len(root) + 1,
		opts:   opts,
		v:      v,
	}
	w.cur = frame{f: rootFile}
	defer w.releaseAll()

	names, err := readNames(rootFile)
	if err != nil {
		return fmt.Errorf("reading root %q: %w", root, err)
	}
	w.cur.names = names

	if err := v.DirEnter(w.relPath()); err != nil {
		return err
	}
	return w.run()
}

// run drives the traversal loop over the explicit stack.
func (w *walk) run() error {
	for {
		if w.cur.next < len(w.cur.names) {
			name := w.cur.names[w.cur.next]
			w.cur.next++
			if name == "." || name == ".." {
				continue
			}
			if err := w.entry(name); err != nil {
				return err
			}
			continue
		}

		// Directory exhausted.
		if err := w.v.DirLeave(w.relPath()); err != nil {
			return err
		}
		if err := w.cur.f.Close(); err != nil {
			return fmt.Errorf("closing %q: %w", w.buf, err)
		}
		w.cur.f = nil
		w.buf = w.buf[:len(w.buf)-w.cur.nameLen]

		if len(w.stack) == 0 {
			return nil
		}
		w.cur = w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
	}
}

// entry processes one directory entry of the current frame.
func (w *walk) entry(name string) error {
	dirFD := int(w.cur.f.Fd())

	var st unix.Stat_t
	if err := unix.Fstatat(dirFD, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return w.entryError("stat", name, err)
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return w.regularFile(name)
	case unix.S_IFDIR:
		return w.directory(name, st)
	default:
		logger.Debug("skipping entry that is neither a regular file nor a directory",
			"path", w.entryPath(name))
		return nil
	}
}

// regularFile opens the entry, re-stats it through its own descriptor and
// hands it to the visitor. The descriptor is closed on every path.
func (w *walk) regularFile(name string) error {
	dirFD := int(w.cur.f.Fd())
	fd, err := unix.Openat(dirFD, name, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return w.entryError("open", name, err)
	}
	f := os.NewFile(uintptr(fd), w.entryPath(name))

	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		_ = f.Close()
		return fmt.Errorf("fstat %q: %w", f.Name(), err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		// The entry changed type between stat and open.
		logger.Debug("entry is no longer a regular file, skipping", "path", f.Name())
		return f.Close()
	}

	w.pushName(name)
	e := w.makeEntry(name, false, st, f)
	_, verr := w.v.File(e)
	w.popName(name)
	if cerr := f.Close(); verr == nil && cerr != nil {
		return fmt.Errorf("closing %q: %w", e.Rel, cerr)
	}
	return verr
}

// directory opens the entry with O_DIRECTORY|O_NOFOLLOW, offers it to the
// visitor, and descends when requested by pushing the current frame.
//
// An unreadable directory under the skip policy is still offered to the
// visitor, with a nil handle and the parent-relative stat, so that a
// present-but-locked subtree is not mistaken for a missing one; only the
// descent is skipped.
func (w *walk) directory(name string, st unix.Stat_t) error {
	dirFD := int(w.cur.f.Fd())
	fd, err := unix.Openat(dirFD, name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		if err == unix.EACCES && w.opts.OnAccessDenied == PolicySkip {
			logger.Warn("no access, skipping subtree", "path", w.entryPath(name))
			w.pushName(name)
			e := w.makeEntry(name, true, st, nil)
			_, verr := w.v.File(e)
			w.popName(name)
			return verr
		}
		return w.entryError("open", name, err)
	}
	f := os.NewFile(uintptr(fd), w.entryPath(name))

	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		_ = f.Close()
		return fmt.Errorf("fstat %q: %w", f.Name(), err)
	}

	w.pushName(name)
	e := w.makeEntry(name, true, st, f)
	descend, verr := w.v.File(e)
	if verr != nil {
		w.popName(name)
		_ = f.Close()
		return verr
	}
	if !descend {
		w.popName(name)
		return f.Close()
	}

	names, err := readNames(f)
	if err != nil {
		w.popName(name)
		_ = f.Close()
		return fmt.Errorf("reading %q: %w", f.Name(), err)
	}

	w.stack = append(w.stack, w.cur)
	w.cur = frame{f: f, names: names, nameLen: len(name) + 1}
	return w.v.DirEnter(w.relPath())
}

// entryError applies the access-denied policy to a failed stat or open.
// Entries that vanished between readdir and stat are skipped silently.
func (w *walk) entryError(op, name string, err error) error {
	path := w.entryPath(name)
	switch err {
	case unix.ENOENT:
		logger.Debug("entry vanished during walk", "path", path)
		return nil
	case unix.ELOOP, unix.ENOTDIR:
		// A symlink raced in under this name; never follow it.
		logger.Debug("entry is no longer walkable, skipping", "path", path)
		return nil
	case unix.EACCES:
		if w.opts.OnAccessDenied == PolicySkip {
			logger.Warn("no access, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("%w: %s %q", ErrAccessDenied, op, path)
	default:
		return fmt.Errorf("%s %q: %w", op, path, err)
	}
}

// makeEntry builds the Entry views over the path buffer. Must be called with
// the entry name pushed.
func (w *walk) makeEntry(name string, isDir bool, st unix.Stat_t, f *os.File) *Entry {
	rel := w.relPath()
	relDir := rel[:max(0, len(rel)-len(name)-1)]
	return &Entry{
		RelDir: relDir,
		Name:   rel[len(rel)-len(name):],
		Rel:    rel,
		IsDir:  isDir,
		Stat:   st,
		File:   f,
	}
}

// relPath returns the root-relative view of the path buffer; empty at the
// root.
func (w *walk) relPath() []byte {
	if len(w.buf) < w.relOff {
		return w.buf[len(w.buf):]
	}
	return w.buf[w.relOff:]
}

func (w *walk) entryPath(name string) string {
	return string(w.buf) + "/" + name
}

func (w *walk) pushName(name string) {
	w.buf = append(w.buf, '/')
	w.buf = append(w.buf, name...)
}

func (w *walk) popName(name string) {
	w.buf = w.buf[:len(w.buf)-len(name)-1]
}

// releaseAll closes every descriptor still owned by the stack. It backs the
// guarantee that an error unwind leaks nothing.
func (w *walk) releaseAll() {
	if w.cur.f != nil {
		_ = w.cur.f.Close()
		w.cur.f = nil
	}
	for i := len(w.stack) - 1; i >= 0; i-- {
		if w.stack[i].f != nil {
			_ = w.stack[i].f.Close()
		}
	}
	w.stack = nil
}

// readNames drains a directory stream. "." and ".." never appear in the
// result on the platforms we support, but the traversal loop still guards
// against them.
func readNames(f *os.File) ([]string, error) {
	return f.Readdirnames(0)
}
