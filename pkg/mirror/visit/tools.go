package visit

import (
	"github.com/jamesainslie/mirror/pkg/mirror/copier"
	"github.com/jamesainslie/mirror/pkg/mirror/manifest"
	"github.com/jamesainslie/mirror/pkg/mirror/output"
	"github.com/jamesainslie/mirror/pkg/mirror/walker"
)

// CreateDB populates the manifest from the tree rooted at root. The whole
// walk runs inside one transaction: if the walk fails, the manifest file is
// left at its prior state.
func CreateDB(man *manifest.Manifest, root string, walkOpts walker.Options) (*Stats, error) {
	stats := &Stats{}
	if err := man.Begin(); err != nil {
		return stats, err
	}
	if err := walker.Walk(root, NewPopulate(man, stats), walkOpts); err != nil {
		_ = man.Rollback()
		return stats, err
	}
	return stats, man.Commit()
}

// VerifyDir compares the tree rooted at root against the manifest, emitting
// every divergence through printer.
func VerifyDir(man *manifest.Manifest, root string, printer output.Printer, walkOpts walker.Options) (*Stats, error) {
	stats := &Stats{}
	reporter := NewLogReporter(printer, stats)
	v, err := NewVerify(man, reporter, printer, stats)
	if err != nil {
		return stats, err
	}
	if err := walker.Walk(root, v, walkOpts); err != nil {
		return stats, err
	}
	return stats, v.Finish()
}

// MergeDir compares the destination tree against the manifest and copies
// entries missing from the destination out of the source tree. The manifest
// is read, never written.
func MergeDir(man *manifest.Manifest, src, dest string, printer output.Printer, walkOpts walker.Options, copyOpts copier.Options) (*Stats, error) {
	stats := &Stats{}

	eng, err := copier.New(src, dest, copyOpts)
	if err != nil {
		return stats, err
	}
	defer eng.Close()

	reporter := NewMergeReporter(printer, stats, eng)
	v, err := NewVerify(man, reporter, printer, stats)
	if err != nil {
		return stats, err
	}
	if err := walker.Walk(dest, v, walkOpts); err != nil {
		return stats, err
	}
	return stats, v.Finish()
}
