package journal

import (
	"fmt"
	"path/filepath"

	"github.com/user/cliprec/pkg/ports"
)

// RecoverResult describes a recovered session.
type RecoverResult struct {
	Journal *Journal
	Missing []string // Journaled segment files that no longer exist
	Removed []string // Unjournaled segment files that were deleted
}

// Recover loads the journal in dir, drops entries whose files are gone and
// deletes segment files the journal does not list. The returned journal
// lists only segments that can be stitched.
func Recover(fs ports.FileSystem, dir string, log ports.Logger) (*RecoverResult, error) {
	log = log.WithComponent("recover")

	j, err := Load(fs, dir)
	if err != nil {
		return nil, err
	}

	res := &RecoverResult{Journal: j}
	known := make(map[string]bool, len(j.Segments))
	kept := j.Segments[:0]
	for _, e := range j.Segments {
		p := filepath.Join(dir, e.File)
		known[p] = true
		ok, err := fs.Exists(p)
		if err != nil {
			return nil, fmt.Errorf("journal: stat %s: %w", p, err)
		}
		if !ok {
			log.Warn("Journaled segment missing: %s", p)
			res.Missing = append(res.Missing, p)
			continue
		}
		kept = append(kept, e)
	}
	j.Segments = kept

	files, err := fs.Glob(filepath.Join(dir, SegmentPattern))
	if err != nil {
		return nil, fmt.Errorf("journal: list segments: %w", err)
	}
	for _, p := range files {
		if known[p] {
			continue
		}
		if err := fs.Remove(p); err != nil {
			return nil, fmt.Errorf("journal: remove %s: %w", p, err)
		}
		log.Info("Removed unfinished segment %s", p)
		res.Removed = append(res.Removed, p)
	}

	log.Info("Recovered session %s: %d segments", j.SessionID, len(j.Segments))
	return res, nil
}
