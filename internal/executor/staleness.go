package executor

import (
	"time"

	"github.com/remake-build/remake/internal/fsutil"
	"github.com/remake-build/remake/internal/resolver"
)

// stale decides whether a rule-backed node must run. ran holds the nodes
// whose action already ran (or, in a dry run, would have run) during this
// invocation; a dependency that ran forces the dependent stale regardless
// of mtimes, which closes races on coarse filesystem timestamps.
func stale(n *resolver.Node, ran map[*resolver.Node]bool) bool {
	// Virtual targets have no mtime; their rule runs on every invocation.
	for _, t := range n.Rule.Targets {
		if t.IsVirtual() {
			return true
		}
	}

	for _, d := range n.Deps {
		if ran[d] {
			return true
		}
	}

	// Oldest existing target; any missing target forces a run.
	var oldest time.Time
	for i, t := range n.Rule.Targets {
		mt, ok := fsutil.ModTime(t.Name())
		if !ok {
			return true
		}
		if i == 0 || mt.Before(oldest) {
			oldest = mt
		}
	}

	for _, d := range n.Rule.Deps {
		if d.IsVirtual() {
			// Effective mtime of a virtual dep is newer than any file.
			return true
		}
		if mt, ok := fsutil.ModTime(d.Name()); ok && mt.After(oldest) {
			return true
		}
	}
	return false
}
