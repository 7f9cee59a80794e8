// Package tracker implements the in-memory block-in-use bitmap of spec
// §4.9: populated as stat/read/write discover blocks in use, consulted
// by the allocator as an optimisation, and cleared on delete. Nothing
// here is persisted — it exists only for the lifetime of one mount.
//
// The mutable state is guarded by a jacobsa/syncutil.InvariantMutex, in
// the style gcsfuse's inode.FileInode uses for its own mutable,
// invariant-checked state.
package tracker

import (
	"fmt"

	"github.com/jacobsa/syncutil"
)

// Stats summarizes the tracker's current view of block usage.
type Stats struct {
	Used  uint64
	Free  uint64
	Total uint64
}

// Tracker is a bit-per-block array plus, optionally, an owner-path
// string per in-use block for the /bloc/ diagnostic view (spec §4.9).
type Tracker struct {
	// Mu guards the fields below. Callers outside this package never
	// take Mu directly; every exported method takes and releases it.
	Mu syncutil.InvariantMutex

	// used and owners are GUARDED_BY(Mu).
	used   []bool
	owners []string

	showBloc bool
}

// New returns a Tracker for a filesystem of totalBlocks blocks, all
// initially free. When showBloc is true, MarkUsed also records the
// owning path for later lookup via Owner.
func New(totalBlocks uint64, showBloc bool) *Tracker {
	t := &Tracker{
		used:     make([]bool, totalBlocks),
		showBloc: showBloc,
	}
	if showBloc {
		t.owners = make([]string, totalBlocks)
	}
	t.Mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

func (t *Tracker) checkInvariants() {
	if t.showBloc && len(t.owners) != len(t.used) {
		panic(fmt.Sprintf("tracker: owners length %d != used length %d", len(t.owners), len(t.used)))
	}
}

// IsUsed reports whether index is currently marked in-use. A false
// result is advisory only — it does not prove the block is actually
// free on disk (spec §4.9); the allocator still performs its own
// path-tag collision check.
func (t *Tracker) IsUsed(index uint64) bool {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if index >= uint64(len(t.used)) {
		return false
	}
	return t.used[index]
}

// MarkUsed sets index in-use, recording owner if show_bloc mode is
// enabled.
func (t *Tracker) MarkUsed(index uint64, owner string) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if index >= uint64(len(t.used)) {
		return
	}
	t.used[index] = true
	if t.showBloc {
		t.owners[index] = owner
	}
}

// MarkFree clears index, used when a block is scrubbed on delete or an
// in-progress allocation is rolled back.
func (t *Tracker) MarkFree(index uint64) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if index >= uint64(len(t.used)) {
		return
	}
	t.used[index] = false
	if t.showBloc {
		t.owners[index] = ""
	}
}

// Owner returns the path recorded for an in-use block under show_bloc
// mode, or ("", false) if unrecorded or show_bloc is disabled.
func (t *Tracker) Owner(index uint64) (string, bool) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if !t.showBloc || index >= uint64(len(t.owners)) || t.owners[index] == "" {
		return "", false
	}
	return t.owners[index], true
}

// Stats summarizes used/free/total block counts.
func (t *Tracker) Stats() Stats {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	var used uint64
	for _, b := range t.used {
		if b {
			used++
		}
	}
	total := uint64(len(t.used))
	return Stats{Used: used, Free: total - used, Total: total}
}
