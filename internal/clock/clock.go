// Package clock abstracts away time.Now so the engine's mtime handling
// can be driven deterministically in tests.
package clock

import "time"

// Clock is the single source of "now" for the engine. Inode mtimes are
// stamped through it so tests never race against the wall clock. There
// is no After/timer surface: every engine operation is synchronous with
// no suspension points (spec §5), so a clock that can only report the
// time, not schedule against it, is all the engine needs.
type Clock interface {
	Now() time.Time
}
