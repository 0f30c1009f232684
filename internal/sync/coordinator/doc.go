// Package coordinator runs every configured source spec of one fetch run
// concurrently, one goroutine per spec, over a shared progress tracker.
//
// The tracker's total is the sum of all specs' source counts and is
// announced before any unit starts, so observers see the whole run from the
// first update. Each unit gets its own progress.CancelFlag; Cancel raises
// all of them, and units stop before their next source.
//
// A run holds an exclusive lock file in the output root so two runs never
// land files in the same corpus at once. When a status persistence is
// configured, each unit's outcome is saved as a status.RunStatus.
package coordinator
