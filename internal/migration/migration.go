package migration

import (
	"time"
)

// Migration is a single schema change script discovered on disk.
type Migration struct {
	Name   string
	Script string
}

// Record represents one row of the _migrations bookkeeping table. Rows are
// inserted in the same transaction as their script and never touched again.
type Record struct {
	Name      string    `db:"name"`
	AppliedAt time.Time `db:"applied_at"`
}

// ScriptStatus pairs a known script name with its bookkeeping state for
// status listings. Missing marks a recorded name whose file is gone from the
// scripts directory.
type ScriptStatus struct {
	Name      string
	Applied   bool
	AppliedAt *time.Time
	Missing   bool
}
