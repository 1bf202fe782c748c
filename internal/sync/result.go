package sync

import "time"

// PathError records a non-fatal per-path failure during apply.
type PathError struct {
	Path string
	Err  error
}

// Result is the report of one push, pull or sync invocation.
type Result struct {
	RunID     string
	Pushed    int
	Pulled    int
	Conflicts []string
	Failures  []PathError
	CommitID  string
	Bytes     int64
	Timestamp time.Time
}
