package qmps

import "time"

// Job is one clone-and-measure shot.
type Job struct {
	Shot      int
	Fn        func() ([]int, error)
	StartTime time.Time
}

// ShotResult carries the outcome of a Job back to the caller.
type ShotResult struct {
	Shot    int
	Outcome []int
	Err     error
}
