package store

import (
	"errors"
	"time"
)

// ErrNotFound is wrapped into a more specific error by each lookup method.
var ErrNotFound = errors.New("store: not found")

func durationNSToDuration(ns int64) time.Duration { return time.Duration(ns) }
