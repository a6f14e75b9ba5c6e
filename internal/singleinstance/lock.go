// Package singleinstance keeps a second trayhop process from starting while
// one is already running for the same user.
package singleinstance

import "errors"

// ErrAlreadyRunning is returned by TryLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")
