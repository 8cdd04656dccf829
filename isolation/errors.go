package isolation

import "errors"

// Sentinel transport errors (spec §7 "Transport errors": queue
// send/receive failure, worker crash, shared-memory allocation
// failure).
var (
	ErrQueueClosed    = errors.New("isolation: queue closed")
	ErrPutTimedOut     = errors.New("isolation: bounded retry put timed out")
	ErrGetTimedOut     = errors.New("isolation: get timed out waiting for worker")
	ErrWorkerFailed    = errors.New("isolation: worker reported a fatal error")
	ErrWorkerExited    = errors.New("isolation: worker process exited unexpectedly")
	ErrShmAlloc        = errors.New("isolation: shared-memory segment allocation failed")
	ErrUnknownWorker   = errors.New("isolation: no worker registered under that name")
	ErrNotReexecInvoke = errors.New("isolation: process was not invoked as a worker re-exec")
)
