//go:build wispdebug

package runtime

// Debug builds (`-tags wispdebug`) swap in go-deadlock's lock types so a
// hang during development prints the cycle instead of just freezing —
// the pack's own chazu-maggie pulls in sasha-s/go-deadlock for the same
// reason. Production builds use the plain sync types in mutex.go.
import "github.com/sasha-s/go-deadlock"

type rwMutex = deadlock.RWMutex
type mutex = deadlock.Mutex
