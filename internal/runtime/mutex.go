//go:build !wispdebug

package runtime

import "sync"

type rwMutex = sync.RWMutex
type mutex = sync.Mutex
