package audiomix

import (
	"sync"

	"github.com/rs/xid"
)

// UID is a unique identifier of pipeline entities.
type UID string

// NewUID returns new UID value.
func NewUID() UID {
	return UID(xid.New().String())
}

// ID returns string value of unique identifier.
func (u UID) ID() string {
	return string(u)
}

var (
	initOnce  sync.Once
	initFuncs []func()
	initMu    sync.Mutex
)

// Register adds a function executed by Init. It's used by codec and filter
// packages to register themselves. Registering after Init has no effect.
func Register(fn func()) {
	initMu.Lock()
	initFuncs = append(initFuncs, fn)
	initMu.Unlock()
}

// Init runs all registered initializers exactly once. It's safe to call it
// multiple times.
func Init() {
	initOnce.Do(func() {
		initMu.Lock()
		defer initMu.Unlock()
		for _, fn := range initFuncs {
			fn()
		}
	})
}
