// Package release implements scoped acquisition of manually managed
// resources. Release functions are registered right after successful
// allocation and executed in reverse order.
package release

import (
	"github.com/pipelined/audiomix"
)

// Func releases a single resource.
type Func func() error

// Pool is a stack of release functions. Zero value is ready to use.
type Pool struct {
	funcs []Func
}

// Defer registers release function.
func (p *Pool) Defer(fn Func) {
	p.funcs = append(p.funcs, fn)
}

// DeferFunc registers release function that cannot fail.
func (p *Pool) DeferFunc(fn func()) {
	p.Defer(func() error {
		fn()
		return nil
	})
}

// Len returns number of registered functions.
func (p *Pool) Len() int {
	return len(p.funcs)
}

// Release executes all registered functions in reverse order. All
// functions are executed even if some of them fail.
func (p *Pool) Release() error {
	var errs audiomix.Errors
	for i := len(p.funcs) - 1; i >= 0; i-- {
		if err := p.funcs[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.funcs = nil
	return errs.Ret()
}

// ReleaseWith releases the pool and returns err if it's not nil, release
// error otherwise. It's meant to be used in defer with named results:
//
//	defer func() { err = pool.ReleaseWith(err) }()
func (p *Pool) ReleaseWith(err error) error {
	rerr := p.Release()
	if err != nil {
		return err
	}
	return rerr
}
