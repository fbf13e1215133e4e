// Package lua provides a hyphenator scripted in Lua.
//
// The script must define a global function `hyphenate(word)` that returns
// a table (array) of 0-based rune offsets at which word may be broken:
//
//	function hyphenate(word)
//	  if word == "table" then return {2} end
//	  return {}
//	end
//
// Scripts run in a sandbox: only the base, table, string and math
// libraries are available and file loading is disabled.
package lua

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultCallTimeout bounds a single hyphenate call.
const DefaultCallTimeout = 100 * time.Millisecond

// FuncName is the global function the script must define.
const FuncName = "hyphenate"

// Errors returned by the Lua hyphenator.
var (
	// ErrClosed indicates the hyphenator has been closed.
	ErrClosed = errors.New("lua hyphenator closed")

	// ErrNoFunction indicates the script does not define hyphenate.
	ErrNoFunction = errors.New("script does not define hyphenate(word)")

	// ErrBadResult indicates hyphenate returned something other than a
	// table of integers.
	ErrBadResult = errors.New("hyphenate must return a table of integers")
)

// Hyphenator runs a Lua hyphenate function.
//
// gopher-lua states are single-threaded; calls are serialized with a mutex.
type Hyphenator struct {
	mu      sync.Mutex
	state   *lua.LState
	fn      *lua.LFunction
	timeout time.Duration
	closed  bool
}

// Option configures a Hyphenator.
type Option func(*Hyphenator)

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(h *Hyphenator) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// New compiles script and returns a hyphenator bound to its hyphenate
// function.
func New(script string, opts ...Option) (*Hyphenator, error) {
	h := &Hyphenator{timeout: DefaultCallTimeout}
	for _, opt := range opts {
		opt(h)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("loading hyphenation script: %w", err)
	}

	fn, ok := L.GetGlobal(FuncName).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, ErrNoFunction
	}

	h.state = L
	h.fn = fn
	return h, nil
}

// Load reads a script from path and compiles it.
func Load(path string, opts ...Option) (*Hyphenator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hyphenation script %s: %w", path, err)
	}
	return New(string(data), opts...)
}

// openSafeLibraries opens the libraries a hyphenation script may use.
func openSafeLibraries(L *lua.LState) {
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Hyphenate calls the script's hyphenate function.
func (h *Hyphenator) Hyphenate(word string) (positions []int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	h.state.SetContext(ctx)
	defer h.state.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	top := h.state.GetTop()
	if err := h.state.CallByParam(lua.P{Fn: h.fn, NRet: 1, Protect: true}, lua.LString(word)); err != nil {
		h.state.SetTop(top)
		return nil, fmt.Errorf("hyphenate(%q): %w", word, err)
	}
	ret := h.state.Get(-1)
	h.state.SetTop(top)

	return toPositions(ret)
}

func toPositions(v lua.LValue) ([]int, error) {
	if v == lua.LNil {
		return nil, nil
	}
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w (got %s)", ErrBadResult, v.Type())
	}

	n := tbl.Len()
	if n == 0 {
		return nil, nil
	}
	out := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		num, ok := tbl.RawGetInt(i).(lua.LNumber)
		if !ok || float64(num) != float64(int(num)) {
			return nil, fmt.Errorf("%w (element %d)", ErrBadResult, i)
		}
		out = append(out, int(num))
	}
	return out, nil
}

// Close releases the Lua state. It is safe to call more than once.
func (h *Hyphenator) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.state.Close()
}
