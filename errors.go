package audiomix

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures of composition operations.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindOpen
	KindGraphBuild
	KindDecode
	KindEncode
	KindAllocation
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown",
	KindOpen:       "open",
	KindGraphBuild: "graph build",
	KindDecode:     "decode",
	KindEncode:     "encode",
	KindAllocation: "allocation",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Default status codes returned for errors without explicit code.
var kindCodes = map[Kind]int{
	KindUnknown:    -1,
	KindOpen:       -2,
	KindGraphBuild: -22,
	KindDecode:     -5,
	KindEncode:     -32,
	KindAllocation: -12,
}

var (
	// ErrNeedMore is returned when graph has no frame ready and upstream
	// needs more input.
	ErrNeedMore = errors.New("need more input")

	// ErrOpen is matched by errors of KindOpen.
	ErrOpen = &Error{Kind: KindOpen}
	// ErrGraphBuild is matched by errors of KindGraphBuild.
	ErrGraphBuild = &Error{Kind: KindGraphBuild}
	// ErrDecode is matched by errors of KindDecode.
	ErrDecode = &Error{Kind: KindDecode}
	// ErrEncode is matched by errors of KindEncode.
	ErrEncode = &Error{Kind: KindEncode}
	// ErrAllocation is matched by errors of KindAllocation.
	ErrAllocation = &Error{Kind: KindAllocation}
)

// Error is a classified failure. Code is passed to callers unchanged when
// it's set.
type Error struct {
	Kind Kind
	Op   string
	Code int
	Err  error
}

// NewError wraps err with kind and operation.
func NewError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches kind sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Code == 0 && t.Kind == e.Kind
}

// Status converts error into integer status: 0 on success, negative value
// otherwise. Explicit codes take precedence over kind defaults.
func Status(err error) int {
	if err == nil {
		return 0
	}
	if c := code(err); c != 0 {
		return c
	}
	var e *Error
	if errors.As(err, &e) {
		return kindCodes[e.Kind]
	}
	return kindCodes[KindUnknown]
}

// code returns the first explicit code found in the error chain.
func code(err error) int {
	switch e := err.(type) {
	case *Error:
		if e.Code != 0 {
			return e.Code
		}
		return code(e.Err)
	case interface{ Unwrap() []error }:
		for _, se := range e.Unwrap() {
			if c := code(se); c != 0 {
				return c
			}
		}
	case interface{ Unwrap() error }:
		return code(e.Unwrap())
	}
	return 0
}

// Errors joins multiple errors that occured during clean up.
type Errors []error

func (e Errors) Error() string {
	s := make([]string, 0, len(e))
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Is checks if any of errors match the target.
func (e Errors) Is(target error) bool {
	for _, se := range e {
		if errors.Is(se, target) {
			return true
		}
	}
	return false
}

// Unwrap returns joined errors.
func (e Errors) Unwrap() []error {
	return e
}

// Ret returns untyped nil if error list is empty.
func (e Errors) Ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
