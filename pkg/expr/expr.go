package expr

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/aretw0/tendril/pkg/domain"
)

// Expr is a compiled guard expression. It is immutable and safe for
// concurrent use.
type Expr struct {
	src      string
	names    []string
	bytecode []byte
}

const (
	statePoolSize    = 16
	localTemplate    = "local %s = select(%d, ...)"
	globalTableName  = "_G"
	globalTableIndex = -2
)

var (
	// ErrCompile wraps syntax errors.
	ErrCompile = errors.New("expression compile error")
	// ErrEval wraps runtime errors raised while evaluating.
	ErrEval = errors.New("expression evaluation error")
)

var sandboxExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

var statePool = make(chan *lua.State, statePoolSize)

// Compile parses src and returns the compiled expression.
func Compile(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrCompile)
	}
	names := freeNames(src)

	locals := make([]string, len(names))
	for i, name := range names {
		locals[i] = fmt.Sprintf(localTemplate, name, i+1)
	}
	// the newline keeps a trailing comment in src from swallowing the paren
	chunk := strings.Join(append(locals, "return ("+src+"\n)"), "\n")

	L := lua.NewState()
	sandbox(L)
	if err := lua.LoadString(L, chunk); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrCompile, src, err)
	}
	var buf bytes.Buffer
	if err := L.Dump(&buf); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrCompile, src, err)
	}
	return &Expr{src: src, names: names, bytecode: buf.Bytes()}, nil
}

// MustCompile is like Compile but panics on error. Intended for package-level
// guards in code.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expr) String() string {
	return e.src
}

// Names returns the state keys the expression reads, in source order.
func (e *Expr) Names() []string {
	return append([]string(nil), e.names...)
}

// Eval evaluates the expression against state.
func (e *Expr) Eval(state *domain.State) (bool, error) {
	L := getState()
	defer putState(L)

	sandbox(L)
	if err := L.Load(bytes.NewReader(e.bytecode), "guard", "b"); err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrEval, e.src, err)
	}
	for _, name := range e.names {
		v, _ := state.Get(name)
		push(L, v)
	}
	if err := L.ProtectedCall(len(e.names), 1, 0); err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrEval, e.src, err)
	}
	return L.ToBoolean(-1), nil
}

func sandbox(L *lua.State) {
	lua.OpenLibraries(L)
	L.Global(globalTableName)
	for _, name := range sandboxExclude {
		L.PushNil()
		L.SetField(globalTableIndex, name)
	}
	L.Pop(1)
}

func getState() *lua.State {
	select {
	case L := <-statePool:
		return L
	default:
		return lua.NewState()
	}
}

func putState(L *lua.State) {
	L.SetTop(0)
	select {
	case statePool <- L:
	default:
	}
}
