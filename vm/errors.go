package vm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// RuntimeError is raised by the dispatch loop for any condition
// original_source/vm.c's runtimeError() covers: type mismatches,
// division by zero, undefined variables/properties, arity mismatches,
// and stack overflow. Message is the single-line description;
// Backtrace holds one formatted "[line N] in <fn>" entry per call frame
// that was live when the error fired, innermost first, matching
// runtimeError()'s frame-walk.
type RuntimeError struct {
	Message   string
	Backtrace []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, line := range e.Backtrace {
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}

// newRuntimeError builds a RuntimeError from the VM's live frame stack,
// formatted innermost-first the way original_source/vm.c's
// runtimeError() walks vm.frames from frameCount-1 down to 0.
func newRuntimeError(frames []CallFrame, format string, args ...interface{}) *RuntimeError {
	err := &RuntimeError{Message: fmt.Sprintf(format, args...)}
	for i := len(frames) - 1; i >= 0; i-- {
		f := &frames[i]
		name := "<script>"
		if f.Closure.Function.Name != nil {
			name = f.Closure.Function.Name.Value + "()"
		}
		err.Backtrace = append(err.Backtrace, fmt.Sprintf("[line %d] in %s", f.line(), name))
	}
	return err
}

// CompileError is returned by compiler.Compile when one or more
// syntax/semantic errors were recorded during panic-mode recovery.
type CompileError struct {
	Errors []string
}

func (e *CompileError) Error() string {
	return strings.Join(e.Errors, "\n")
}

// WrapIOError is how the driver annotates filesystem/stdio failures
// before reporting them.
func WrapIOError(err error, context string) error {
	return errors.Wrap(err, context)
}
