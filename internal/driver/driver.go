// Package driver wires the scanner/compiler/VM pipeline into a runnable
// command: run a source file, or fall into an interactive prompt when
// no file is given. Grounded on abdielwilsn-pidgin-lang/main.go's
// runFile/startREPL split, rebuilt around github.com/mna/mainer's Stdio
// so the whole thing is testable against in-memory readers/writers
// instead of the real console, the way mna-nenuphar/internal/maincmd
// threads mainer.Stdio through its commands.
package driver

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mna/mainer"

	"ember/compiler"
	"ember/internal/config"
	"ember/vm"
)

// Exit codes, spec.md §6's driver contract.
const (
	ExitOK           = 0
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

const prompt = "> "

// Run is the single entry point main.go calls: args is the program's
// argument list with argv[0] stripped. With no arguments it starts the
// REPL; with one argument it runs that file; anything else is a usage
// error reported to stderr.
func Run(args []string, stdio mainer.Stdio, cfgPath string) int {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, vm.WrapIOError(err, "loading config"))
		return ExitIOError
	}

	switch len(args) {
	case 0:
		return repl(stdio, cfg)
	case 1:
		return runFile(args[0], stdio, cfg)
	default:
		fmt.Fprintln(stdio.Stderr, "usage: ember [script]")
		return ExitIOError
	}
}

func newVM(stdio mainer.Stdio, cfg config.Config) *vm.VM {
	return vm.NewWithLimits(stdio.Stdout, cfg.MaxFrames, cfg.MaxStack)
}

func runFile(path string, stdio mainer.Stdio, cfg config.Config) int {
	source, err := readSource(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, vm.WrapIOError(err, "reading "+path))
		return ExitIOError
	}
	return interpret(source, newVM(stdio, cfg), stdio)
}

// repl reads one line (or, when a block is left open, several lines
// joined together) at a time and interprets it immediately, printing
// the `> ` prompt only when stdin looks like an interactive terminal,
// so piping a script through stdin doesn't intersperse prompts with
// its output.
func repl(stdio mainer.Stdio, cfg config.Config) int {
	interactive := isTerminal(stdio)
	machine := newVM(stdio, cfg)
	scanner := bufio.NewScanner(stdio.Stdin)

	if interactive {
		fmt.Fprintln(stdio.Stdout, "ember REPL — Ctrl-D to exit")
	}

	for {
		if interactive {
			fmt.Fprint(stdio.Stdout, prompt)
		}
		var lines []string
		for {
			if !scanner.Scan() {
				return ExitOK
			}
			line := scanner.Text()
			lines = append(lines, line)
			if balanced(lines) {
				break
			}
			if interactive {
				fmt.Fprint(stdio.Stdout, ".. ")
			}
		}
		source := strings.Join(lines, "\n")
		if strings.TrimSpace(source) == "" {
			continue
		}
		if strings.TrimSpace(source) == ":globals" {
			fmt.Fprintln(stdio.Stdout, strings.Join(machine.Globals.Names(), ", "))
			continue
		}
		if name, ok := strings.CutPrefix(strings.TrimSpace(source), ":undef "); ok {
			machine.Globals.Delete(machine.Interner.Intern(strings.TrimSpace(name)))
			continue
		}
		// A REPL line's compile/runtime errors are reported but never
		// terminate the session; only EOF does.
		interpretLine(source, machine, stdio)
	}
}

// balanced reports whether the accumulated lines have matching brace
// depth, the REPL's signal to stop requesting continuation lines for a
// multi-line block (`class Foo {` ... `}`).
func balanced(lines []string) bool {
	depth := 0
	for _, line := range lines {
		for _, r := range line {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
			}
		}
	}
	return depth <= 0
}

func isTerminal(stdio mainer.Stdio) bool {
	if f, ok := stdio.Stdin.(interface{ Fd() uintptr }); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

func interpret(source string, machine *vm.VM, stdio mainer.Stdio) int {
	fn, err := compiler.Compile(source, machine.Interner)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return ExitCompileError
	}
	if err := machine.Interpret(fn); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return ExitRuntimeError
	}
	return ExitOK
}

// interpretLine is interpret without the process-exit-code framing,
// for the REPL loop which reports errors but keeps running.
func interpretLine(source string, machine *vm.VM, stdio mainer.Stdio) {
	fn, err := compiler.Compile(source, machine.Interner)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return
	}
	if err := machine.Interpret(fn); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
	}
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
