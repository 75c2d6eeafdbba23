package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/EngineHub/WorldEdit-sub015/expression"
	"github.com/EngineHub/WorldEdit-sub015/lang"
	"github.com/EngineHub/WorldEdit-sub015/parser"
)

const replHelp = `:vars   list variables
:reset  forget every variable
:help   show this text
`

func (a *app) runREPL(ctx context.Context) error {
	session := expression.NewSession(a.expressionOptions())
	if !a.isInteractive() {
		return a.runBufferedREPL(ctx, session, bufio.NewReader(a.stdin))
	}
	return a.runInteractiveREPL(ctx, session)
}

func (a *app) isInteractive() bool {
	f, ok := a.stdin.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// command runs a colon command and reports whether line was one.
func (a *app) command(session *expression.Session, line string) bool {
	switch strings.TrimSpace(line) {
	case ":vars":
		for _, name := range session.Names() {
			v, _ := session.Variable(name)
			fmt.Fprintf(a.stdout, "%s = %s\n", name, lang.FormatNumber(v))
		}
	case ":reset":
		session.Reset()
	case ":help":
		fmt.Fprint(a.stdout, replHelp)
	default:
		return false
	}
	return true
}

func (a *app) evalInput(ctx context.Context, session *expression.Session, src string) {
	v, err := session.Eval(ctx, src)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return
	}
	fmt.Fprintln(a.stdout, lang.FormatNumber(v))
}

func (a *app) runBufferedREPL(ctx context.Context, session *expression.Session, reader *bufio.Reader) error {
	var buffer strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read error: %w", err)
		}
		eof := errors.Is(err, io.EOF)
		if buffer.Len() == 0 && a.command(session, line) {
			if eof {
				return nil
			}
			continue
		}
		buffer.WriteString(line)
		src := buffer.String()
		if strings.TrimSpace(src) == "" {
			buffer.Reset()
			if eof {
				return nil
			}
			continue
		}
		if _, parseErr := parser.Parse(src); parseErr != nil && parser.IsIncomplete(parseErr) && !eof {
			continue
		}
		buffer.Reset()
		a.evalInput(ctx, session, src)
		if eof {
			return nil
		}
	}
}

func (a *app) runInteractiveREPL(ctx context.Context, session *expression.Session) error {
	state := liner.NewLiner()
	defer state.Close()
	state.SetCtrlCAborts(true)
	state.SetCompleter(func(line string) []string {
		return complete(session, line)
	})

	historyPath := a.replHistoryPath()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			state.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(historyPath); err == nil {
				state.WriteHistory(f)
				f.Close()
			}
		}()
	}

	var buffer strings.Builder

	for {
		prompt := "wexpr> "
		if buffer.Len() > 0 {
			prompt = ".... "
		}
		input, err := state.Prompt(prompt)
		if err != nil {
			switch {
			case errors.Is(err, liner.ErrPromptAborted):
				fmt.Fprintln(a.stdout)
				buffer.Reset()
				continue
			case errors.Is(err, io.EOF):
				fmt.Fprintln(a.stdout)
				return nil
			default:
				return fmt.Errorf("read error: %w", err)
			}
		}
		if buffer.Len() == 0 && a.command(session, input) {
			state.AppendHistory(strings.TrimSpace(input))
			continue
		}
		buffer.WriteString(input)
		buffer.WriteString("\n")

		src := buffer.String()
		if _, parseErr := parser.Parse(src); parseErr != nil && parser.IsIncomplete(parseErr) {
			continue
		}
		buffer.Reset()
		if trimmed := strings.TrimSpace(src); trimmed != "" {
			state.AppendHistory(trimmed)
			a.evalInput(ctx, session, src)
		}
	}
}

func (a *app) replHistoryPath() string {
	if a.settings.History != "" {
		return a.settings.History
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".wexpr_history")
}

// complete offers function names, keywords and variables that extend the
// identifier at the end of line.
func complete(session *expression.Session, line string) []string {
	i := len(line)
	for i > 0 && isWordByte(line[i-1]) {
		i--
	}
	prefix, word := line[:i], line[i:]
	if word == "" {
		return nil
	}
	var words []string
	words = append(words, lang.FunctionNames()...)
	words = append(words, parser.Keywords...)
	words = append(words, session.Names()...)
	sort.Strings(words)

	var out []string
	for j, w := range words {
		if j > 0 && words[j-1] == w {
			continue
		}
		if strings.HasPrefix(w, word) {
			out = append(out, prefix+w)
		}
	}
	return out
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
