// The unify command is an interactive shell for unifying terms.
//
// Each line is either an equation t1 = t2, which is unified with the
// current substitution, a query ? t, which prints t with the
// substitution applied, or a command starting with a colon; type :help
// for a list. Identifiers starting with an upper case letter are
// variables; other identifiers are operators.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/rogpeppe/hashcons/expr"
	"github.com/rogpeppe/hashcons/gc"
	"github.com/rogpeppe/hashcons/hcons"
)

const historyFile = ".unify_history"

var (
	qflag       = flag.String("q", "univ,exist,weak", "quantifications bound by the substitution")
	nonIdemFlag = flag.Bool("nonidem", false, "omit the occur check")
	jsonFlag    = flag.Bool("json", false, "print statistics as JSON")
	shardsFlag  = flag.Int("shards", 0, "number of hash table shards (0 means the default)")
	verboseFlag = flag.Bool("v", false, "log table and collector activity")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: unify [flags]\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "unify: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	qset, err := expr.ParseQSet(*qflag)
	if err != nil {
		return err
	}
	logger := slog.New(slog.DiscardHandler)
	if *verboseFlag {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	heap := gc.New(&gc.Config{
		Logger: logger,
	})
	tab, err := hcons.NewTable(heap, &hcons.Config{
		Shards: *shardsFlag,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	s := newSession(sessionParams{
		Heap:          heap,
		Table:         tab,
		QSet:          qset,
		NonIdempotent: *nonIdemFlag,
		JSON:          *jsonFlag,
	})
	if !liner.TerminalSupported() {
		return s.runBatch(os.Stdin, os.Stdout)
	}
	return s.runInteractive()
}

func (s *session) runInteractive() error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("unify> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				return nil
			}
			return err
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if err := s.exec(os.Stdout, line); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// runBatch executes the lines read from r, stopping at the first error.
func (s *session) runBatch(r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for i, line := range strings.Split(string(data), "\n") {
		if err := s.exec(w, line); err != nil {
			if err == errQuit {
				return nil
			}
			return fmt.Errorf("line %d: %v", i+1, err)
		}
	}
	return nil
}
