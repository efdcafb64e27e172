package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wkalt/treeq/engine"
	"github.com/wkalt/treeq/nodestore"
)

const (
	prompt         = "treeq # "
	continuePrompt = "  ... # "
)

var (
	errorColor  = color.New(color.FgRed)
	headerColor = color.New(color.FgCyan, color.Bold)
)

func printError(s string) {
	errorColor.Fprintln(os.Stderr, "ERROR: "+s)
}

type session struct {
	ns     *nodestore.Nodestore
	engine *engine.Engine
	json   bool
}

// handle executes a slash command. It returns false if the session should
// end.
func (s *session) handle(ctx context.Context, line string) (bool, error) {
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch command {
	case `\q`:
		return false, nil
	case `\h`:
		text, ok := help[rest]
		if !ok {
			return true, fmt.Errorf("unknown help topic: %s", rest)
		}
		fmt.Println(text)
	case `\explain`:
		out, err := s.engine.Explain(ctx, strings.TrimSuffix(rest, ";"))
		if err != nil {
			return true, err
		}
		headerColor.Println("plan")
		fmt.Print(out)
	case `\stats`:
		if rest == "" {
			return true, errors.New("not enough arguments")
		}
		return true, printSummary(ctx, s.ns, rest)
	case `\load`:
		if rest == "" {
			return true, errors.New("not enough arguments")
		}
		names, err := s.ns.Match(ctx, rest)
		if err != nil {
			return true, err
		}
		if err := s.ns.Prefetch(ctx, names); err != nil {
			return true, err
		}
		fmt.Printf("loaded %d documents\n", len(names))
	case `\json`:
		s.json = !s.json
		fmt.Printf("json output is %s\n", map[bool]string{true: "on", false: "off"}[s.json])
	default:
		return true, fmt.Errorf("unrecognized command: %s", line)
	}
	return true, nil
}

func (s *session) run(ctx context.Context) error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	l, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(home, ".treeq_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       `\q`,
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}
	defer l.Close()
	l.CaptureExitSignal()
	log.SetOutput(l.Stderr())

	headerColor.Println("treeq")
	fmt.Println(`Type "\h" for help.`)
	fmt.Println()

	lines := []string{}
	for {
		line, err := l.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				lines = lines[:0]
				l.SetPrompt(prompt)
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case len(lines) == 0 && strings.HasPrefix(line, `\`):
			more, err := s.handle(ctx, line)
			if err != nil {
				printError(err.Error())
			}
			if !more {
				return nil
			}
			continue
		}

		lines = append(lines, line)
		if !strings.HasSuffix(line, ";") {
			l.SetPrompt(continuePrompt)
			continue
		}
		query := strings.Join(lines, "\n")
		lines = lines[:0]
		l.SetPrompt(prompt)
		if err := l.SaveHistory(query); err != nil {
			printError(err.Error())
		}
		if err := evaluate(ctx, s.engine, strings.TrimSuffix(query, ";"), s.json); err != nil {
			printError(err.Error())
		}
	}
}

var help = map[string]string{
	"": `treeq evaluates queries over JSON documents. Documents are
addressed by name relative to the data directory or bucket.

Queries can span multiple lines and are terminated with a semicolon. The
supported slash commands are:

  \h [topic]        print help text. If topic is blank, prints this text.
  \explain query    print the compiled form of a query
  \stats glob       summarize the numeric values of matching documents
  \load glob        load matching documents into the cache
  \json             toggle JSON output
  \q                quit

Available help topics are:
  query: Show examples of query syntax.`,

	"query": `Some example queries:

Nodes of a document with a numeric text value between 10 and 20:
    db:text-range("orders.json", 10, 20);

Every node except those:
    db:open("orders.json") except db:text-range("orders.json", 10, 20);

Existential comparison:
    db:attribute-range("orders.json", 0, 100) = (5, 50);

Functions and closures:
    let $lo := 10
    let $in := function($hi) { db:text-range("orders.json", $lo, $hi) }
    return count($in(20));`,
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive query session",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ns, e := setup(ctx, "")
		s := &session{ns: ns, engine: e}
		checkErr(s.run(ctx))
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
