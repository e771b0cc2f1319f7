// Command pipexdemo is a thin, non-shell harness for exercising pipex end
// to end. It tokenizes one line of input with a quote-aware word splitter
// and joins the resulting words into a pipex.Pipeline on a literal "|"
// separator. There is no globbing, variable expansion, or operator
// sequencing: word-splitting is the demo's only host-language concern.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/spf13/afero"
	"golang.org/x/term"

	"pipex"
	"pipex/cmd/pipexdemo/internal/config"
)

func main() {
	printOnly := flag.Bool("n", false, "tokenize and print the resulting argv, don't run")
	flag.Parse()

	cfg, err := config.Load(afero.NewOsFs())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		runInteractive(cfg, *printOnly)
		return
	}
	runScript(cfg, *printOnly, os.Stdin)
}

func runScript(cfg *config.Config, printOnly bool, rd io.Reader) {
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		runLine(cfg, printOnly, scanner.Text())
	}
}

func runInteractive(cfg *config.Config, printOnly bool) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := historyFile()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	for {
		input, err := line.Prompt("pipex> ")
		if err == liner.ErrPromptAborted {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)
		runLine(cfg, printOnly, input)
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
}

func runLine(cfg *config.Config, printOnly bool, input string) {
	stages, err := tokenizeStages(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("pipexdemo: %v", err))
		return
	}
	if len(stages) == 0 {
		return
	}

	cmds := make([]pipex.Node, 0, len(stages))
	for _, words := range stages {
		if len(words) == 0 {
			fmt.Fprintln(os.Stderr, color.RedString("pipexdemo: empty pipeline stage"))
			return
		}
		c := pipex.New(words[0], words[1:]...)
		if cfg.Cwd != "" {
			c = c.WithCwd(cfg.Cwd)
		}
		if env := cfg.ResolvedEnv(); len(env) > 0 {
			c = c.WithEnv(env)
		}
		cmds = append(cmds, c)
	}

	if printOnly {
		for _, words := range stages {
			fmt.Fprintln(os.Stdout, strings.Join(words, " "))
		}
		return
	}

	var node pipex.Node = cmds[0]
	if len(cmds) > 1 {
		p, err := pipex.NewPipeline(cmds...)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("pipexdemo: %v", err))
			return
		}
		node = p
	}

	code, err := pipex.Run(context.Background(), node)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("pipexdemo: %v", err))
		return
	}
	if code != 0 {
		fmt.Fprintln(os.Stderr, color.YellowString("pipexdemo: exit %d", code))
	}
}

// tokenizeStages splits input into words with shlex (quote-aware, no
// globbing or variable expansion) and groups the words into pipeline
// stages on a literal "|" word.
func tokenizeStages(input string) ([][]string, error) {
	words, err := shlex.Split(input, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	var stages [][]string
	var cur []string
	for _, w := range words {
		if w == "|" {
			stages = append(stages, cur)
			cur = nil
			continue
		}
		cur = append(cur, w)
	}
	stages = append(stages, cur)
	return stages, nil
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".pipexdemo_history")
}
