package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/codx-dev/codx/pkg/schema"
)

// lineReader reads one line of user input after printing prompt.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

type readlineReader struct {
	rl *readline.Instance
}

func (r *readlineReader) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	return r.rl.Readline()
}

func (r *readlineReader) Close() error { return r.rl.Close() }

// TerminalPrompter implements Prompter with line-based questions on a
// terminal. The readline instance is opened on first use.
type TerminalPrompter struct {
	mu     sync.Mutex
	out    io.Writer
	open   func() (lineReader, error)
	reader lineReader
}

// NewTerminalPrompter reads answers from in and writes questions to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		out: out,
		open: func() (lineReader, error) {
			rl, err := readline.NewEx(&readline.Config{
				Stdin:           io.NopCloser(in),
				Stdout:          out,
				InterruptPrompt: "^C",
				HistoryLimit:    -1,
			})
			if err != nil {
				return nil, err
			}
			return &readlineReader{rl: rl}, nil
		},
	}
}

// Close releases the terminal.
func (p *TerminalPrompter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reader == nil {
		return nil
	}
	err := p.reader.Close()
	p.reader = nil
	return err
}

// ask prints prompt and returns the trimmed answer.
func (p *TerminalPrompter) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", schema.NewError(schema.ErrCodeCancelled, "Prompt cancelled").WithCause(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reader == nil {
		r, err := p.open()
		if err != nil {
			return "", schema.NewError(schema.ErrCodePromptUnavailable, "Unable to open the terminal for input").WithCause(err)
		}
		p.reader = r
	}

	line, err := p.reader.ReadLine(prompt)
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		return "", schema.NewError(schema.ErrCodeCancelled, "Prompt cancelled by user.")
	case errors.Is(err, io.EOF):
		return "", schema.NewError(schema.ErrCodePromptUnavailable, "No input available to answer the prompt").WithCause(err)
	case err != nil:
		return "", schema.NewError(schema.ErrCodePromptUnavailable, "Unable to read the answer").WithCause(err)
	}
	return strings.TrimSpace(line), nil
}

func (p *TerminalPrompter) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *TerminalPrompter) Text(ctx context.Context, message, def string) (string, error) {
	prompt := "? " + message + " "
	if def != "" {
		prompt = fmt.Sprintf("? %s (%s) ", message, def)
	}
	answer, err := p.ask(ctx, prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (p *TerminalPrompter) Number(ctx context.Context, message string, def float64) (float64, error) {
	prompt := fmt.Sprintf("? %s (%s) ", message, strconv.FormatFloat(def, 'f', -1, 64))
	for {
		answer, err := p.ask(ctx, prompt)
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}
		n, err := strconv.ParseFloat(answer, 64)
		if err == nil {
			return n, nil
		}
		p.printf("Please enter a valid number\n")
	}
}

func (p *TerminalPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		answer, err := p.ask(ctx, fmt.Sprintf("? %s (%s) ", message, hint))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		p.printf("Please answer yes or no\n")
	}
}

func (p *TerminalPrompter) Select(ctx context.Context, message string, choices []Choice, def string) (string, error) {
	if len(choices) == 0 {
		return "", schema.NewError(schema.ErrCodeValidation, "Select prompt has no choices")
	}

	defIndex := slices.IndexFunc(choices, func(c Choice) bool { return c.Value == def })
	if defIndex < 0 {
		defIndex = 0
	}

	p.printf("? %s\n", message)
	for i, c := range choices {
		marker := " "
		if i == defIndex {
			marker = ">"
		}
		p.printf("%s %d) %s\n", marker, i+1, c.Name)
	}

	for {
		answer, err := p.ask(ctx, fmt.Sprintf("Answer (%d) ", defIndex+1))
		if err != nil {
			return "", err
		}
		if answer == "" {
			return choices[defIndex].Value, nil
		}
		if idx, ok := choiceIndex(choices, answer); ok {
			return choices[idx].Value, nil
		}
		p.printf("Please pick a number between 1 and %d\n", len(choices))
	}
}

func (p *TerminalPrompter) Checkbox(ctx context.Context, message string, choices []Choice, defaults []string) ([]string, error) {
	if len(choices) == 0 {
		return []string{}, nil
	}

	p.printf("? %s\n", message)
	for i, c := range choices {
		box := "[ ]"
		if slices.Contains(defaults, c.Value) {
			box = "[x]"
		}
		p.printf("%s %d) %s\n", box, i+1, c.Name)
	}

	for {
		answer, err := p.ask(ctx, "Answer (comma separated, empty keeps the checked ones) ")
		if err != nil {
			return nil, err
		}
		if answer == "" {
			selected := make([]string, 0, len(defaults))
			for _, c := range choices {
				if slices.Contains(defaults, c.Value) {
					selected = append(selected, c.Value)
				}
			}
			return selected, nil
		}

		selected, ok := parseSelection(choices, answer)
		if ok {
			return selected, nil
		}
		p.printf("Please pick numbers between 1 and %d\n", len(choices))
	}
}

// choiceIndex matches answer against a 1-based position or a choice value.
func choiceIndex(choices []Choice, answer string) (int, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(choices) {
			return n - 1, true
		}
		return 0, false
	}
	idx := slices.IndexFunc(choices, func(c Choice) bool { return c.Value == answer })
	return idx, idx >= 0
}

func parseSelection(choices []Choice, answer string) ([]string, bool) {
	picked := make([]bool, len(choices))
	for _, part := range strings.Split(answer, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, ok := choiceIndex(choices, part)
		if !ok {
			return nil, false
		}
		picked[idx] = true
	}

	selected := make([]string, 0, len(choices))
	for i, c := range choices {
		if picked[i] {
			selected = append(selected, c.Value)
		}
	}
	return selected, true
}
