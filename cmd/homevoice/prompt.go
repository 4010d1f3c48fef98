package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// termPrompter collects PINs on the controlling terminal, without echo
// when one is attached. Piped stdin falls back to plain line reads.
type termPrompter struct {
	in *bufio.Reader
}

func newTermPrompter() *termPrompter {
	return &termPrompter{in: bufio.NewReader(os.Stdin)}
}

func (p *termPrompter) RequestPIN(ctx context.Context, isNew bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if !isNew {
		return p.read("Enter PIN: ")
	}

	pin, err := p.read("Choose a 4-digit PIN: ")
	if err != nil {
		return "", err
	}
	confirm, err := p.read("Confirm PIN: ")
	if err != nil {
		return "", err
	}
	if pin != confirm {
		return "", errors.New("PINs do not match")
	}
	return pin, nil
}

// read prints the prompt and reads one secret line. A newline is printed
// after a no-echo read to keep the terminal tidy.
func (p *termPrompter) read(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
