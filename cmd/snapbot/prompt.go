package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter asks for missing credentials. Reads fall back to empty answers
// when stdin is not a terminal.
type prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	readSecret  func() (string, error)
}

func newPrompter() *prompter {
	fd := int(os.Stdin.Fd())
	return &prompter{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stderr,
		interactive: term.IsTerminal(fd),
		readSecret: func() (string, error) {
			b, err := term.ReadPassword(fd)
			return string(b), err
		},
	}
}

func (p *prompter) ask(question string) (string, error) {
	if !p.interactive {
		return "", nil
	}
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) askSecret(question string) (string, error) {
	if !p.interactive {
		return "", nil
	}
	fmt.Fprint(p.out, question)
	secret, err := p.readSecret()
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(secret), nil
}
