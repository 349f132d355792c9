package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// prompter reads answers line by line. Passwords are read without echo when
// the input is a terminal, and as plain lines otherwise (scripts, tests).
type prompter struct {
	sc  *bufio.Scanner
	out io.Writer
	fd  int
	tty bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{sc: bufio.NewScanner(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// line prints prompt and returns the trimmed answer; ok is false at end of input.
func (p *prompter) line(prompt string) (string, bool) {
	fmt.Fprint(p.out, prompt)
	if !p.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.sc.Text()), true
}

// password reads a secret with masking on a terminal.
func (p *prompter) password(prompt string) (string, error) {
	if !p.tty {
		s, ok := p.line(prompt)
		if !ok {
			return "", io.ErrUnexpectedEOF
		}
		return s, nil
	}
	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out) // Add newline after password input
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	return strings.TrimSpace(string(b)), nil
}
