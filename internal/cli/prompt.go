// Package cli implements the siteadmin operator commands.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// Prompter reads operator answers. Passwords are read without echo when
// input is a terminal.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer

	// fd is the terminal file descriptor, or -1 when input is not a terminal.
	fd           int
	readPassword func(fd int) ([]byte, error)
}

// NewPrompter creates a prompter over in. fd should be the descriptor of in
// when it is a terminal, otherwise -1.
func NewPrompter(in io.Reader, out io.Writer, fd int) *Prompter {
	if fd >= 0 && !term.IsTerminal(fd) {
		fd = -1
	}
	return &Prompter{
		in:           bufio.NewScanner(in),
		out:          out,
		fd:           fd,
		readPassword: term.ReadPassword,
	}
}

// Prompt prints label and returns the trimmed answer. def is returned for an
// empty answer.
func (p *Prompter) Prompt(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

// Password asks for a password twice and returns it when both match.
func (p *Prompter) Password(label string) (string, error) {
	first, err := p.secret(label)
	if err != nil {
		return "", err
	}
	second, err := p.secret("Repeat " + strings.ToLower(label))
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func (p *Prompter) secret(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if p.fd < 0 {
		return p.readLine()
	}
	b, err := p.readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func (p *Prompter) readLine() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return p.in.Text(), nil
}
