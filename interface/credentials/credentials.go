package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	EnvUser = "EE_USER"
	EnvPass = "EE_PASS"
)

// ErrMissingCredentials is returned when a credential cannot be resolved
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials of an EarthExplorer account
type Credentials struct {
	Username string
	Password string
}

// Prompter asks the user for a value. If secret, the value must not be echoed.
type Prompter interface {
	Prompt(label string, secret bool) (string, error)
}

// Resolve completes the explicit credentials with the environment (EE_USER, EE_PASS),
// then with the prompter, if not nil.
func Resolve(explicit Credentials, p Prompter) (Credentials, error) {
	c := explicit
	if c.Username == "" {
		c.Username = os.Getenv(EnvUser)
	}
	if c.Password == "" {
		c.Password = os.Getenv(EnvPass)
	}

	var err error
	if c.Username == "" {
		if c.Username, err = prompt(p, "Username", false); err != nil {
			return Credentials{}, fmt.Errorf("Resolve.username: %w", err)
		}
	}
	if c.Password == "" {
		if c.Password, err = prompt(p, "Password", true); err != nil {
			return Credentials{}, fmt.Errorf("Resolve.password: %w", err)
		}
	}
	return c, nil
}

func prompt(p Prompter, label string, secret bool) (string, error) {
	if p == nil {
		return "", ErrMissingCredentials
	}
	v, err := p.Prompt(label, secret)
	if err != nil {
		return "", err
	}
	if v = strings.TrimSpace(v); v == "" {
		return "", ErrMissingCredentials
	}
	return v, nil
}

// TerminalPrompter reads the values from a terminal, without echo for the secrets
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewTerminalPrompter creates a prompter reading from in and writing the labels to out.
// Secrets are read without echo when in is a terminal.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	fd := -1
	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &TerminalPrompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// Prompt implements Prompter
func (p *TerminalPrompter) Prompt(label string, secret bool) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if secret && p.fd >= 0 && term.IsTerminal(p.fd) {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("Prompt.ReadPassword: %w", err)
		}
		return string(b), nil
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("Prompt.ReadString: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
