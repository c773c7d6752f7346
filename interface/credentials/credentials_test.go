package credentials

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrompter struct {
	values map[string]string
	asked  []string
	secret map[string]bool
}

func (s *stubPrompter) Prompt(label string, secret bool) (string, error) {
	s.asked = append(s.asked, label)
	if s.secret == nil {
		s.secret = map[string]bool{}
	}
	s.secret[label] = secret
	return s.values[label], nil
}

func TestResolveExplicit(t *testing.T) {
	t.Setenv(EnvUser, "envuser")
	t.Setenv(EnvPass, "envpass")
	p := &stubPrompter{}

	c, err := Resolve(Credentials{Username: "user", Password: "pass"}, p)
	require.NoError(t, err)
	assert.Equal(t, Credentials{Username: "user", Password: "pass"}, c)
	assert.Empty(t, p.asked)
}

func TestResolveEnvironment(t *testing.T) {
	t.Setenv(EnvUser, "envuser")
	t.Setenv(EnvPass, "envpass")

	c, err := Resolve(Credentials{Username: "user"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Credentials{Username: "user", Password: "envpass"}, c)
}

func TestResolvePrompt(t *testing.T) {
	t.Setenv(EnvUser, "")
	t.Setenv(EnvPass, "")
	p := &stubPrompter{values: map[string]string{"Username": " bob ", "Password": "secret"}}

	c, err := Resolve(Credentials{}, p)
	require.NoError(t, err)
	assert.Equal(t, Credentials{Username: "bob", Password: "secret"}, c)
	assert.Equal(t, []string{"Username", "Password"}, p.asked)
	assert.False(t, p.secret["Username"])
	assert.True(t, p.secret["Password"], "password must be prompted as a secret")
}

func TestResolveMissing(t *testing.T) {
	t.Setenv(EnvUser, "")
	t.Setenv(EnvPass, "")

	_, err := Resolve(Credentials{}, nil)
	assert.True(t, errors.Is(err, ErrMissingCredentials))

	_, err = Resolve(Credentials{Username: "bob"}, &stubPrompter{})
	assert.True(t, errors.Is(err, ErrMissingCredentials))
}

func TestTerminalPrompterNotATerminal(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewTerminalPrompter(strings.NewReader("bob\r\nsecret"), out)

	user, err := p.Prompt("Username", false)
	require.NoError(t, err)
	assert.Equal(t, "bob", user)

	pass, err := p.Prompt("Password", true)
	require.NoError(t, err)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "Username: Password: ", out.String())

	_, err = p.Prompt("Again", false)
	assert.Error(t, err)
}
