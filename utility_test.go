package coprocess

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", []string{""}, []string{}},
		{"blanks", []string{"  a \t b  "}, []string{"a", "b"}},
		{"double quotes", []string{`echo "hello world"`}, []string{"echo", "hello world"}},
		{"single quotes keep double", []string{`sh -c 'echo "x y"'`}, []string{"sh", "-c", `echo "x y"`}},
		{"glued quote", []string{`--name="a b"c`}, []string{"--name=a bc"}},
		{"empty quotes", []string{`a "" b`}, []string{"a", "", "b"}},
		{"unterminated", []string{`echo "open end`}, []string{"echo", "open end"}},
		{"several strings", []string{"go test", "-run 'Test X'"}, []string{"go", "test", "-run", "Test X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommandArgs(tt.in...))
		})
	}
}

func TestStdioSetup(t *testing.T) {
	child, parent, owned, err := Piped().setup(streamStdin)
	require.NoError(t, err)
	assert.True(t, owned)
	require.NotNil(t, parent)

	_, err = parent.Write([]byte("x"))
	require.NoError(t, err)
	buf := make([]byte, 1)
	_, err = child.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "x", string(buf))
	child.Close()
	parent.Close()

	child, parent, owned, err = Inherit().setup(streamStderr)
	require.NoError(t, err)
	assert.Same(t, os.Stderr, child)
	assert.Nil(t, parent)
	assert.False(t, owned)

	child, _, _, err = Null().setup(streamStdout)
	require.NoError(t, err)
	assert.Nil(t, child)

	assert.Equal(t, Null(), File(nil))
	assert.Equal(t, "null", File(nil).String())
	assert.Equal(t, Piped(), Stdio{}.or(Piped()))
	assert.Equal(t, Inherit(), Inherit().or(Piped()))
}

func TestCommandEnviron(t *testing.T) {
	assert.Nil(t, NewCommand("x").environ(), "untouched environment is inherited")

	env := NewCommand("x").EnvClear().environ()
	assert.NotNil(t, env)
	assert.Empty(t, env)

	env = NewCommand("x").Env("A", "1").Env("B", "2").EnvClear().Env("C", "3").environ()
	assert.Equal(t, []string{"C=3"}, env)

	env = NewCommand("x").EnvClear().Env("A", "1").Env("A", "2").EnvRemove("B").environ()
	assert.Equal(t, []string{"A=2"}, env)
}

func TestExitStatusString(t *testing.T) {
	assert.Equal(t, "exit status 4", ExitStatus{ExitCode: 4}.String())
	assert.True(t, ExitStatus{}.Success())
	assert.Nil(t, ExitStatus{}.Err())

	err := ExitStatus{PID: 10, ExitCode: 1}.Err()
	assert.EqualError(t, err, "process 10: exit status 1")
}
