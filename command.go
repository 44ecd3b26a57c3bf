package coprocess

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nixpare/coprocess/internal/metrics"
)

// ErrPtyUnsupported is returned by Spawn when a pseudo-terminal was
// requested on a platform that has none
var ErrPtyUnsupported = errors.New("pseudo-terminals are not supported on this platform")

type envVar struct {
	key   string
	value string
	unset bool
}

// Command is a process builder. Every setter returns the Command so
// calls can be chained; nothing happens until Spawn, Status or Output.
// A Command can be spawned more than once
type Command struct {
	program  string
	args     []string
	env      []envVar
	envClear bool
	dir      string
	stdin    Stdio
	stdout   Stdio
	stderr   Stdio
	pty      bool
}

// NewCommand creates a builder for program. The program is resolved
// through PATH at spawn time if it contains no path separator
func NewCommand(program string, args ...string) *Command {
	return &Command{
		program: program,
		args:    append([]string(nil), args...),
	}
}

// CommandFromLine splits a whole command line with ParseCommandArgs and
// builds a Command from it
func CommandFromLine(line string) (*Command, error) {
	argv := ParseCommandArgs(line)
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command line")
	}
	return NewCommand(argv[0], argv[1:]...), nil
}

// Arg appends one argument
func (c *Command) Arg(arg string) *Command {
	c.args = append(c.args, arg)
	return c
}

// Args appends arguments
func (c *Command) Args(args ...string) *Command {
	c.args = append(c.args, args...)
	return c
}

// Env sets an environment variable for the child
func (c *Command) Env(key, value string) *Command {
	c.env = append(c.env, envVar{key: key, value: value})
	return c
}

// Envs sets several environment variables for the child
func (c *Command) Envs(vars map[string]string) *Command {
	for k, v := range vars {
		c.Env(k, v)
	}
	return c
}

// EnvRemove removes a variable from the child's environment, whether
// it was inherited or set with Env
func (c *Command) EnvRemove(key string) *Command {
	c.env = append(c.env, envVar{key: key, unset: true})
	return c
}

// EnvClear drops every variable set so far and stops the child from
// inheriting the parent's environment. Env calls made afterwards apply
func (c *Command) EnvClear() *Command {
	c.envClear = true
	c.env = nil
	return c
}

// Dir sets the working directory of the child
func (c *Command) Dir(dir string) *Command {
	c.dir = dir
	return c
}

// Stdin configures the child's standard input
func (c *Command) Stdin(cfg Stdio) *Command {
	c.stdin = cfg
	return c
}

// Stdout configures the child's standard output
func (c *Command) Stdout(cfg Stdio) *Command {
	c.stdout = cfg
	return c
}

// Stderr configures the child's standard error
func (c *Command) Stderr(cfg Stdio) *Command {
	c.stderr = cfg
	return c
}

// Pty attaches the child to a new pseudo-terminal instead of the
// configured stdio: the child becomes a session leader with the
// terminal as its controlling tty, and the master side is available
// with Child.Pty. Unix only
func (c *Command) Pty() *Command {
	c.pty = true
	return c
}

// Spawn starts the child. Unconfigured streams are inherited from
// the parent
func (c *Command) Spawn() (*Child, error) {
	return c.spawn(Inherit(), Inherit(), Inherit())
}

// Status spawns the child and waits for it to exit. Unconfigured
// streams are inherited from the parent
func (c *Command) Status() (ExitStatus, error) {
	child, err := c.Spawn()
	if err != nil {
		return ExitStatus{}, err
	}
	return child.Wait()
}

// Output spawns the child, waits for it to exit and collects its
// output. Unless configured otherwise stdout and stderr are piped and
// captured, and stdin is connected to the null device
func (c *Command) Output() (Output, error) {
	child, err := c.spawn(Null(), Piped(), Piped())
	if err != nil {
		return Output{}, err
	}
	return child.WaitWithOutput()
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.program}, c.args...), " ")
}

func (c *Command) checkDir() error {
	if c.dir == "" {
		return nil
	}

	dir, err := filepath.Abs(c.dir)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("directory \"%s\" not found", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("\"%s\" is not a directory", dir)
	}
	return nil
}

// environ returns nil when the child simply inherits the environment
func (c *Command) environ() []string {
	if !c.envClear && len(c.env) == 0 {
		return nil
	}

	final := make(map[string]envVar, len(c.env))
	var order []string
	for _, v := range c.env {
		k := envKey(v.key)
		if _, seen := final[k]; !seen {
			order = append(order, k)
		}
		final[k] = v
	}

	var env []string
	if !c.envClear {
		for _, kv := range os.Environ() {
			k, _, _ := strings.Cut(kv, "=")
			if _, overridden := final[envKey(k)]; overridden {
				continue
			}
			env = append(env, kv)
		}
	}

	for _, k := range order {
		if v := final[k]; !v.unset {
			env = append(env, v.key+"="+v.value)
		}
	}
	if env == nil {
		env = []string{}
	}
	return env
}

func (c *Command) spawn(defIn, defOut, defErr Stdio) (child *Child, err error) {
	if err := c.checkDir(); err != nil {
		return nil, fmt.Errorf("process \"%s\": %w", c.program, err)
	}

	cmd := createCommand(c.program, c.args...)
	cmd.Dir = c.dir
	cmd.Env = c.environ()

	var childEnds, parentEnds []*os.File
	defer func() {
		for _, f := range childEnds {
			f.Close()
		}
		if err != nil {
			for _, f := range parentEnds {
				f.Close()
			}
		}
	}()

	child = &Child{program: c.program, cmd: cmd}

	if c.pty {
		master, tty, err := openPty()
		if err != nil {
			return nil, fmt.Errorf("process \"%s\" pty: %w", c.program, err)
		}
		childEnds = append(childEnds, tty)
		parentEnds = append(parentEnds, master)

		cmd.Stdin, cmd.Stdout, cmd.Stderr = tty, tty, tty
		configurePty(cmd)
		child.pty = master
	} else {
		configs := [...]Stdio{c.stdin.or(defIn), c.stdout.or(defOut), c.stderr.or(defErr)}
		var ends [3]*os.File
		for i, cfg := range configs {
			childEnd, parentEnd, owned, err := cfg.setup(stream(i))
			if err != nil {
				return nil, fmt.Errorf("process \"%s\" %w", c.program, err)
			}
			if owned {
				childEnds = append(childEnds, childEnd)
			}
			if parentEnd != nil {
				parentEnds = append(parentEnds, parentEnd)
			}
			ends[i] = parentEnd

			// a nil *os.File must not end up in the io.Reader/Writer fields
			if childEnd == nil {
				continue
			}
			switch stream(i) {
			case streamStdin:
				cmd.Stdin = childEnd
			case streamStdout:
				cmd.Stdout = childEnd
			case streamStderr:
				cmd.Stderr = childEnd
			}
		}
		child.stdin, child.stdout, child.stderr = ends[0], ends[1], ends[2]
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("process \"%s\" startup error: %w", c.program, err)
	}
	child.pid = cmd.Process.Pid

	child.waiter, err = newWaiter(cmd.Process)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("process \"%s\" waiter: %w", c.program, err)
	}

	metrics.ChildSpawned()
	logger().Debug("spawned child", "program", c.program, "pid", child.pid)
	return child, nil
}
