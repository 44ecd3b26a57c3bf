package jobs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nixpare/coprocess"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalText parses Go duration strings such as "1m30s".
func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value, err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// File is the root of a job file.
type File struct {
	Jobs []Job `yaml:"jobs"`
}

// Job describes one child process to run.
type Job struct {
	Name string `yaml:"name"`
	// Command is a whole command line, split like a shell would without
	// expanding anything. Args are appended after it.
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Dir     string            `yaml:"dir,omitempty"`
	// Capture collects stdout and stderr instead of inheriting them.
	Capture bool     `yaml:"capture,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// Load reads a job file from the provided path. Relative job
// directories are resolved against the directory of the file.
func Load(path string) (*File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve job file path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open job file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var doc File
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}

	baseDir := filepath.Dir(absPath)
	for i := range doc.Jobs {
		job := &doc.Jobs[i]
		for k, v := range job.Env {
			job.Env[k] = os.ExpandEnv(v)
		}
		if job.Dir != "" {
			dir := os.ExpandEnv(job.Dir)
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(baseDir, dir)
			}
			job.Dir = filepath.Clean(dir)
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return &doc, nil
}

// Validate checks that every job can be turned into a command.
func (f *File) Validate() error {
	if len(f.Jobs) == 0 {
		return errors.New("no jobs defined")
	}

	seen := make(map[string]struct{}, len(f.Jobs))
	var errs []error
	for i, job := range f.Jobs {
		field := fmt.Sprintf("jobs[%d]", i)
		name := strings.TrimSpace(job.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("%s.name: must not be empty", field))
		} else {
			field = fmt.Sprintf("jobs.%s", name)
			if _, dup := seen[name]; dup {
				errs = append(errs, fmt.Errorf("%s: duplicate job name", field))
			}
			seen[name] = struct{}{}
		}

		if len(coprocess.ParseCommandArgs(job.Command)) == 0 {
			errs = append(errs, fmt.Errorf("%s.command: must not be empty", field))
		}
		if job.Timeout.Duration < 0 {
			errs = append(errs, fmt.Errorf("%s.timeout: must not be negative", field))
		}
	}
	return errors.Join(errs...)
}

// Build creates the process builder for the job.
func (j Job) Build() (*coprocess.Command, error) {
	cmd, err := coprocess.CommandFromLine(j.Command)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", j.Name, err)
	}
	cmd.Args(j.Args...).Envs(j.Env)
	if j.Dir != "" {
		cmd.Dir(j.Dir)
	}
	return cmd, nil
}
