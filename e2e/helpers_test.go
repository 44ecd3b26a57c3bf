package e2e_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// tempDir creates a temp directory removed after the test.
func tempDir() string {
	dir, err := os.MkdirTemp("", "coproc-test-*")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { os.RemoveAll(dir) })
	return dir
}

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	ExpectWithOffset(1, os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

// coproc runs the binary in the given directory and returns its combined
// output and exit code.
func coproc(dir string, args ...string) (string, int) {
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()

	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else {
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
	}
	return strings.TrimSpace(string(out)), code
}

// coprocOK runs the binary and expects success.
func coprocOK(dir string, args ...string) string {
	out, code := coproc(dir, args...)
	ExpectWithOffset(1, code).To(Equal(0), "coproc %s failed: %s", strings.Join(args, " "), out)
	return out
}
