package e2e_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var binaryPath string

func TestCoproc(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Coproc E2E Suite")
}

var _ = BeforeSuite(func() {
	if runtime.GOOS == "windows" {
		Skip("the e2e scenarios use a POSIX shell")
	}

	tmpDir, err := os.MkdirTemp("", "coproc-build-*")
	Expect(err).NotTo(HaveOccurred())

	binaryPath = filepath.Join(tmpDir, "coproc")

	// Find the module root (where go.mod lives)
	modRoot, err := filepath.Abs(filepath.Join("..", "."))
	Expect(err).NotTo(HaveOccurred())

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/coproc")
	cmd.Dir = modRoot
	out, err := cmd.CombinedOutput()
	Expect(err).NotTo(HaveOccurred(), "build failed: %s", string(out))
})

var _ = AfterSuite(func() {
	if binaryPath != "" {
		os.RemoveAll(filepath.Dir(binaryPath))
	}
})
