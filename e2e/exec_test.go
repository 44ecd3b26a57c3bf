package e2e_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("coproc exec", func() {
	var dir string

	BeforeEach(func() {
		dir = tempDir()
	})

	It("exits with the exit code of the command", func() {
		_, code := coproc(dir, "exec", "--", "sh", "-c", "exit 3")
		Expect(code).To(Equal(3))

		coprocOK(dir, "exec", "--", "true")
	})

	It("reports a signal as 128 plus its number", func() {
		_, code := coproc(dir, "exec", "--", "sh", "-c", "kill -9 $$")
		Expect(code).To(Equal(128 + 9))
	})

	It("passes the standard streams through", func() {
		out := coprocOK(dir, "exec", "--", "sh", "-c", "echo to-stdout; echo to-stderr >&2")
		Expect(out).To(ContainSubstring("to-stdout"))
		Expect(out).To(ContainSubstring("to-stderr"))
	})

	It("applies the working directory and environment flags", func() {
		sub := filepath.Join(dir, "sub")
		coprocOK(dir, "exec", "--", "mkdir", sub)

		out := coprocOK(dir, "exec", "--dir", sub, "-e", "GREETING=hi", "--", "sh", "-c", `echo "$GREETING"; basename "$(pwd)"`)
		Expect(out).To(Equal("hi\nsub"))
	})

	It("fails on a command that does not exist", func() {
		out, code := coproc(dir, "exec", "--", "coproc-no-such-program")
		Expect(code).To(Equal(1))
		Expect(out).To(ContainSubstring("startup error"))
	})

	It("logs the wait at debug level", func() {
		out := coprocOK(dir, "--log-level", "debug", "exec", "--", "true")
		Expect(out).To(ContainSubstring("spawned child"))
		Expect(out).To(ContainSubstring("child exited"))
	})
})
