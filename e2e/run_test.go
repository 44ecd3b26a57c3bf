package e2e_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("coproc run", func() {
	var dir string

	BeforeEach(func() {
		dir = tempDir()
	})

	It("runs every job and prints captured output", func() {
		writeFile(dir, "jobs.yaml", `jobs:
  - name: greet
    command: "sh -c 'echo hello $WHO'"
    env: {WHO: world}
    capture: true
  - name: quiet
    command: "true"
`)

		out := coprocOK(dir, "run", "-f", "jobs.yaml")
		Expect(out).To(MatchRegexp(`greet\s+\S+\s+ok`))
		Expect(out).To(ContainSubstring("stdout | hello world"))
		Expect(out).To(MatchRegexp(`quiet\s+\S+\s+ok`))
	})

	It("exits with 1 when a job fails", func() {
		writeFile(dir, "jobs.yaml", `jobs:
  - name: good
    command: "true"
  - name: bad
    command: "sh -c 'exit 5'"
`)

		out, code := coproc(dir, "run", "-f", "jobs.yaml")
		Expect(code).To(Equal(1))
		Expect(out).To(ContainSubstring("failed (exit status 5)"))
	})

	It("stops jobs that exceed their timeout", func() {
		writeFile(dir, "jobs.yaml", `jobs:
  - name: sleeper
    command: "sleep 30"
    timeout: 200ms
`)

		out, code := coproc(dir, "run", "-f", "jobs.yaml", "--grace", "500ms")
		Expect(code).To(Equal(1))
		Expect(out).To(ContainSubstring("timed out"))
	})

	It("rejects an invalid job file", func() {
		writeFile(dir, "jobs.yaml", `jobs:
  - name: ""
    command: ""
`)

		out, code := coproc(dir, "run", "-f", "jobs.yaml")
		Expect(code).To(Equal(1))
		Expect(out).To(ContainSubstring("must not be empty"))
	})
})
