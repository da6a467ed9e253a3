package acceptance_test

import (
	"os/exec"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("scriptorium init", func() {
	var repoDir, tmpDir, configPath string

	BeforeEach(func() {
		repoDir, tmpDir, configPath = newTestRepo("scriptorium-init")
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	It("creates the scriptorium/plan branch with the expected layout", func() {
		cmd := exec.Command(binaryPath, "init", configPath)
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		branches := runGitOutput(repoDir, "branch", "--list", "scriptorium/plan")
		Expect(branches).To(ContainSubstring("scriptorium/plan"))

		tree := runGitOutput(repoDir, "ls-tree", "-r", "--name-only", "scriptorium/plan")
		Expect(tree).To(ContainSubstring("spec.md"))
		Expect(tree).To(ContainSubstring("tickets/open/.gitkeep"))
		Expect(tree).To(ContainSubstring("tickets/in-progress/.gitkeep"))
		Expect(tree).To(ContainSubstring("tickets/done/.gitkeep"))
		Expect(tree).To(ContainSubstring("queue/merge/pending/.gitkeep"))
	})

	It("seeds spec.md from the given spec file", func() {
		specPath := repoDir + "/my-spec.md"
		writeFile(specPath, "# Custom Spec\n\nBuild the thing.\n")

		cmd := exec.Command(binaryPath, "init", configPath, specPath)
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		content := runGitOutput(repoDir, "show", "scriptorium/plan:spec.md")
		Expect(content).To(ContainSubstring("Custom Spec"))
	})

	It("fails if scriptorium/plan already exists", func() {
		cmd := exec.Command(binaryPath, "init", configPath)
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		cmd2 := exec.Command(binaryPath, "init", configPath)
		_, err2 := cmd2.CombinedOutput()
		Expect(err2).To(HaveOccurred())
	})

	It("does not leave a scratch worktree behind", func() {
		cmd := exec.Command(binaryPath, "init", configPath)
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))

		list := runGitOutput(repoDir, "worktree", "list")
		Expect(list).NotTo(ContainSubstring("plan-init"))
	})
})

var _ = Describe("scriptorium validate", func() {
	var repoDir, tmpDir, configPath string

	BeforeEach(func() {
		repoDir, tmpDir, configPath = newTestRepo("scriptorium-validate")
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	It("accepts a minimal config", func() {
		cmd := exec.Command(binaryPath, "validate", configPath)
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring("valid"))
	})

	It("rejects a config with an empty health command list", func() {
		writeFile(configPath, `{"settings": {"healthCommands": []}}`)
		cmd := exec.Command(binaryPath, "validate", configPath)
		_, err := cmd.CombinedOutput()
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("scriptorium status", func() {
	var repoDir, tmpDir, configPath string

	BeforeEach(func() {
		repoDir, tmpDir, configPath = newTestRepo("scriptorium-status")
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	It("reports an error before the plan branch exists", func() {
		cmd := exec.Command(binaryPath, "status", configPath)
		output, _ := cmd.CombinedOutput()
		Expect(string(output)).To(ContainSubstring("tickets/open"))
	})

	It("shows an empty ticket list right after init", func() {
		initCmd := exec.Command(binaryPath, "init", configPath)
		out, err := initCmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(out))

		statusCmd := exec.Command(binaryPath, "status", configPath)
		output, err := statusCmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring("Ticket Status"))
	})
})

var _ = Describe("scriptorium worktrees", func() {
	var repoDir, tmpDir, configPath string

	BeforeEach(func() {
		repoDir, tmpDir, configPath = newTestRepo("scriptorium-worktrees")
	})

	AfterEach(func() {
		cleanupTestRepo(repoDir, tmpDir)
	})

	It("reports no active worktrees before any tick has run", func() {
		cmd := exec.Command(binaryPath, "worktrees", configPath)
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring("no active worktrees"))
	})
})
