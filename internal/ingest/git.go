package ingest

import (
	"os/exec"
	"strings"
)

// DetectGitHead reads the commit hash and branch name of the checkout
// containing root. Both come back empty when root is not inside a git
// work tree or git is not installed.
func DetectGitHead(root string) (commit, ref string) {
	commit = gitOutput(root, "rev-parse", "HEAD")
	ref = gitOutput(root, "rev-parse", "--abbrev-ref", "HEAD")
	if ref == "HEAD" {
		// Detached head, the commit hash is the only stable reference.
		ref = ""
	}
	return commit, ref
}

func gitOutput(root string, args ...string) string {
	cmd := exec.Command("git", append([]string{"-C", root}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
