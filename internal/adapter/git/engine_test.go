package git_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/akorchak/reviewbot/internal/adapter/git"
)

func TestEngineDiffBetweenBranches(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()

	repo, err := goGit.PlainInit(tmp, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	writeFile(t, tmp, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n")
	if _, err := worktree.Add("main.go"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	_, err = worktree.Commit("initial", &goGit.CommitOptions{
		Author: defaultSignature(),
	})
	if err != nil {
		t.Fatalf("commit error: %v", err)
	}
	if err := checkoutBranch(worktree, "feature"); err != nil {
		t.Fatalf("checkout error: %v", err)
	}

	writeFile(t, tmp, "main.go", "package main\n\nfunc main() {\n\tprintln(\"feature\")\n}\n")
	if _, err := worktree.Add("main.go"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Commit("feature change", &goGit.CommitOptions{
		Author: defaultSignature(),
	}); err != nil {
		t.Fatalf("feature commit error: %v", err)
	}

	engine := git.NewEngine(tmp)
	entries, err := engine.Diff(ctx, "master", "feature")
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 diff entry, got %d", len(entries))
	}
	if entries[0].NewPath != "main.go" {
		t.Fatalf("expected path main.go, got %q", entries[0].NewPath)
	}
	if !strings.Contains(entries[0].Diff, "feature") {
		t.Fatalf("expected patch to include change: %s", entries[0].Diff)
	}
}

func TestEngineDiffReportsAddedFile(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()

	repo, err := goGit.PlainInit(tmp, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	writeFile(t, tmp, "main.go", "package main\n")
	if _, err := worktree.Add("main.go"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Commit("initial", &goGit.CommitOptions{Author: defaultSignature()}); err != nil {
		t.Fatalf("commit error: %v", err)
	}
	if err := checkoutBranch(worktree, "feature"); err != nil {
		t.Fatalf("checkout error: %v", err)
	}

	writeFile(t, tmp, "util.go", "package main\n\nfunc helper() {}\n")
	if _, err := worktree.Add("util.go"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Commit("add helper", &goGit.CommitOptions{Author: defaultSignature()}); err != nil {
		t.Fatalf("commit error: %v", err)
	}

	engine := git.NewEngine(tmp)
	entries, err := engine.Diff(ctx, "master", "feature")
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 diff entry, got %d", len(entries))
	}
	if entries[0].OldPath != "" {
		t.Fatalf("expected empty old path for added file, got %q", entries[0].OldPath)
	}
	if entries[0].NewPath != "util.go" {
		t.Fatalf("expected new path util.go, got %q", entries[0].NewPath)
	}
}

func TestEngineUncommittedDiff(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()

	repo, err := goGit.PlainInit(tmp, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	writeFile(t, tmp, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n")
	if _, err := worktree.Add("main.go"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Commit("initial", &goGit.CommitOptions{Author: defaultSignature()}); err != nil {
		t.Fatalf("commit error: %v", err)
	}

	// Modify without committing.
	writeFile(t, tmp, "main.go", "package main\n\nfunc main() {\n\tprintln(\"working tree change\")\n}\n")

	engine := git.NewEngine(tmp)
	entries, err := engine.UncommittedDiff(ctx, "master")
	if err != nil {
		t.Fatalf("UncommittedDiff returned error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 diff entry, got %d", len(entries))
	}
	if !strings.Contains(entries[0].Diff, "working tree change") {
		t.Fatalf("expected patch to include working tree change, got %s", entries[0].Diff)
	}
}

func TestEngineCurrentBranch(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()

	repo, err := goGit.PlainInit(tmp, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	writeFile(t, tmp, "main.go", "package main\n")
	if _, err := worktree.Add("main.go"); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Commit("initial", &goGit.CommitOptions{Author: defaultSignature()}); err != nil {
		t.Fatalf("commit error: %v", err)
	}
	if err := checkoutBranch(worktree, "feature"); err != nil {
		t.Fatalf("checkout error: %v", err)
	}

	engine := git.NewEngine(tmp)
	branch, err := engine.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch returned error: %v", err)
	}
	if branch != "feature" {
		t.Fatalf("expected branch feature, got %q", branch)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write file error: %v", err)
	}
}

func defaultSignature() *object.Signature {
	return &object.Signature{
		Name:  "Test",
		Email: "test@example.com",
		When:  time.Unix(0, 0),
	}
}

func checkoutBranch(worktree *goGit.Worktree, branch string) error {
	return worktree.Checkout(&goGit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	})
}

func TestIsBinaryPatch(t *testing.T) {
	tests := []struct {
		name     string
		patch    string
		expected bool
	}{
		{
			name:     "binary files differ",
			patch:    "Binary files a/image.png and b/image.png differ\n",
			expected: true,
		},
		{
			name:     "GIT binary patch",
			patch:    "GIT binary patch\nliteral 1234\n...",
			expected: true,
		},
		{
			name:     "normal text diff",
			patch:    "@@ -1,3 +1,4 @@\n context\n+added\n",
			expected: false,
		},
		{
			name:     "empty patch",
			patch:    "",
			expected: false,
		},
		{
			name:     "patch mentioning binary in content",
			patch:    "@@ -1,1 +1,1 @@\n-// Binary files are not supported\n+// Binary files are now supported\n",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := git.IsBinaryPatch(tt.patch)
			if got != tt.expected {
				t.Errorf("IsBinaryPatch(%q) = %v, want %v", tt.patch, got, tt.expected)
			}
		})
	}
}

func TestExtractPathAndOldPath(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantPath    string
		wantOldPath string
	}{
		{
			name:        "modified file",
			line:        "M  main.go",
			wantPath:    "main.go",
			wantOldPath: "",
		},
		{
			name:        "added file",
			line:        "A  new_file.go",
			wantPath:    "new_file.go",
			wantOldPath: "",
		},
		{
			name:        "renamed file",
			line:        "R  old_name.go -> new_name.go",
			wantPath:    "new_name.go",
			wantOldPath: "old_name.go",
		},
		{
			name:        "renamed file with spaces in path",
			line:        "R  old name.go -> new name.go",
			wantPath:    "new name.go",
			wantOldPath: "old name.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPath, gotOldPath := git.ExtractPathAndOldPath(tt.line)
			if gotPath != tt.wantPath {
				t.Errorf("ExtractPathAndOldPath(%q) path = %q, want %q", tt.line, gotPath, tt.wantPath)
			}
			if gotOldPath != tt.wantOldPath {
				t.Errorf("ExtractPathAndOldPath(%q) oldPath = %q, want %q", tt.line, gotOldPath, tt.wantOldPath)
			}
		})
	}
}
