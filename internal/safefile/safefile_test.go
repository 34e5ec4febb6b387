package safefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReplace_OverwritesAndKeepsMode(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "strbuffer.c")
	if err := os.WriteFile(target, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := Replace(target, []byte("new")); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Errorf("content = %q", got)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestReplace_CreatesMissingFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "report.json")
	if err := Replace(target, []byte("{}")); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "{}" {
		t.Errorf("content = %q", got)
	}
}

func TestReplace_RejectsSymlinkTarget(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real.c")
	link := filepath.Join(root, "link.c")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}

	err := Replace(link, []byte("new"))
	if err == nil {
		t.Fatal("expected symlink target to be rejected")
	}
	if !strings.Contains(err.Error(), "symlinked") {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := os.ReadFile(target)
	if string(got) != "old" {
		t.Errorf("linked file changed: %q", got)
	}
}

func TestReplace_LeavesNoTempOnSuccess(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "memory.c")
	if err := Replace(target, []byte("x")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".redress-tmp-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "out", "runs")
	abs, err := EnsureDir(target, 0o755)
	if err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory missing: %v", err)
	}
}
