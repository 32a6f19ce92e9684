package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	cases := map[string]string{
		"":              "",
		"/tmp":          "/tmp",
		"~":             home,
		"~/models.yaml": filepath.Join(home, "models.yaml"),
	}
	for in, want := range cases {
		got, err := ExpandHome(in)
		if err != nil {
			t.Fatalf("ExpandHome(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveIsAbsolute(t *testing.T) {
	got, err := Resolve("models.yaml")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "models.yaml" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestFirstRegularFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(f, []byte("addr = ':1'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "vramd.yaml")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := FirstRegularFile(filepath.Join(dir, "missing.yaml"), sub, f); got != f {
		t.Fatalf("expected %q, got %q", f, got)
	}
	if got := FirstRegularFile(filepath.Join(dir, "missing.yaml")); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
}
