package prompt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRegistry_BuiltinDefaults(t *testing.T) {
	r, err := NewRegistry("", nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	user := r.User()
	if !strings.Contains(user, sentinel) {
		t.Error("builtin user template must contain the sentinel line")
	}
	for _, variable := range []string{"{attributes}", "{document}"} {
		if !strings.Contains(user, variable) {
			t.Errorf("builtin user template missing %s", variable)
		}
	}
	if !strings.Contains(user, instructionsPlaceholder) {
		t.Error("builtin user template missing the instructions placeholder")
	}
	if strings.TrimSpace(r.System()) == "" {
		t.Error("builtin system template must not be blank")
	}
}

func TestNewRegistry_OverrideShadowsBuiltin(t *testing.T) {
	dir := t.TempDir()
	custom := "Custom intro.\n\nAttributes to be extracted:\n<attributes>\n{attributes}\n</attributes>\n{document}\n"
	if err := os.WriteFile(filepath.Join(dir, UserTemplate), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewRegistry(dir, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if got := r.User(); got != custom {
		t.Errorf("User() = %q, want override content", got)
	}
	// No system override present, so the builtin stays active.
	if strings.TrimSpace(r.System()) == "" {
		t.Error("System() should fall back to the builtin template")
	}
}

func TestNewRegistry_EmptyOverrideFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SystemTemplate), []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRegistry(dir, nil); err == nil {
		t.Fatal("NewRegistry() = nil error, want failure for blank template")
	}
}

func TestRegistry_LoadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	v1 := "V1\n\nAttributes to be extracted:\n{attributes}\n{document}\n"
	path := filepath.Join(dir, UserTemplate)
	if err := os.WriteFile(path, []byte(v1), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewRegistry(dir, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	v2 := strings.Replace(v1, "V1", "V2", 1)
	if err := os.WriteFile(path, []byte(v2), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := r.User(); !strings.HasPrefix(got, "V2") {
		t.Errorf("User() = %q, want reloaded content", got)
	}
}

func TestRegistry_WatcherLifecycle(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(dir, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if err := r.StartWatching(context.Background()); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRegistry_Get_Unknown(t *testing.T) {
	r, err := NewRegistry("", nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if _, err := r.Get("nope.txt"); err == nil {
		t.Error("Get() of unknown template should fail")
	}
}
