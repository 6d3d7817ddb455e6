package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type ctor func() int

func TestCatalog_RegisterGet(t *testing.T) {
	c := NewCatalog[ctor]()

	if err := c.Register("avg", func() int { return 1 }); err != nil {
		t.Fatalf("register: %v", err)
	}

	fn, err := c.Get("avg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fn() != 1 {
		t.Error("wrong constructor returned")
	}

	if _, err := c.Get("median"); !errors.Is(err, ErrUnknownID) {
		t.Errorf("expected ErrUnknownID, got %v", err)
	}
}

func TestCatalog_DuplicateAndEmpty(t *testing.T) {
	c := NewCatalog[ctor]()
	_ = c.Register("avg", func() int { return 1 })

	if err := c.Register("avg", func() int { return 2 }); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
	if err := c.Register("", func() int { return 3 }); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}
}

func TestCatalog_IDsSorted(t *testing.T) {
	c := NewCatalog[ctor]()
	for _, id := range []string{"zeta", "avg", "median"} {
		_ = c.Register(id, func() int { return 0 })
	}

	ids := c.IDs()
	want := []string{"avg", "median", "zeta"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d]: expected %q, got %q", i, want[i], ids[i])
		}
	}
	if c.Len() != 3 {
		t.Errorf("expected len 3, got %d", c.Len())
	}
}

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestDiscover(t *testing.T) {
	t.Run("finds and sorts manifests", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, "b.plugin.yaml", "id: median\nname: Median\nversion: 1.0.0\n")
		writeManifest(t, dir, filepath.Join("nested", "a.plugin.yaml"),
			"id: avg\nname: Average\nversion: 2.1.0\ndescription: running mean\n")
		writeManifest(t, dir, "notes.yaml", "id: ignored\n") // wrong suffix

		manifests, err := Discover(dir)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if len(manifests) != 2 {
			t.Fatalf("expected 2 manifests, got %d", len(manifests))
		}
		if manifests[0].ID != "avg" || manifests[1].ID != "median" {
			t.Errorf("manifests not sorted by id: %q, %q", manifests[0].ID, manifests[1].ID)
		}
		if manifests[0].Description != "running mean" {
			t.Errorf("description not parsed: %q", manifests[0].Description)
		}
		if manifests[0].Source() == "" {
			t.Error("source path not recorded")
		}
	})

	t.Run("missing search path skipped", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, "a.plugin.yaml", "id: avg\n")

		manifests, err := Discover(filepath.Join(dir, "absent"), dir)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if len(manifests) != 1 {
			t.Errorf("expected 1 manifest, got %d", len(manifests))
		}
	})

	t.Run("duplicate id across paths", func(t *testing.T) {
		a := t.TempDir()
		b := t.TempDir()
		writeManifest(t, a, "one.plugin.yaml", "id: avg\n")
		writeManifest(t, b, "two.plugin.yaml", "id: avg\n")

		if _, err := Discover(a, b); !errors.Is(err, ErrDuplicateID) {
			t.Errorf("expected ErrDuplicateID, got %v", err)
		}
	})

	t.Run("empty id rejected", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, "bad.plugin.yaml", "name: Nameless\n")

		if _, err := Discover(dir); !errors.Is(err, ErrEmptyID) {
			t.Errorf("expected ErrEmptyID, got %v", err)
		}
	})

	t.Run("yml suffix accepted", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, "a.plugin.yml", "id: avg\n")

		manifests, err := Discover(dir)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if len(manifests) != 1 {
			t.Errorf("expected 1 manifest, got %d", len(manifests))
		}
	})
}

func TestCatalog_Resolve(t *testing.T) {
	c := NewCatalog[ctor]()
	_ = c.Register("avg", func() int { return 1 })
	_ = c.Register("median", func() int { return 2 })

	dir := t.TempDir()
	writeManifest(t, dir, "avg.plugin.yaml", "id: avg\nname: Average\n")
	writeManifest(t, dir, "median.plugin.yaml", "id: median\nname: Median\n")

	manifests, err := Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	entries, err := c.Resolve(manifests)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Manifest.ID != "avg" || entries[0].New() != 1 {
		t.Error("entry not paired with its constructor")
	}

	t.Run("unknown id is an error", func(t *testing.T) {
		writeManifest(t, dir, "mystery.plugin.yaml", "id: mystery\n")
		manifests, err := Discover(dir)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if _, err := c.Resolve(manifests); !errors.Is(err, ErrUnknownID) {
			t.Errorf("expected ErrUnknownID, got %v", err)
		}
	})
}
