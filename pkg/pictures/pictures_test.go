package pictures

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

func newFixture(t *testing.T) afero.Fs {
	t.Helper()

	fsys := afero.NewMemMapFs()
	for _, name := range []string{
		"/pics/Alice Smith.jpeg",
		"/pics/Conan O’Brien.jpeg",
		"/pics/notes.txt",
		"/pics/.cache/Bob.jpeg",
	} {
		if err := afero.WriteFile(fsys, name, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
	return fsys
}

func TestFind(t *testing.T) {
	d := NewDirectory(newFixture(t), "/pics/")

	path, ok := d.Find("Alice Smith")
	if !ok {
		t.Fatal("Expected picture for Alice Smith")
	}
	if path != filepath.Join("/pics", "Alice Smith.jpeg") {
		t.Errorf("path = %q", path)
	}

	if path, ok := d.Find("Bob"); ok {
		t.Errorf("Bob's picture is in a hidden directory, got %q", path)
	}
}

func TestNames(t *testing.T) {
	d := NewDirectory(newFixture(t), "/pics")

	names, err := d.Names()
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}

	sort.Strings(names)
	want := []string{"Alice Smith", "Conan O’Brien"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestNamesMissingDirectory(t *testing.T) {
	d := NewDirectory(afero.NewMemMapFs(), "/nowhere")

	if _, err := d.Names(); err == nil {
		t.Error("Expected error for missing directory")
	}
}
