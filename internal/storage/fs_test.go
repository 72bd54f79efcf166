package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempSpool(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempSpool(t)
	content := []byte("table: users\ncolumn: name\n")
	if err := s.Write("req.yaml", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("req.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestRead_TooLarge(t *testing.T) {
	s := tempSpool(t)
	if err := s.Write("big.yaml", make([]byte, MaxFileSize+1)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Read("big.yaml"); err == nil {
		t.Error("expected size error")
	}
}

func TestDelete(t *testing.T) {
	s := tempSpool(t)
	_ = s.Write("del.yaml", []byte("bye"))
	if err := s.Delete("del.yaml"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.yaml"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove_CreatesTargetDir(t *testing.T) {
	s := tempSpool(t)
	_ = s.Write("req.yaml", []byte("data"))
	if err := s.Move("req.yaml", "processed/req.yaml"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("processed/req.yaml")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("req.yaml"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestMove_RefusesExistingTarget(t *testing.T) {
	s := tempSpool(t)
	_ = s.Write("req.yaml", []byte("new"))
	_ = s.Write("processed/req.yaml", []byte("old"))

	err := s.Move("req.yaml", "processed/req.yaml")
	if !errors.Is(err, ErrExists) {
		t.Fatalf("Move err = %v, want ErrExists", err)
	}
	got, _ := s.Read("processed/req.yaml")
	if string(got) != "old" {
		t.Errorf("archived content replaced: %q", got)
	}
	if ok, _ := s.Exists("req.yaml"); !ok {
		t.Error("source should stay in place")
	}
}

func TestExists(t *testing.T) {
	s := tempSpool(t)
	_ = s.Write("here.yaml", []byte("x"))
	if ok, err := s.Exists("here.yaml"); err != nil || !ok {
		t.Errorf("Exists(here.yaml) = %v, %v", ok, err)
	}
	if ok, err := s.Exists("gone.yaml"); err != nil || ok {
		t.Errorf("Exists(gone.yaml) = %v, %v", ok, err)
	}
	if _, err := s.Exists("../escape.yaml"); err == nil {
		t.Error("expected error for a path outside the spool")
	}
}

func TestList_TopLevelRequestsOnly(t *testing.T) {
	s := tempSpool(t)
	_ = s.Write("b.yml", []byte("b"))
	_ = s.Write("a.yaml", []byte("a"))
	_ = s.Write("processed/done.yaml", []byte("done"))
	_ = s.Write("readme.txt", []byte("not a request"))
	_ = s.Write(".hidden.yaml", []byte("skip"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	if items[0].Path != "a.yaml" || items[1].Path != "b.yml" {
		t.Errorf("unexpected order: %+v", items)
	}
	if len(items[0].Checksum) != 64 {
		t.Errorf("checksum = %q", items[0].Checksum)
	}
}

func TestIsRequestFile(t *testing.T) {
	cases := map[string]bool{
		"a.yaml":              true,
		"a.YML":               true,
		"a.json":              false,
		".promptdb-tmp-12345": false,
		"dir/x.yml":           true,
	}
	for name, want := range cases {
		if got := IsRequestFile(name); got != want {
			t.Errorf("IsRequestFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestRel(t *testing.T) {
	s := tempSpool(t)
	rel, err := s.Rel(filepath.Join(s.Root(), "req.yaml"))
	if err != nil || rel != "req.yaml" {
		t.Errorf("Rel = %q, %v", rel, err)
	}
	if _, err := s.Rel(filepath.Dir(s.Root())); err == nil {
		t.Error("expected error for path outside root")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempSpool(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.yaml",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempSpool(t)
	_ = s.Write("atomic.yaml", []byte("original"))
	if err := s.Write("atomic.yaml", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.yaml")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".promptdb-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "promptdb-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("expected not-a-directory error, got %v", err)
	}
}
