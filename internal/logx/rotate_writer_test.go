package logx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func listArchives(t *testing.T, dir, base string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir err=%v", err)
	}
	var out []string
	for _, ent := range entries {
		if strings.HasPrefix(ent.Name(), base+".") {
			out = append(out, ent.Name())
		}
	}
	return out
}

func TestNewRotateWriterValidation(t *testing.T) {
	cases := []RotateOptions{
		{Path: "", MaxSizeMB: 1, MaxBackups: 1},
		{Path: "./a.log", MaxSizeMB: 0, MaxBackups: 1},
		{Path: "./a.log", MaxSizeMB: 1, MaxBackups: 0},
		{Path: "./a.log", MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: -1},
	}
	for i, opts := range cases {
		if _, err := NewRotateWriter(opts); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestRotateWriterRotatesBySize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	clock := &fakeClock{now: time.Date(2026, 2, 1, 12, 0, 0, 1, time.Local)}

	w, err := NewRotateWriter(RotateOptions{
		Path:       path,
		MaxSizeMB:  1,
		MaxBackups: 10,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("NewRotateWriter err=%v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if _, err := w.Write([]byte(strings.Repeat("a", 900*1024))); err != nil {
		t.Fatalf("first write err=%v", err)
	}
	if _, err := w.Write([]byte(strings.Repeat("b", 300*1024))); err != nil {
		t.Fatalf("second write err=%v", err)
	}

	if got := listArchives(t, dir, "access.log"); len(got) != 1 {
		t.Fatalf("expected 1 archive, got %d (%v)", len(got), got)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat active err=%v", err)
	}
	if st.Size() != 300*1024 {
		t.Fatalf("active size = %d, want %d", st.Size(), 300*1024)
	}
}

func TestRotateWriterRotatesByDay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	clock := &fakeClock{now: time.Date(2026, 2, 1, 23, 59, 0, 123, time.Local)}

	w, err := NewRotateWriter(RotateOptions{
		Path:       path,
		MaxSizeMB:  100,
		MaxBackups: 10,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("NewRotateWriter err=%v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if _, err := w.Write([]byte("day one\n")); err != nil {
		t.Fatalf("write err=%v", err)
	}
	clock.now = clock.now.Add(2 * time.Minute)
	if _, err := w.Write([]byte("day two\n")); err != nil {
		t.Fatalf("write err=%v", err)
	}

	if got := listArchives(t, dir, "access.log"); len(got) != 1 {
		t.Fatalf("expected 1 archive after day change, got %d (%v)", len(got), got)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read active err=%v", err)
	}
	if string(b) != "day two\n" {
		t.Fatalf("active content = %q", string(b))
	}
}

func TestRotateWriterPrunesOldBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	clock := &fakeClock{now: time.Date(2026, 2, 1, 8, 0, 0, 0, time.Local)}

	w, err := NewRotateWriter(RotateOptions{
		Path:       path,
		MaxSizeMB:  100,
		MaxBackups: 2,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("NewRotateWriter err=%v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	for i := 0; i < 4; i++ {
		if _, err := w.Write([]byte("line\n")); err != nil {
			t.Fatalf("write %d err=%v", i, err)
		}
		clock.now = clock.now.AddDate(0, 0, 1)
	}
	if _, err := w.Write([]byte("last\n")); err != nil {
		t.Fatalf("final write err=%v", err)
	}

	if got := listArchives(t, dir, "access.log"); len(got) != 2 {
		t.Fatalf("expected 2 archives after pruning, got %d (%v)", len(got), got)
	}
}

func TestRotateWriterCompressesArchives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	clock := &fakeClock{now: time.Date(2026, 2, 1, 8, 0, 0, 0, time.Local)}

	w, err := NewRotateWriter(RotateOptions{
		Path:       path,
		MaxSizeMB:  100,
		MaxBackups: 5,
		Compress:   true,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("NewRotateWriter err=%v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if _, err := w.Write([]byte("old\n")); err != nil {
		t.Fatalf("write err=%v", err)
	}
	clock.now = clock.now.AddDate(0, 0, 1)
	if _, err := w.Write([]byte("new\n")); err != nil {
		t.Fatalf("write err=%v", err)
	}

	archives := listArchives(t, dir, "access.log")
	if len(archives) != 1 {
		t.Fatalf("expected 1 archive, got %v", archives)
	}
	if !strings.HasSuffix(archives[0], ".gz") {
		t.Fatalf("archive not compressed: %q", archives[0])
	}
}

func TestRotateWriterClosedWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	w, err := NewRotateWriter(RotateOptions{Path: path, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewRotateWriter err=%v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close err=%v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close err=%v", err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Fatalf("expected write-after-close error")
	}
}
