package logx

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const archiveSuffixLayout = "20060102-150405.000000000"

// RotateOptions configures a RotateWriter. Now is injectable for tests and
// defaults to time.Now.
type RotateOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	// MaxAgeDays prunes archives older than this many days; 0 keeps them
	// until MaxBackups evicts them.
	MaxAgeDays int
	Compress   bool
	Now        func() time.Time
}

// RotateWriter is an append-only log writer that rotates the active file
// when it crosses the size limit or the local day changes, keeping a bounded
// set of timestamped archives next to it.
type RotateWriter struct {
	mu sync.Mutex

	path     string
	dir      string
	base     string
	maxBytes int64
	backups  int
	ageDays  int
	compress bool
	now      func() time.Time

	f      *os.File
	size   int64
	day    string
	closed bool
}

// NewRotateWriter opens (or creates) the active file at opts.Path.
func NewRotateWriter(opts RotateOptions) (*RotateWriter, error) {
	path := strings.TrimSpace(opts.Path)
	switch {
	case path == "":
		return nil, errors.New("rotate: path is empty")
	case opts.MaxSizeMB <= 0:
		return nil, errors.New("rotate: max_size_mb must be > 0")
	case opts.MaxBackups <= 0:
		return nil, errors.New("rotate: max_backups must be > 0")
	case opts.MaxAgeDays < 0:
		return nil, errors.New("rotate: max_age_days must be >= 0")
	}

	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}
	if dir == "" {
		dir = "."
	}

	w := &RotateWriter{
		path:     path,
		dir:      dir,
		base:     filepath.Base(path),
		maxBytes: int64(opts.MaxSizeMB) * 1024 * 1024,
		backups:  opts.MaxBackups,
		ageDays:  opts.MaxAgeDays,
		compress: opts.Compress,
		now:      nowFn,
	}
	if err := w.openActiveLocked(); err != nil {
		return nil, err
	}
	w.day = localDay(nowFn())
	return w, nil
}

func (w *RotateWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, os.ErrClosed
	}

	now := w.now()
	dayChanged := localDay(now) != w.day
	overflows := w.size > 0 && w.size+int64(len(p)) > w.maxBytes
	if dayChanged || overflows {
		if err := w.rotateLocked(now); err != nil {
			return 0, err
		}
	}

	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotateWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *RotateWriter) rotateLocked(now time.Time) error {
	if w.f != nil {
		if err := w.f.Close(); err != nil {
			return err
		}
		w.f = nil
	}

	archive := fmt.Sprintf("%s.%s", w.path, now.In(time.Local).Format(archiveSuffixLayout))
	err := os.Rename(w.path, archive)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		// Reopen so subsequent writes still land somewhere.
		if openErr := w.openActiveLocked(); openErr != nil {
			return openErr
		}
		return err
	}
	if err == nil && w.compress {
		if err := gzipArchive(archive); err != nil {
			return err
		}
	}

	if err := w.openActiveLocked(); err != nil {
		return err
	}
	w.day = localDay(now)
	w.pruneArchivesLocked(now)
	return nil
}

func (w *RotateWriter) openActiveLocked() error {
	// #nosec G304 -- path comes from trusted config.
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.size = st.Size()
	return nil
}

func (w *RotateWriter) pruneArchivesLocked(now time.Time) {
	type archive struct {
		path string
		when time.Time
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	prefix := w.base + "."
	var found []archive
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasPrefix(ent.Name(), prefix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(ent.Name(), prefix), ".gz")
		when, err := time.ParseInLocation(archiveSuffixLayout, stamp, time.Local)
		if err != nil {
			continue
		}
		found = append(found, archive{path: filepath.Join(w.dir, ent.Name()), when: when})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].when.After(found[j].when) })

	var cutoff time.Time
	if w.ageDays > 0 {
		cutoff = now.AddDate(0, 0, -w.ageDays)
	}
	for i, a := range found {
		if i >= w.backups || (w.ageDays > 0 && a.when.Before(cutoff)) {
			_ = os.Remove(a.path)
		}
	}
}

func gzipArchive(path string) error {
	// #nosec G304 -- archive path is derived from trusted config.
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	tmp := path + ".gz.tmp"
	// #nosec G304
	dst, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(dst)
	_, copyErr := io.Copy(gz, src)
	gzErr := gz.Close()
	dstErr := dst.Close()
	if copyErr != nil || gzErr != nil || dstErr != nil {
		_ = os.Remove(tmp)
		return errors.Join(copyErr, gzErr, dstErr)
	}
	if err := os.Rename(tmp, path+".gz"); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Remove(path)
}

func localDay(ts time.Time) string {
	return ts.In(time.Local).Format("20060102")
}
