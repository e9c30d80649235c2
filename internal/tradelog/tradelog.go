// Package tradelog appends manual corrections to a daily JSON-lines journal.
package tradelog

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"trade-report/internal/interfaces"
	"trade-report/internal/logger"
	"trade-report/internal/types"
)

const (
	dayLayout  = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
	ext        = ".jsonl"
)

// Journal writes one file per day under dir.
type Journal struct {
	mu  sync.Mutex
	dir string
	loc *time.Location
	now func() time.Time
}

var _ interfaces.Journal = (*Journal)(nil)

// New returns a journal rooted at dir. Days are cut in loc; nil means UTC.
func New(dir string, loc *time.Location) *Journal {
	if loc == nil {
		loc = time.UTC
	}
	return &Journal{dir: dir, loc: loc, now: time.Now}
}

func (j *Journal) Dir() string {
	return j.dir
}

func (j *Journal) dailyFilepath(t time.Time) string {
	return filepath.Join(j.dir, t.In(j.loc).Format(dayLayout)+ext)
}

// Append stamps c with the current time and writes it as one line.
func (j *Journal) Append(ctx context.Context, c types.Correction) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().In(j.loc)
	c.Time = now.Format(timeLayout)
	p := j.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// Read returns the corrections recorded on day, reading the compressed file
// when the plain one is gone. A day without a journal yields no entries.
func (j *Journal) Read(day time.Time) ([]types.Correction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	p := j.dailyFilepath(day)
	var r io.Reader
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		f, err = os.Open(p + ".gz")
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		defer f.Close()
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		r = gr
	} else if err != nil {
		return nil, err
	} else {
		defer f.Close()
		r = f
	}

	var out []types.Correction
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var c types.Correction
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return out, fmt.Errorf("journal %s: %w", filepath.Base(p), err)
		}
		out = append(out, c)
	}
	return out, sc.Err()
}

// CompressOlder gzips day files older than retentionDays and returns how many
// it compressed. Zero or negative retention disables compression.
func (j *Journal) CompressOlder(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := os.ReadDir(j.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	now := j.now().In(j.loc)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.loc).AddDate(0, 0, -retentionDays)
	compressed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		day, err := time.ParseInLocation(dayLayout, strings.TrimSuffix(e.Name(), ext), j.loc)
		if err != nil || !day.Before(cutoff) {
			continue
		}
		p := filepath.Join(j.dir, e.Name())
		if err := gzipFile(p); err != nil {
			logger.ErrorWithErr(ctx, "Failed to compress journal file", err, "file", p)
			continue
		}
		compressed++
	}
	if compressed > 0 {
		logger.Info(ctx, "Compressed old journal files", "count", compressed, "retentionDays", retentionDays)
	}
	return compressed, nil
}

// gzipFile replaces p with p.gz. An existing p.gz wins and p is removed.
func gzipFile(p string) error {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}

	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(gz)
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		os.Remove(gz)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(p)
}
