package job

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// TempSweepJob deletes ingestion temp files left behind by a crashed
// process. Files younger than maxAge are kept since a request may still
// own them.
type TempSweepJob struct {
	dir    string
	prefix string
	maxAge time.Duration
	now    func() time.Time
}

func NewTempSweepJob(dir, prefix string, maxAge time.Duration) *TempSweepJob {
	if dir == "" {
		dir = os.TempDir()
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &TempSweepJob{dir: dir, prefix: prefix, maxAge: maxAge, now: time.Now}
}

func (j *TempSweepJob) Name() string {
	return "temp_sweep"
}

func (j *TempSweepJob) Run(ctx context.Context) error {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return err
	}
	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), j.prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			logutil.GetLogger(ctx).Warn("remove stale temp file failed", zap.String("name", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("stale temp files removed", zap.Int("count", removed))
	}
	return nil
}
