// Package syncstate persists the per-album sync triplet that lets the
// engine skip deep album comparison. The triplet records when the album
// was last reconciled, what the remote LastUpdated stamp was at that
// moment, and what the album directory's mtime was.
package syncstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"
)

// FileName is the triplet file stored inside each album directory.
const FileName = "smugmug_sync.json"

// Delta is the tolerance, in seconds, for timestamp comparison between
// the recorded triplet and the current observations. Clock skew between
// the service and the local machine makes exact comparison useless.
const Delta = 360.0

// Triplet is the on-disk record. All fields are epoch seconds. If any
// field is present, all must be.
type Triplet struct {
	SyncTime   float64 `json:"sync_time"`
	OnlineTime float64 `json:"online_time"`
	DiskTime   float64 `json:"disk_time"`
}

// nowFunc returns the current wall time. Tests override it.
var nowFunc = time.Now

// Load reads the triplet for an album directory. An absent file means the
// album has never been reconciled and returns nil. A malformed file is
// deleted and likewise treated as never synced.
func Load(albumDir string, logger *slog.Logger) *Triplet {
	p := filepath.Join(albumDir, FileName)

	data, err := os.ReadFile(p)
	if err != nil {
		return nil
	}

	var t Triplet
	if err := json.Unmarshal(data, &t); err != nil {
		if logger != nil {
			logger.Warn("syncstate: resetting malformed triplet",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
		}

		_ = os.Remove(p)

		return nil
	}

	return &t
}

// Remember records a successful reconciliation: sync time is now, online
// time is the remote LastUpdated observed, disk time is the album
// directory's current mtime. The file is written to a temp name and
// renamed so a crash mid-write leaves either the old or the new content.
func Remember(albumDir string, onlineTime float64) (*Triplet, error) {
	info, err := os.Stat(albumDir)
	if err != nil {
		return nil, fmt.Errorf("syncstate: stat album dir: %w", err)
	}

	t := &Triplet{
		SyncTime:   float64(nowFunc().UnixNano()) / float64(time.Second),
		OnlineTime: onlineTime,
		DiskTime:   float64(info.ModTime().UnixNano()) / float64(time.Second),
	}

	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("syncstate: encoding triplet: %w", err)
	}

	p := filepath.Join(albumDir, FileName)
	tmp := p + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("syncstate: writing triplet: %w", err)
	}

	if err := os.Rename(tmp, p); err != nil {
		return nil, fmt.Errorf("syncstate: renaming triplet: %w", err)
	}

	return t, nil
}

// Reset deletes the triplet file, returning the album to the
// never-synced state. A missing file is not an error.
func Reset(albumDir string) error {
	err := os.Remove(filepath.Join(albumDir, FileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("syncstate: removing triplet: %w", err)
	}

	return nil
}

// Synced reports whether the album can be considered unchanged since the
// triplet was recorded. onlineLastUpdated is the remote album's current
// LastUpdated stamp; diskMtime is the album directory's current mtime.
// Both sides must be within Delta of the recorded values. A nil triplet
// (never synced) is never synced.
func (t *Triplet) Synced(onlineLastUpdated, diskMtime float64) bool {
	if t == nil {
		return false
	}

	if math.Abs(t.OnlineTime-onlineLastUpdated) > Delta {
		return false
	}

	if math.Abs(t.DiskTime-diskMtime) > Delta {
		return false
	}

	return true
}
