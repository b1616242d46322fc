// Package localfs walks the on-disk photo tree and performs the disk
// side effects of sync handlers (create, load, delete).
package localfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/smugsync/smugsync/internal/model"
	"github.com/smugsync/smugsync/internal/syncstate"
)

// developedDirName is the special child directory holding developed
// variants of raw images. Files inside it override same-named siblings.
const developedDirName = "Developed"

// skipDirNames are directory basenames (lowercased) that never take part
// in a sync.
var skipDirNames = map[string]bool{
	"originals": true,
	"lightroom": true,
	"developed": true,
}

// Scanner walks a base directory and builds the disk-side tree.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner creates a Scanner.
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Scanner{logger: logger}
}

// Scan walks baseDir depth-first and returns the populated root. A
// directory with images becomes an album, one with sub-directories
// becomes a folder, one with neither is skipped. Per-directory read
// errors are logged and skip that subtree only; an unreadable base
// directory is fatal.
func (s *Scanner) Scan(ctx context.Context, baseDir string) (*model.RootFolder, error) {
	s.logger.Info("localfs: starting disk scan", slog.String("base_dir", baseDir))

	if _, err := os.ReadDir(baseDir); err != nil {
		return nil, fmt.Errorf("localfs: reading base dir: %w", err)
	}

	root := model.NewRootFolder()
	root.DiskInfo = &model.DiskFolderInfo{DiskPath: baseDir}

	if err := s.scanInto(ctx, &root.Folder, root, baseDir); err != nil {
		return nil, err
	}

	s.logger.Info("localfs: disk scan complete", slog.String("stats", root.Stats.String()))

	return root, nil
}

// scanInto classifies each kept child directory of folder's disk path
// and attaches the resulting albums and sub-folders.
func (s *Scanner) scanInto(ctx context.Context, folder *model.Folder, root *model.RootFolder, dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		// Subtree-level failure: log and skip (base dir errors are caught
		// by the caller).
		s.logger.Warn("localfs: skipping unreadable directory",
			slog.String("path", dirPath),
			slog.String("error", err.Error()),
		)

		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if shouldSkip(entry) {
			continue
		}

		childPath := filepath.Join(dirPath, entry.Name())
		// NFC-normalize logical names so macOS NFD directory names compare
		// equal to the service's names. Disk paths keep the original form.
		childRelPath := path.Join(folder.RelativePath, norm.NFC.String(entry.Name()))

		childEntries, err := os.ReadDir(childPath)
		if err != nil {
			s.logger.Warn("localfs: skipping unreadable directory",
				slog.String("path", childPath),
				slog.String("error", err.Error()),
			)

			continue
		}

		switch {
		case hasImages(childEntries):
			album := model.NewAlbum(childRelPath)
			album.DiskInfo = &model.DiskAlbumInfo{
				DiskPath: childPath,
				Sync:     syncstate.Load(childPath, s.logger),
			}

			if err := LoadAlbumImages(album); err != nil {
				s.logger.Warn("localfs: skipping unreadable album",
					slog.String("path", childPath),
					slog.String("error", err.Error()),
				)

				continue
			}

			folder.AddAlbum(album)
			root.Stats.AddAlbums(1)
			root.Stats.AddImages(album.ImageCount())

		case hasSubDirs(childEntries):
			sub := model.NewFolder(childRelPath)
			sub.DiskInfo = &model.DiskFolderInfo{DiskPath: childPath}

			folder.AddSubFolder(sub)
			root.Stats.AddFolders(1)

			if err := s.scanInto(ctx, sub, root, childPath); err != nil {
				return err
			}

		default:
			s.logger.Debug("localfs: skipping empty directory", slog.String("path", childPath))
		}
	}

	return nil
}

// shouldSkip filters out entries that never take part in a sync: plain
// files, hidden directories, the skip-list names, and anything from a
// Picasa export.
func shouldSkip(entry os.DirEntry) bool {
	if !entry.IsDir() {
		return true
	}

	name := entry.Name()
	if strings.HasPrefix(name, ".") {
		return true
	}

	if strings.Contains(name, "Picasa") {
		return true
	}

	return skipDirNames[strings.ToLower(name)]
}

// hasImages reports whether the entries contain at least one direct
// image file.
func hasImages(entries []os.DirEntry) bool {
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if model.IsImageFile(entry.Name(), info.Size()) {
			return true
		}
	}

	return false
}

// hasSubDirs reports whether the entries contain at least one directory
// that survives the skip filter.
func hasSubDirs(entries []os.DirEntry) bool {
	for _, entry := range entries {
		if !shouldSkip(entry) {
			return true
		}
	}

	return false
}
