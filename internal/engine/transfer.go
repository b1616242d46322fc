package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/smugsync/smugsync/internal/localfs"
	"github.com/smugsync/smugsync/internal/model"
)

// TransferStats accumulates image and byte counts across concurrent
// handlers for the run summary.
type TransferStats struct {
	uploadedImages   atomic.Int64
	uploadedBytes    atomic.Int64
	downloadedImages atomic.Int64
	downloadedBytes  atomic.Int64
	deletedImages    atomic.Int64
}

// UploadedImages returns how many images were uploaded.
func (s *TransferStats) UploadedImages() int64 { return s.uploadedImages.Load() }

// UploadedBytes returns how many bytes were uploaded.
func (s *TransferStats) UploadedBytes() int64 { return s.uploadedBytes.Load() }

// DownloadedImages returns how many images were downloaded.
func (s *TransferStats) DownloadedImages() int64 { return s.downloadedImages.Load() }

// DownloadedBytes returns how many bytes were downloaded.
func (s *TransferStats) DownloadedBytes() int64 { return s.downloadedBytes.Load() }

// DeletedImages returns how many images were deleted (either side).
func (s *TransferStats) DeletedImages() int64 { return s.deletedImages.Load() }

// uploadMissingImages uploads every disk image absent from the online
// album, sequentially. Reports whether anything was (or in dry-run mode
// would have been) transferred.
func (e *Engine) uploadMissingImages(ctx context.Context, diskAlbum, onlineAlbum *model.Album) (bool, error) {
	online := indexByKey(onlineAlbum.Images())

	images := append([]*model.Image(nil), diskAlbum.Images()...)
	sort.Slice(images, func(i, j int) bool { return images[i].Filename < images[j].Filename })

	changed := false

	for _, img := range images {
		if _, ok := online[imageKey(img)]; ok {
			continue
		}

		changed = true

		if e.dryRun {
			e.logger.Info("engine: would upload image (dry run)",
				slog.String("image", img.RelativePath()))
			continue
		}

		n, err := e.conn.UploadImage(ctx, onlineAlbum.OnlineInfo.URI, img)
		if err != nil {
			return changed, err
		}

		e.transfers.uploadedImages.Add(1)
		e.transfers.uploadedBytes.Add(n)

		e.logger.Info("engine: uploaded image",
			slog.String("image", img.RelativePath()),
			slog.Int64("bytes", n),
		)
	}

	return changed, nil
}

// downloadMissingImages downloads every online image absent from the
// disk album into the album directory, sequentially.
func (e *Engine) downloadMissingImages(ctx context.Context, diskAlbum, onlineAlbum *model.Album) (bool, error) {
	disk := indexByKey(diskAlbum.Images())

	images := append([]*model.Image(nil), onlineAlbum.Images()...)
	sort.Slice(images, func(i, j int) bool { return images[i].Filename < images[j].Filename })

	changed := false

	for _, img := range images {
		if _, ok := disk[imageKey(img)]; ok {
			continue
		}

		changed = true

		if e.dryRun {
			e.logger.Info("engine: would download image (dry run)",
				slog.String("image", img.RelativePath()))
			continue
		}

		destPath := filepath.Join(diskAlbum.DiskInfo.DiskPath, img.Filename)

		n, err := e.conn.DownloadImage(ctx, img.OnlineInfo, destPath)
		if err != nil {
			return changed, err
		}

		e.transfers.downloadedImages.Add(1)
		e.transfers.downloadedBytes.Add(n)

		e.logger.Info("engine: downloaded image",
			slog.String("image", img.RelativePath()),
			slog.Int64("bytes", n),
		)
	}

	return changed, nil
}

// deleteDiskOnlyImages removes disk images with no online counterpart.
func (e *Engine) deleteDiskOnlyImages(diskAlbum, onlineAlbum *model.Album) (bool, error) {
	online := indexByKey(onlineAlbum.Images())

	changed := false

	for _, img := range diskAlbum.Images() {
		if _, ok := online[imageKey(img)]; ok {
			continue
		}

		changed = true

		if e.dryRun {
			e.logger.Info("engine: would delete local image (dry run)",
				slog.String("image", img.RelativePath()))
			continue
		}

		if err := localfs.DeleteImage(img, false); err != nil {
			return changed, err
		}

		e.transfers.deletedImages.Add(1)

		e.logger.Info("engine: deleted local image", slog.String("image", img.RelativePath()))
	}

	return changed, nil
}

// deleteOnlineOnlyImages removes online images with no disk counterpart.
func (e *Engine) deleteOnlineOnlyImages(ctx context.Context, diskAlbum, onlineAlbum *model.Album) (bool, error) {
	disk := indexByKey(diskAlbum.Images())

	changed := false

	for _, img := range onlineAlbum.Images() {
		if _, ok := disk[imageKey(img)]; ok {
			continue
		}

		changed = true

		if e.dryRun {
			e.logger.Info("engine: would delete online image (dry run)",
				slog.String("image", img.RelativePath()))
			continue
		}

		if err := e.conn.Delete(ctx, img.OnlineInfo.URI); err != nil {
			return changed, err
		}

		e.transfers.deletedImages.Add(1)

		e.logger.Info("engine: deleted online image", slog.String("image", img.RelativePath()))
	}

	return changed, nil
}
