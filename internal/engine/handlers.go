package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smugsync/smugsync/internal/localfs"
	"github.com/smugsync/smugsync/internal/model"
	"github.com/smugsync/smugsync/internal/syncstate"
)

// registerHandlers wires the canonical handler set into the dispatcher.
func (e *Engine) registerHandlers() {
	e.dispatcher.Subscribe(UploadFolder, "engine", e.handleUploadFolder)
	e.dispatcher.Subscribe(UploadAlbum, "engine", e.handleUploadAlbum)
	e.dispatcher.Subscribe(DeleteFolderOnline, "engine", e.handleDeleteFolderOnline)
	e.dispatcher.Subscribe(DeleteAlbumOnline, "engine", e.handleDeleteAlbumOnline)

	e.dispatcher.Subscribe(DownloadFolder, "engine", e.handleDownloadFolder)
	e.dispatcher.Subscribe(DownloadAlbum, "engine", e.handleDownloadAlbum)
	e.dispatcher.Subscribe(DeleteFolderDisk, "engine", e.handleDeleteFolderDisk)
	e.dispatcher.Subscribe(DeleteAlbumDisk, "engine", e.handleDeleteAlbumDisk)

	e.dispatcher.Subscribe(SyncAlbums, "engine", e.handleSyncAlbums)
}

// handleUploadFolder creates the source folder's remote counterpart and
// re-publishes add events for every child, so the subtree is created
// with bounded concurrency instead of one deep synchronous walk.
func (e *Engine) handleUploadFolder(ctx context.Context, payload any) error {
	ev, ok := payload.(FolderEvent)
	if !ok {
		return fmt.Errorf("engine: upload_folder payload is %T", payload)
	}

	source, parent := ev.Source, ev.TargetParent
	node := model.NewFolder(source.RelativePath)

	if e.dryRun {
		e.logger.Info("engine: would create online folder (dry run)",
			slog.String("folder", source.RelativePath))
	} else {
		if parent.OnlineInfo == nil {
			return fmt.Errorf("engine: parent of %q has no online info", source.RelativePath)
		}

		info, err := e.conn.CreateFolder(ctx, parent.OnlineInfo, source.Name())
		if err != nil {
			return err
		}

		node.OnlineInfo = info

		e.logger.Info("engine: created online folder", slog.String("folder", source.RelativePath))
	}

	parent.AddSubFolder(node)

	for _, name := range source.AlbumNames() {
		album := source.Album(name)
		if album.ImageCount() == 0 {
			continue
		}

		e.dispatcher.Fire(ctx, UploadAlbum, AlbumEvent{Source: album, TargetParent: node})
	}

	for _, name := range source.SubFolderNames() {
		e.dispatcher.Fire(ctx, UploadFolder, FolderEvent{Source: source.SubFolder(name), TargetParent: node})
	}

	return nil
}

// handleUploadAlbum creates the album shell on the service, uploads
// every disk image, and records the sync triplet.
func (e *Engine) handleUploadAlbum(ctx context.Context, payload any) error {
	ev, ok := payload.(AlbumEvent)
	if !ok {
		return fmt.Errorf("engine: upload_album payload is %T", payload)
	}

	source, parent := ev.Source, ev.TargetParent

	if err := e.ensureDiskImages(source); err != nil {
		return err
	}

	if e.dryRun {
		e.logger.Info("engine: would create online album and upload images (dry run)",
			slog.String("album", source.RelativePath),
			slog.Int("images", source.ImageCount()),
		)

		return nil
	}

	if parent.OnlineInfo == nil {
		return fmt.Errorf("engine: parent of %q has no online info", source.RelativePath)
	}

	created, err := e.conn.CreateAlbum(ctx, parent.OnlineInfo, source.Name())
	if err != nil {
		return err
	}

	onlineAlbum := model.NewAlbum(source.RelativePath)
	onlineAlbum.OnlineInfo = created

	if _, err := e.uploadMissingImages(ctx, source, onlineAlbum); err != nil {
		return err
	}

	parent.AddAlbum(onlineAlbum)

	triplet, err := syncstate.Remember(source.DiskInfo.DiskPath, float64(created.LastUpdated))
	if err != nil {
		return err
	}

	source.DiskInfo.Sync = triplet

	e.logger.Info("engine: created online album",
		slog.String("album", source.RelativePath),
		slog.Int("images", source.ImageCount()),
	)

	return nil
}

// handleDownloadFolder mirrors handleUploadFolder toward the disk.
func (e *Engine) handleDownloadFolder(ctx context.Context, payload any) error {
	ev, ok := payload.(FolderEvent)
	if !ok {
		return fmt.Errorf("engine: download_folder payload is %T", payload)
	}

	source, parent := ev.Source, ev.TargetParent

	if parent.DiskInfo == nil {
		return fmt.Errorf("engine: parent of %q has no disk info", source.RelativePath)
	}

	info, err := localfs.CreateFolder(parent.DiskInfo.DiskPath, source.Name(), e.dryRun)
	if err != nil {
		return err
	}

	if e.dryRun {
		e.logger.Info("engine: would create local folder (dry run)",
			slog.String("folder", source.RelativePath))
	} else {
		e.logger.Info("engine: created local folder", slog.String("folder", source.RelativePath))
	}

	node := model.NewFolder(source.RelativePath)
	node.DiskInfo = info

	parent.AddSubFolder(node)

	for _, name := range source.AlbumNames() {
		album := source.Album(name)
		if album.ImageCount() == 0 {
			continue
		}

		e.dispatcher.Fire(ctx, DownloadAlbum, AlbumEvent{Source: album, TargetParent: node})
	}

	for _, name := range source.SubFolderNames() {
		e.dispatcher.Fire(ctx, DownloadFolder, FolderEvent{Source: source.SubFolder(name), TargetParent: node})
	}

	return nil
}

// handleDownloadAlbum creates the album directory, downloads every
// remote image, and records the sync triplet.
func (e *Engine) handleDownloadAlbum(ctx context.Context, payload any) error {
	ev, ok := payload.(AlbumEvent)
	if !ok {
		return fmt.Errorf("engine: download_album payload is %T", payload)
	}

	source, parent := ev.Source, ev.TargetParent

	if parent.DiskInfo == nil {
		return fmt.Errorf("engine: parent of %q has no disk info", source.RelativePath)
	}

	info, err := localfs.CreateAlbum(parent.DiskInfo.DiskPath, source.Name(), e.dryRun)
	if err != nil {
		return err
	}

	diskAlbum := model.NewAlbum(source.RelativePath)
	diskAlbum.DiskInfo = info

	if err := e.ensureOnlineImages(ctx, source); err != nil {
		return err
	}

	if _, err := e.downloadMissingImages(ctx, diskAlbum, source); err != nil {
		return err
	}

	parent.AddAlbum(diskAlbum)

	if e.dryRun {
		return nil
	}

	if err := localfs.LoadAlbumImages(diskAlbum); err != nil {
		return err
	}

	triplet, err := syncstate.Remember(info.DiskPath, float64(source.OnlineInfo.LastUpdated))
	if err != nil {
		return err
	}

	diskAlbum.DiskInfo.Sync = triplet

	e.logger.Info("engine: created local album",
		slog.String("album", source.RelativePath),
		slog.Int("images", diskAlbum.ImageCount()),
	)

	return nil
}

func (e *Engine) handleDeleteFolderOnline(ctx context.Context, payload any) error {
	ev, ok := payload.(DeleteFolderEvent)
	if !ok {
		return fmt.Errorf("engine: delete_folder_online payload is %T", payload)
	}

	if e.dryRun {
		e.logger.Info("engine: would delete online folder (dry run)",
			slog.String("folder", ev.Target.RelativePath))
	} else {
		if err := e.conn.Delete(ctx, ev.Target.OnlineInfo.URI); err != nil {
			return err
		}

		e.logger.Info("engine: deleted online folder", slog.String("folder", ev.Target.RelativePath))
	}

	ev.Parent.RemoveSubFolder(ev.Target.Name())

	return nil
}

func (e *Engine) handleDeleteAlbumOnline(ctx context.Context, payload any) error {
	ev, ok := payload.(DeleteAlbumEvent)
	if !ok {
		return fmt.Errorf("engine: delete_album_online payload is %T", payload)
	}

	if e.dryRun {
		e.logger.Info("engine: would delete online album (dry run)",
			slog.String("album", ev.Target.RelativePath))
	} else {
		if err := e.conn.Delete(ctx, ev.Target.OnlineInfo.URI); err != nil {
			return err
		}

		e.logger.Info("engine: deleted online album", slog.String("album", ev.Target.RelativePath))
	}

	ev.Parent.RemoveAlbum(ev.Target.Name())

	return nil
}

func (e *Engine) handleDeleteFolderDisk(_ context.Context, payload any) error {
	ev, ok := payload.(DeleteFolderEvent)
	if !ok {
		return fmt.Errorf("engine: delete_folder_disk payload is %T", payload)
	}

	if e.dryRun {
		e.logger.Info("engine: would delete local folder (dry run)",
			slog.String("folder", ev.Target.RelativePath))
	} else {
		if err := localfs.DeleteTree(ev.Target.DiskInfo.DiskPath, false); err != nil {
			return err
		}

		e.logger.Info("engine: deleted local folder", slog.String("folder", ev.Target.RelativePath))
	}

	ev.Parent.RemoveSubFolder(ev.Target.Name())

	return nil
}

func (e *Engine) handleDeleteAlbumDisk(_ context.Context, payload any) error {
	ev, ok := payload.(DeleteAlbumEvent)
	if !ok {
		return fmt.Errorf("engine: delete_album_disk payload is %T", payload)
	}

	if e.dryRun {
		e.logger.Info("engine: would delete local album (dry run)",
			slog.String("album", ev.Target.RelativePath))
	} else {
		if err := localfs.DeleteTree(ev.Target.DiskInfo.DiskPath, false); err != nil {
			return err
		}

		e.logger.Info("engine: deleted local album", slog.String("album", ev.Target.RelativePath))
	}

	ev.Parent.RemoveAlbum(ev.Target.Name())

	return nil
}

// handleSyncAlbums converges a divergent album pair: transfer the
// missing images in the permitted direction(s), apply permitted deletes,
// then reload both sides and record a fresh triplet so the next
// comparison is quick.
func (e *Engine) handleSyncAlbums(ctx context.Context, payload any) error {
	ev, ok := payload.(SyncAlbumsEvent)
	if !ok {
		return fmt.Errorf("engine: sync_album payload is %T", payload)
	}

	disk, online := ev.DiskAlbum, ev.OnlineAlbum

	if err := e.ensureDiskImages(disk); err != nil {
		return err
	}

	if err := e.ensureOnlineImages(ctx, online); err != nil {
		return err
	}

	changed := false

	if ev.Action.Upload {
		c, err := e.uploadMissingImages(ctx, disk, online)
		changed = changed || c

		if err != nil {
			return err
		}
	}

	if ev.Action.Download {
		c, err := e.downloadMissingImages(ctx, disk, online)
		changed = changed || c

		if err != nil {
			return err
		}
	}

	if ev.Action.DeleteOnDisk {
		c, err := e.deleteDiskOnlyImages(disk, online)
		changed = changed || c

		if err != nil {
			return err
		}
	}

	if ev.Action.DeleteOnline {
		c, err := e.deleteOnlineOnlyImages(ctx, disk, online)
		changed = changed || c

		if err != nil {
			return err
		}
	}

	if !changed || e.dryRun {
		return nil
	}

	// Reload both sides so later comparisons see ground truth.
	if err := localfs.LoadAlbumImages(disk); err != nil {
		return err
	}

	online.ResetImages()

	if err := e.ensureOnlineImages(ctx, online); err != nil {
		return err
	}

	triplet, err := syncstate.Remember(disk.DiskInfo.DiskPath, float64(online.OnlineInfo.LastUpdated))
	if err != nil {
		return err
	}

	disk.DiskInfo.Sync = triplet

	e.logger.Info("engine: albums converged", slog.String("album", disk.RelativePath))

	return nil
}
