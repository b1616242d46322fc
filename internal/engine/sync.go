package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smugsync/smugsync/internal/model"
	"github.com/smugsync/smugsync/internal/policy"
	"github.com/smugsync/smugsync/internal/syncstate"
)

// Connection is the remote side the engine needs. *smugmug.Connection
// implements it; tests substitute a scripted fake.
type Connection interface {
	LoadAlbumImages(ctx context.Context, album *model.Album) error
	CreateFolder(ctx context.Context, parent *model.OnlineFolderInfo, name string) (*model.OnlineFolderInfo, error)
	CreateAlbum(ctx context.Context, parent *model.OnlineFolderInfo, name string) (*model.OnlineAlbumInfo, error)
	Delete(ctx context.Context, uri string) error
	UploadImage(ctx context.Context, albumURI string, img *model.Image) (int64, error)
	DownloadImage(ctx context.Context, info *model.OnlineImageInfo, destPath string) (int64, error)
}

// Options configures a sync run.
type Options struct {
	Action policy.Action

	// DryRun computes and logs intended work without mutating disk or
	// remote state.
	DryRun bool

	// ForceRefresh disables the sync-triplet shortcut so every album
	// pair is compared deeply.
	ForceRefresh bool

	Logger *slog.Logger
}

// Engine walks the two trees and converges them through the dispatcher.
type Engine struct {
	conn       Connection
	action     policy.Action
	dryRun     bool
	force      bool
	logger     *slog.Logger
	dispatcher *Dispatcher
	transfers  TransferStats
}

// New creates an engine and registers the canonical handler set.
func New(conn Connection, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		conn:       conn,
		action:     opts.Action,
		dryRun:     opts.DryRun,
		force:      opts.ForceRefresh,
		logger:     logger,
		dispatcher: NewDispatcher(logger),
	}

	e.registerHandlers()

	return e
}

// Dispatcher exposes the event counters for the run summary.
func (e *Engine) Dispatcher() *Dispatcher { return e.dispatcher }

// Transfers exposes the byte/image counters for the run summary.
func (e *Engine) Transfers() *TransferStats { return &e.transfers }

// Synchronize reconciles the two scanned trees according to the action
// flags: an upload pass (disk as source, service as target) and/or a
// download pass (service as source, disk as target). Each pass walks
// the source tree, fires events for every divergence, and drains the
// dispatcher before the next pass starts.
func (e *Engine) Synchronize(ctx context.Context, diskRoot, onlineRoot *model.RootFolder) error {
	if e.action.Upload {
		e.logger.Info("engine: starting upload pass")

		if err := e.pass(ctx, &diskRoot.Folder, &onlineRoot.Folder, OnlineGroup); err != nil {
			return fmt.Errorf("engine: upload pass: %w", err)
		}
	}

	if e.action.Download {
		e.logger.Info("engine: starting download pass")

		if err := e.pass(ctx, &onlineRoot.Folder, &diskRoot.Folder, DiskGroup); err != nil {
			return fmt.Errorf("engine: download pass: %w", err)
		}
	}

	return nil
}

// pass walks one direction and drains the dispatcher. A walk error does
// not leave events behind: the drain always runs.
func (e *Engine) pass(ctx context.Context, source, target *model.Folder, group Group) error {
	walkErr := e.walkFolder(ctx, source, target, group)
	joinErr := e.dispatcher.Join(ctx)

	if walkErr != nil {
		return walkErr
	}

	return joinErr
}

// walkFolder reconciles one folder whose counterpart exists on both
// sides: albums first in sorted order, then sub-folders, then (when the
// policy permits) deletes of target children absent from the source.
func (e *Engine) walkFolder(ctx context.Context, source, target *model.Folder, group Group) error {
	if source.RelativePath != target.RelativePath {
		return fmt.Errorf("engine: walking mismatched folders %q and %q", source.RelativePath, target.RelativePath)
	}

	for _, name := range source.AlbumNames() {
		album := source.Album(name)
		if album.ImageCount() == 0 {
			continue
		}

		if err := e.walkAlbum(ctx, album, target.Album(name), target, group); err != nil {
			return err
		}
	}

	for _, name := range source.SubFolderNames() {
		sub := source.SubFolder(name)

		targetSub := target.SubFolder(name)
		if targetSub == nil {
			e.dispatcher.Fire(ctx, group.FolderAdd, FolderEvent{Source: sub, TargetParent: target})
			continue
		}

		if err := e.walkFolder(ctx, sub, targetSub, group); err != nil {
			return err
		}
	}

	if group.deletePermitted(e.action) {
		// Snapshots: delete handlers mutate the live child maps.
		for name, sub := range target.SnapshotSubFolders() {
			if source.SubFolder(name) == nil {
				e.dispatcher.Fire(ctx, group.FolderDelete, DeleteFolderEvent{Target: sub, Parent: target})
			}
		}

		for name, album := range target.SnapshotAlbums() {
			if source.Album(name) == nil {
				e.dispatcher.Fire(ctx, group.AlbumDelete, DeleteAlbumEvent{Target: album, Parent: target})
			}
		}
	}

	return nil
}

// walkAlbum reconciles one album: missing counterpart fires an ADD,
// divergence fires a SYNC, equality refreshes the triplet when the
// comparison was not already backed by one.
func (e *Engine) walkAlbum(ctx context.Context, source, target *model.Album, targetParent *model.Folder, group Group) error {
	if target == nil {
		e.dispatcher.Fire(ctx, group.AlbumAdd, AlbumEvent{Source: source, TargetParent: targetParent})
		return nil
	}

	diskAlbum, onlineAlbum := orientAlbums(source, target)
	if diskAlbum == nil || onlineAlbum == nil {
		return fmt.Errorf("engine: album pair %q is missing a side", source.RelativePath)
	}

	equal, wasQuick, err := e.compareAlbums(ctx, diskAlbum, onlineAlbum)
	if err != nil {
		return err
	}

	if !equal {
		e.dispatcher.Fire(ctx, SyncAlbums, SyncAlbumsEvent{
			DiskAlbum:   diskAlbum,
			OnlineAlbum: onlineAlbum,
			Action:      e.action,
		})

		return nil
	}

	// Equality established without a usable triplet (missing, or the
	// comparison had to list images). Record it so the next run is quick.
	if (diskAlbum.DiskInfo.Sync == nil || !wasQuick) && !e.dryRun {
		triplet, err := syncstate.Remember(diskAlbum.DiskInfo.DiskPath, float64(onlineAlbum.OnlineInfo.LastUpdated))
		if err != nil {
			return err
		}

		diskAlbum.DiskInfo.Sync = triplet
	}

	return nil
}

// orientAlbums maps a (source, target) pair to (disk, online) regardless
// of sync direction.
func orientAlbums(source, target *model.Album) (diskAlbum, onlineAlbum *model.Album) {
	if source.OnDisk() {
		return source, target
	}

	return target, source
}
