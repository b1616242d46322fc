package smugmug

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/smugsync/smugsync/internal/model"
)

// remoteScanConcurrency bounds sibling folder fetches during the scan.
const remoteScanConcurrency = 8

// ScanRemote builds the online mirror of the tree starting from the
// connection's root folder. Albums are leaves with lazy image lists;
// only folder and album metadata is fetched here. Sibling sub-folders
// are scanned concurrently; child-map and stats accumulation are safe
// because the folder maps are mutex-guarded and stats are atomic.
func ScanRemote(ctx context.Context, conn *Connection, logger *slog.Logger) (*model.RootFolder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("smugmug: starting remote scan", slog.String("root_folder_uri", conn.RootFolderURI()))

	root := model.NewRootFolder()

	info, err := conn.GetFolder(ctx, conn.RootFolderURI())
	if err != nil {
		return nil, fmt.Errorf("smugmug: fetching root folder: %w", err)
	}

	root.OnlineInfo = info

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(remoteScanConcurrency)

	err = scanFolder(ctx, g, conn, root, &root.Folder, logger)
	if werr := g.Wait(); err == nil {
		err = werr
	}

	if err != nil {
		return nil, err
	}

	logger.Info("smugmug: remote scan complete", slog.String("stats", root.Stats.String()))

	return root, nil
}

// scanFolder attaches a folder's albums and sub-folders. Sub-folder
// recursion goes through the errgroup when a slot is free; otherwise it
// runs inline so a full group never blocks scheduling its own children.
func scanFolder(
	ctx context.Context,
	g *errgroup.Group,
	conn *Connection,
	root *model.RootFolder,
	folder *model.Folder,
	logger *slog.Logger,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	albums, err := conn.ListAlbums(ctx, folder.OnlineInfo)
	if err != nil {
		return fmt.Errorf("smugmug: listing albums of %q: %w", folder.RelativePath, err)
	}

	for _, albumInfo := range albums {
		album := model.NewAlbum(path.Join(folder.RelativePath, albumInfo.Name))
		album.OnlineInfo = albumInfo
		album.SetImageCount(albumInfo.ImageCount)

		folder.AddAlbum(album)
		root.Stats.AddAlbums(1)
		root.Stats.AddImages(albumInfo.ImageCount)
	}

	subFolders, err := conn.ListSubFolders(ctx, folder.OnlineInfo)
	if err != nil {
		return fmt.Errorf("smugmug: listing sub-folders of %q: %w", folder.RelativePath, err)
	}

	for _, subInfo := range subFolders {
		if conn.IsTestRootFolderURI(subInfo.URI) {
			// The test folder receives redirected uploads; scanning it
			// would make the tree recurse into itself.
			continue
		}

		sub := model.NewFolder(path.Join(folder.RelativePath, subInfo.Name))
		sub.OnlineInfo = subInfo

		folder.AddSubFolder(sub)
		root.Stats.AddFolders(1)

		scheduled := g.TryGo(func() error {
			return scanFolder(ctx, g, conn, root, sub, logger)
		})
		if !scheduled {
			if err := scanFolder(ctx, g, conn, root, sub, logger); err != nil {
				return err
			}
		}
	}

	logger.Debug("smugmug: folder scanned",
		slog.String("path", folder.RelativePath),
		slog.Int("albums", len(albums)),
		slog.Int("sub_folders", len(subFolders)),
	)

	return nil
}
