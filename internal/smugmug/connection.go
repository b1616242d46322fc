package smugmug

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/smugsync/smugsync/internal/model"
)

// albumSettleDelay is the pause between creating a node and reading the
// album record back; node creation is eventually consistent.
const albumSettleDelay = 500 * time.Millisecond

// Connection is the domain layer over Client: it resolves the account's
// root folder and exposes the folder/album/image operations the engine
// needs.
type Connection struct {
	client     *Client
	account    string
	testUpload bool
	logger     *slog.Logger

	rootFolderURI     string
	testRootFolderURI string
}

// NewConnection wraps a client for the given account nickname. When
// testUpload is set, all traffic is redirected under the account's Test
// folder.
func NewConnection(client *Client, account string, testUpload bool, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}

	return &Connection{
		client:     client,
		account:    account,
		testUpload: testUpload,
		logger:     logger,
	}
}

// Connect resolves the account's root folder URI. Must be called before
// any other operation.
func (c *Connection) Connect(ctx context.Context) error {
	raw, err := c.client.get(ctx, "user/"+c.account, nil)
	if err != nil {
		return fmt.Errorf("smugmug: fetching user %s: %w", c.account, err)
	}

	var user userEnvelope
	if err := unmarshalInto(raw, &user); err != nil {
		return err
	}

	if user.User.Uris.Folder.URI == "" {
		return fmt.Errorf("smugmug: user %s has no root folder URI", c.account)
	}

	c.rootFolderURI = user.User.Uris.Folder.URI
	c.testRootFolderURI = c.rootFolderURI + "/Test"

	c.logger.Info("smugmug: connected",
		slog.String("account", c.account),
		slog.String("root_folder_uri", c.RootFolderURI()),
	)

	return nil
}

// RootFolderURI returns the effective scan/upload root: the account root,
// or the Test folder in test-upload mode.
func (c *Connection) RootFolderURI() string {
	if c.testUpload {
		return c.testRootFolderURI
	}

	return c.rootFolderURI
}

// IsTestRootFolderURI identifies the test folder so scans can skip it
// and avoid recursing into redirected uploads.
func (c *Connection) IsTestRootFolderURI(uri string) bool {
	return uri == c.testRootFolderURI
}

// GetFolder fetches a folder record by URI.
func (c *Connection) GetFolder(ctx context.Context, uri string) (*model.OnlineFolderInfo, error) {
	raw, err := c.client.get(ctx, uri, nil)
	if err != nil {
		return nil, err
	}

	var envelope folderEnvelope
	if err := unmarshalInto(raw, &envelope); err != nil {
		return nil, err
	}

	return envelope.Folder.toModel(), nil
}

// ListSubFolders paginates a folder's sub-folders. Folders without a
// Folders URI have none.
func (c *Connection) ListSubFolders(ctx context.Context, folder *model.OnlineFolderInfo) ([]*model.OnlineFolderInfo, error) {
	if folder.SubFoldersURI == "" {
		return nil, nil
	}

	records, err := paginate[folderRecord](ctx, c.client, folder.SubFoldersURI, "Folder")
	if err != nil {
		return nil, err
	}

	out := make([]*model.OnlineFolderInfo, 0, len(records))
	for i := range records {
		out = append(out, records[i].toModel())
	}

	return out, nil
}

// ListAlbums paginates a folder's albums.
func (c *Connection) ListAlbums(ctx context.Context, folder *model.OnlineFolderInfo) ([]*model.OnlineAlbumInfo, error) {
	if folder.AlbumsURI == "" {
		return nil, nil
	}

	records, err := paginate[albumRecord](ctx, c.client, folder.AlbumsURI, "Album")
	if err != nil {
		return nil, err
	}

	out := make([]*model.OnlineAlbumInfo, 0, len(records))

	for i := range records {
		info, err := records[i].toModel()
		if err != nil {
			return nil, err
		}

		out = append(out, info)
	}

	return out, nil
}

// LoadAlbumImages materializes the remote album's image list. Images the
// service is still processing are excluded: they have no stable content
// to compare or transfer yet.
func (c *Connection) LoadAlbumImages(ctx context.Context, album *model.Album) error {
	records, err := paginate[imageRecord](ctx, c.client, album.OnlineInfo.ImagesURI, "AlbumImage")
	if err != nil {
		return err
	}

	images := make([]*model.Image, 0, len(records))

	for i := range records {
		rec := &records[i]
		if rec.Processing {
			c.logger.Debug("smugmug: skipping processing image",
				slog.String("album", album.RelativePath),
				slog.String("filename", rec.FileName),
			)

			continue
		}

		images = append(images, &model.Image{
			AlbumRelativePath: album.RelativePath,
			Filename:          rec.FileName,
			OnlineInfo:        rec.toModel(),
		})
	}

	album.SetImages(images)

	return nil
}

// CreateFolder creates a sub-folder on the service.
func (c *Connection) CreateFolder(ctx context.Context, parent *model.OnlineFolderInfo, name string) (*model.OnlineFolderInfo, error) {
	if parent == nil || parent.SubFoldersURI == "" {
		return nil, fmt.Errorf("smugmug: parent folder %q cannot hold sub-folders", folderName(parent))
	}

	raw, err := c.client.post(ctx, parent.SubFoldersURI, map[string]string{
		"Name":    name,
		"UrlName": EncodeURLName(name),
		"Privacy": "Unlisted",
	})
	if err != nil {
		return nil, err
	}

	var envelope folderEnvelope
	if err := unmarshalInto(raw, &envelope); err != nil {
		return nil, err
	}

	return envelope.Folder.toModel(), nil
}

// CreateAlbum creates an album on the service. POSTing to the
// FolderAlbums URI returns 400, so this goes through the node endpoint
// instead: create a child node of type Album, wait for the service to
// settle, then read the album record the node points at.
func (c *Connection) CreateAlbum(ctx context.Context, parent *model.OnlineFolderInfo, name string) (*model.OnlineAlbumInfo, error) {
	if parent == nil || parent.NodeURI == "" {
		return nil, fmt.Errorf("smugmug: parent folder %q has no node URI", folderName(parent))
	}

	raw, err := c.client.post(ctx, parent.NodeURI+"!children", map[string]string{
		"Name": name,
		"Type": "Album",
	})
	if err != nil {
		return nil, err
	}

	var node nodeEnvelope
	if err := unmarshalInto(raw, &node); err != nil {
		return nil, err
	}

	if node.Node.Uris.Album.URI == "" {
		return nil, fmt.Errorf("smugmug: created node for %q has no album URI", name)
	}

	if err := c.client.sleepFunc(ctx, albumSettleDelay); err != nil {
		return nil, fmt.Errorf("smugmug: waiting for album creation: %w", err)
	}

	raw, err = c.client.get(ctx, node.Node.Uris.Album.URI, nil)
	if err != nil {
		return nil, err
	}

	var album albumEnvelope
	if err := unmarshalInto(raw, &album); err != nil {
		return nil, err
	}

	return album.Album.toModel()
}

// Delete removes an entity (folder, album or image) by URI.
func (c *Connection) Delete(ctx context.Context, uri string) error {
	return c.client.del(ctx, uri)
}

// UploadImage uploads an image's physical file to an album, returning
// the number of bytes sent.
func (c *Connection) UploadImage(ctx context.Context, albumURI string, img *model.Image) (int64, error) {
	data, err := os.ReadFile(img.DiskInfo.Path())
	if err != nil {
		return 0, fmt.Errorf("smugmug: reading %s for upload: %w", img.DiskInfo.Path(), err)
	}

	if err := c.client.upload(ctx, albumURI, img.Filename, data, ""); err != nil {
		return 0, err
	}

	return int64(len(data)), nil
}

// DownloadImage streams an image to destPath (via temp file + rename).
// Photos come from the archived original; videos need a second
// round-trip through LargestVideo because the archive is photo-only.
func (c *Connection) DownloadImage(ctx context.Context, info *model.OnlineImageInfo, destPath string) (int64, error) {
	downloadURL := info.ArchivedURI

	if info.IsVideo {
		if info.LargestVideoURI == "" {
			return 0, fmt.Errorf("smugmug: video %s has no LargestVideo URI", info.URI)
		}

		raw, err := c.client.get(ctx, info.LargestVideoURI, nil)
		if err != nil {
			return 0, err
		}

		var envelope largestVideoEnvelope
		if err := unmarshalInto(raw, &envelope); err != nil {
			return 0, err
		}

		downloadURL = envelope.LargestVideo.URL
	}

	if downloadURL == "" {
		return 0, fmt.Errorf("smugmug: image %s has no download URL", info.URI)
	}

	return c.client.download(ctx, downloadURL, destPath)
}

// EncodeURLName converts a display name to the service's UrlName form:
// spaces become dashes, commas are dropped, and the first letter is
// capitalized with the rest lowercased.
func EncodeURLName(name string) string {
	s := strings.ReplaceAll(name, " ", "-")
	s = strings.ReplaceAll(s, ",", "")

	if s == "" {
		return s
	}

	first, size := utf8.DecodeRuneInString(s)

	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}

func folderName(info *model.OnlineFolderInfo) string {
	if info == nil {
		return "<nil>"
	}

	return info.Name
}

func unmarshalInto(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("smugmug: decoding response: %w", err)
	}

	return nil
}
