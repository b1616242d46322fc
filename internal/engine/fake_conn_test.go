package engine

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/smugsync/smugsync/internal/model"
)

// fakeConn is a scripted in-memory service for engine tests. Album
// image lists are keyed by album URI; mutations are recorded so tests
// can assert exactly which remote calls happened.
type fakeConn struct {
	mu sync.Mutex

	// images holds the current online image list per album URI.
	images map[string][]*model.Image

	// lastUpdated is stamped on every album created through the fake.
	lastUpdated int64

	createdFolders []string
	createdAlbums  []string
	uploaded       []string
	deleted        []string

	uploadErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		images:      make(map[string][]*model.Image),
		lastUpdated: 5000,
	}
}

func (f *fakeConn) LoadAlbumImages(_ context.Context, album *model.Album) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := f.images[album.OnlineInfo.URI]

	images := make([]*model.Image, 0, len(stored))
	for _, img := range stored {
		images = append(images, &model.Image{
			AlbumRelativePath: album.RelativePath,
			Filename:          img.Filename,
			OnlineInfo:        img.OnlineInfo,
		})
	}

	album.SetImages(images)

	return nil
}

func (f *fakeConn) CreateFolder(_ context.Context, _ *model.OnlineFolderInfo, name string) (*model.OnlineFolderInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createdFolders = append(f.createdFolders, name)

	uri := "/folder/" + name

	return &model.OnlineFolderInfo{
		Name:          name,
		URI:           uri,
		SubFoldersURI: uri + "!folders",
		AlbumsURI:     uri + "!albums",
		NodeURI:       "/node/" + name,
	}, nil
}

func (f *fakeConn) CreateAlbum(_ context.Context, _ *model.OnlineFolderInfo, name string) (*model.OnlineAlbumInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createdAlbums = append(f.createdAlbums, name)

	uri := "/album/" + name

	return &model.OnlineAlbumInfo{
		Name:        name,
		URI:         uri,
		ImagesURI:   uri + "!images",
		LastUpdated: f.lastUpdated,
	}, nil
}

func (f *fakeConn) Delete(_ context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, uri)

	return nil
}

func (f *fakeConn) UploadImage(_ context.Context, albumURI string, img *model.Image) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.uploadErr != nil {
		return 0, f.uploadErr
	}

	f.uploaded = append(f.uploaded, img.RelativePath())

	f.images[albumURI] = append(f.images[albumURI], &model.Image{
		Filename: model.ServiceFileName(img.Filename),
		OnlineInfo: &model.OnlineImageInfo{
			URI:  fmt.Sprintf("%s/%s", albumURI, img.Filename),
			Size: img.DiskInfo.Size,
		},
	})

	return img.DiskInfo.Size, nil
}

func (f *fakeConn) DownloadImage(_ context.Context, info *model.OnlineImageInfo, destPath string) (int64, error) {
	if err := os.WriteFile(destPath, make([]byte, info.Size), 0o644); err != nil {
		return 0, err
	}

	return info.Size, nil
}

// addAlbum seeds an online album with the given image names and sizes,
// returning the OnlineAlbumInfo to hang on a model album.
func (f *fakeConn) addAlbum(name string, imageSizes map[string]int64) *model.OnlineAlbumInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	uri := "/album/" + name

	for imgName, size := range imageSizes {
		f.images[uri] = append(f.images[uri], &model.Image{
			Filename: imgName,
			OnlineInfo: &model.OnlineImageInfo{
				URI:  uri + "/" + imgName,
				Size: size,
			},
		})
	}

	return &model.OnlineAlbumInfo{
		Name:        name,
		URI:         uri,
		ImagesURI:   uri + "!images",
		ImageCount:  len(imageSizes),
		LastUpdated: f.lastUpdated,
	}
}

func (f *fakeConn) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.uploaded)
}
