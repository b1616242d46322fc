package localfs

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/smugsync/smugsync/internal/model"
)

// LoadAlbumImages enumerates the album directory's image files and
// replaces the album's image list in one shot. Files under a direct
// Developed/ child that share a name with an album file override the
// physical path (and size) of that file; the logical path stays in the
// album.
func LoadAlbumImages(album *model.Album) error {
	dirPath := album.DiskInfo.DiskPath

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("localfs: reading album dir: %w", err)
	}

	developed, err := developedVariants(dirPath)
	if err != nil {
		return err
	}

	var images []*model.Image

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if !model.IsImageFile(entry.Name(), info.Size()) {
			continue
		}

		disk := &model.DiskImageInfo{
			ImagePath: filepath.Join(dirPath, entry.Name()),
			Size:      info.Size(),
		}

		if dev, ok := developed[entry.Name()]; ok {
			disk.DevelopedPath = dev.path
			disk.Size = dev.size
		}

		images = append(images, &model.Image{
			AlbumRelativePath: album.RelativePath,
			Filename:          norm.NFC.String(entry.Name()),
			DiskInfo:          disk,
		})
	}

	album.SetImages(images)

	return nil
}

type developedFile struct {
	path string
	size int64
}

// developedVariants indexes the image files under the album's Developed/
// child by filename. A missing Developed/ directory yields an empty map.
func developedVariants(albumDir string) (map[string]developedFile, error) {
	devDir := filepath.Join(albumDir, developedDirName)

	entries, err := os.ReadDir(devDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("localfs: reading Developed dir: %w", err)
	}

	out := make(map[string]developedFile, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if !model.IsImageFile(entry.Name(), info.Size()) {
			continue
		}

		out[entry.Name()] = developedFile{
			path: filepath.Join(devDir, entry.Name()),
			size: info.Size(),
		}
	}

	return out, nil
}

// CreateFolder creates a directory for a downloaded folder under the
// parent's disk path. In dry-run mode the directory is not created but
// the info is still returned so the model stays consistent.
func CreateFolder(parentDiskPath, name string, dryRun bool) (*model.DiskFolderInfo, error) {
	diskPath := filepath.Join(parentDiskPath, name)

	if !dryRun {
		if err := os.MkdirAll(diskPath, 0o755); err != nil {
			return nil, fmt.Errorf("localfs: creating folder: %w", err)
		}
	}

	return &model.DiskFolderInfo{DiskPath: diskPath}, nil
}

// CreateAlbum creates a directory for a downloaded album under the
// parent's disk path, dry-run aware like CreateFolder.
func CreateAlbum(parentDiskPath, name string, dryRun bool) (*model.DiskAlbumInfo, error) {
	diskPath := filepath.Join(parentDiskPath, name)

	if !dryRun {
		if err := os.MkdirAll(diskPath, 0o755); err != nil {
			return nil, fmt.Errorf("localfs: creating album: %w", err)
		}
	}

	return &model.DiskAlbumInfo{DiskPath: diskPath}, nil
}

// DeleteImage removes an image's physical file.
func DeleteImage(img *model.Image, dryRun bool) error {
	if dryRun {
		return nil
	}

	if err := os.Remove(img.DiskInfo.Path()); err != nil {
		return fmt.Errorf("localfs: deleting image: %w", err)
	}

	return nil
}

// DeleteTree removes a folder or album directory recursively.
func DeleteTree(diskPath string, dryRun bool) error {
	if dryRun {
		return nil
	}

	if err := os.RemoveAll(diskPath); err != nil {
		return fmt.Errorf("localfs: deleting tree: %w", err)
	}

	return nil
}
