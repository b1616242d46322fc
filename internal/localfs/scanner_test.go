package localfs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smugsync/smugsync/internal/model"
	"github.com/smugsync/smugsync/internal/syncstate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeFile creates a file with n bytes of content, making parents as needed.
func writeFile(t *testing.T, path string, n int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, n), 0o644))
}

func TestScanBuildsTree(t *testing.T) {
	base := t.TempDir()

	writeFile(t, filepath.Join(base, "Trips", "2023_07_01 - Rome", "IMG_1.jpg"), 10)
	writeFile(t, filepath.Join(base, "Trips", "2023_07_01 - Rome", "IMG_2.jpg"), 10)
	writeFile(t, filepath.Join(base, "Trips", "2023_07_01 - Rome", "clip.mov"), 10)
	writeFile(t, filepath.Join(base, "Family", "2022_01_01", "IMG_9.jpeg"), 10)

	root, err := NewScanner(testLogger()).Scan(context.Background(), base)
	require.NoError(t, err)

	trips := root.SubFolder("Trips")
	require.NotNil(t, trips)
	assert.Equal(t, "Trips", trips.RelativePath)

	rome := trips.Album("2023_07_01 - Rome")
	require.NotNil(t, rome)
	assert.Equal(t, 3, rome.ImageCount())
	assert.False(t, rome.RequiresImageLoad(), "disk albums load eagerly")

	family := root.SubFolder("Family")
	require.NotNil(t, family)
	require.NotNil(t, family.Album("2022_01_01"))

	assert.Equal(t, 2, root.Stats.Folders())
	assert.Equal(t, 2, root.Stats.Albums())
	assert.Equal(t, 4, root.Stats.Images())
}

func TestScanSkipRules(t *testing.T) {
	base := t.TempDir()

	// Should all be invisible to the scan.
	writeFile(t, filepath.Join(base, ".hidden", "IMG_1.jpg"), 10)
	writeFile(t, filepath.Join(base, "Originals", "IMG_1.jpg"), 10)
	writeFile(t, filepath.Join(base, "Lightroom", "IMG_1.jpg"), 10)
	writeFile(t, filepath.Join(base, "From Picasa3", "IMG_1.jpg"), 10)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "Empty"), 0o755))

	// A file at top level is not a directory and is skipped.
	writeFile(t, filepath.Join(base, "stray.jpg"), 10)

	// One real album so the tree is not empty.
	writeFile(t, filepath.Join(base, "Keep", "IMG_1.jpg"), 10)

	root, err := NewScanner(testLogger()).Scan(context.Background(), base)
	require.NoError(t, err)

	assert.Equal(t, []string{"Keep"}, root.AlbumNames())
	assert.Empty(t, root.SubFolderNames())
	assert.Equal(t, 1, root.Stats.Albums())
	assert.Equal(t, 0, root.Stats.Folders())
}

func TestScanDirWithOnlyTripletIsSkipped(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "Stale", syncstate.FileName), 30)

	root, err := NewScanner(testLogger()).Scan(context.Background(), base)
	require.NoError(t, err)

	assert.Empty(t, root.AlbumNames())
	assert.Empty(t, root.SubFolderNames())
}

func TestScanZeroByteFilesIgnored(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "Album", "empty.jpg"), 0)
	writeFile(t, filepath.Join(base, "Album", "real.jpg"), 5)

	root, err := NewScanner(testLogger()).Scan(context.Background(), base)
	require.NoError(t, err)

	album := root.Album("Album")
	require.NotNil(t, album)
	require.Equal(t, 1, album.ImageCount())
	assert.Equal(t, "real.jpg", album.Images()[0].Filename)
}

func TestScanDevelopedVariantOverride(t *testing.T) {
	base := t.TempDir()
	albumDir := filepath.Join(base, "2021_05_05 - Shoot")

	writeFile(t, filepath.Join(albumDir, "IMG_1.jpg"), 10)
	writeFile(t, filepath.Join(albumDir, "IMG_2.jpg"), 10)
	writeFile(t, filepath.Join(albumDir, "Developed", "IMG_1.jpg"), 99)
	// Developed-only files do not appear as album images.
	writeFile(t, filepath.Join(albumDir, "Developed", "IMG_3.jpg"), 50)

	root, err := NewScanner(testLogger()).Scan(context.Background(), base)
	require.NoError(t, err)

	album := root.Album("2021_05_05 - Shoot")
	require.NotNil(t, album)
	require.Equal(t, 2, album.ImageCount())

	var overridden *model.Image
	for _, img := range album.Images() {
		if img.Filename == "IMG_1.jpg" {
			overridden = img
		}
	}

	require.NotNil(t, overridden)
	assert.True(t, overridden.DiskInfo.HasDeveloped())
	assert.Equal(t, filepath.Join(albumDir, "Developed", "IMG_1.jpg"), overridden.DiskInfo.Path())
	assert.Equal(t, int64(99), overridden.DiskInfo.Size, "developed size is authoritative")
	assert.Equal(t, "2021_05_05 - Shoot/IMG_1.jpg", overridden.RelativePath(), "logical path stays in the album")
}

func TestScanAlbumWithSubDirsIsStillAnAlbum(t *testing.T) {
	base := t.TempDir()

	writeFile(t, filepath.Join(base, "Mixed", "IMG_1.jpg"), 10)
	writeFile(t, filepath.Join(base, "Mixed", "Nested", "IMG_2.jpg"), 10)

	root, err := NewScanner(testLogger()).Scan(context.Background(), base)
	require.NoError(t, err)

	require.NotNil(t, root.Album("Mixed"), "images win over sub-directories")
	assert.Nil(t, root.SubFolder("Mixed"))
}

func TestScanLoadsTriplet(t *testing.T) {
	base := t.TempDir()
	albumDir := filepath.Join(base, "Album")
	writeFile(t, filepath.Join(albumDir, "IMG_1.jpg"), 10)

	_, err := syncstate.Remember(albumDir, 12345)
	require.NoError(t, err)

	root, err := NewScanner(testLogger()).Scan(context.Background(), base)
	require.NoError(t, err)

	album := root.Album("Album")
	require.NotNil(t, album)
	require.NotNil(t, album.DiskInfo.Sync)
	assert.Equal(t, float64(12345), album.DiskInfo.Sync.OnlineTime)
}

func TestScanMissingBaseDirIsFatal(t *testing.T) {
	_, err := NewScanner(testLogger()).Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestCreateFolderDryRun(t *testing.T) {
	base := t.TempDir()

	info, err := CreateFolder(base, "New", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "New"), info.DiskPath)

	_, statErr := os.Stat(info.DiskPath)
	assert.True(t, os.IsNotExist(statErr), "dry run must not create directories")

	info, err = CreateFolder(base, "New", false)
	require.NoError(t, err)

	st, statErr := os.Stat(info.DiskPath)
	require.NoError(t, statErr)
	assert.True(t, st.IsDir())
}

func TestDeleteImage(t *testing.T) {
	base := t.TempDir()
	p := filepath.Join(base, "IMG_1.jpg")
	writeFile(t, p, 10)

	img := &model.Image{
		AlbumRelativePath: "A",
		Filename:          "IMG_1.jpg",
		DiskInfo:          &model.DiskImageInfo{ImagePath: p, Size: 10},
	}

	require.NoError(t, DeleteImage(img, true))
	_, err := os.Stat(p)
	require.NoError(t, err, "dry run must not delete")

	require.NoError(t, DeleteImage(img, false))
	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}
