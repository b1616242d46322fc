package model

import (
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlbumDate(t *testing.T) {
	tests := []struct {
		name     string
		wantDate string
		wantOK   bool
		dateOnly bool
	}{
		{"2023_07_01", "2023-07-01", true, true},
		{"2023_07_01 - Trip to Rome", "2023-07-01", true, false},
		{"1999_12_31", "1999-12-31", true, true},
		{"2023_07_01-Trip", "", false, false},
		{"Rome 2023", "", false, false},
		{"2023_13_01", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			album := NewAlbum("Trips/" + tt.name)

			date, ok := album.Date()
			require.Equal(t, tt.wantOK, ok)

			if ok {
				want, err := time.Parse("2006-01-02", tt.wantDate)
				require.NoError(t, err)
				assert.True(t, date.Equal(want))
			}

			assert.Equal(t, tt.dateOnly, album.DateOnlyName())
		})
	}
}

func TestAlbumLazyImages(t *testing.T) {
	album := NewAlbum("A/B")
	album.SetImageCount(3)

	assert.True(t, album.RequiresImageLoad(), "unloaded album requires load")
	assert.Equal(t, 3, album.ImageCount())

	images := []*Image{
		{AlbumRelativePath: "A/B", Filename: "1.jpg"},
		{AlbumRelativePath: "A/B", Filename: "2.jpg"},
		{AlbumRelativePath: "A/B", Filename: "3.jpg"},
	}
	album.SetImages(images)

	assert.False(t, album.RequiresImageLoad())
	assert.Len(t, album.Images(), album.ImageCount())

	album.ResetImages()
	assert.True(t, album.RequiresImageLoad(), "reset forces reload")
	assert.Equal(t, 3, album.ImageCount(), "count survives reset")
}

func TestFolderChildren(t *testing.T) {
	parent := NewFolder("Trips")

	sub := NewFolder(path.Join(parent.RelativePath, "Europe"))
	parent.AddSubFolder(sub)

	album := NewAlbum(path.Join(parent.RelativePath, "2023_07_01"))
	parent.AddAlbum(album)

	// relative_path == join(parent.relative_path, name)
	assert.Equal(t, path.Join(parent.RelativePath, sub.Name()), sub.RelativePath)
	assert.Equal(t, path.Join(parent.RelativePath, album.Name()), album.RelativePath)

	assert.Same(t, sub, parent.SubFolder("Europe"))
	assert.Same(t, album, parent.Album("2023_07_01"))
	assert.Nil(t, parent.SubFolder("missing"))

	parent.RemoveSubFolder("Europe")
	parent.RemoveAlbum("2023_07_01")
	assert.Empty(t, parent.SubFolderNames())
	assert.Empty(t, parent.AlbumNames())
}

func TestFolderNamesSorted(t *testing.T) {
	parent := NewFolder("")
	for _, name := range []string{"zoo", "alpha", "mid"} {
		parent.AddSubFolder(NewFolder(name))
		parent.AddAlbum(NewAlbum(name + "_album"))
	}

	assert.Equal(t, []string{"alpha", "mid", "zoo"}, parent.SubFolderNames())
	assert.Equal(t, []string{"alpha_album", "mid_album", "zoo_album"}, parent.AlbumNames())
}

func TestSnapshotIsACopy(t *testing.T) {
	parent := NewFolder("")
	parent.AddSubFolder(NewFolder("a"))

	snap := parent.SnapshotSubFolders()
	parent.RemoveSubFolder("a")

	assert.Len(t, snap, 1, "snapshot unaffected by later mutation")
	assert.Nil(t, parent.SubFolder("a"))
}

func TestRootFolderStats(t *testing.T) {
	root := NewRootFolder()

	assert.True(t, root.IsRoot())
	assert.Equal(t, "", root.RelativePath)

	root.Stats.AddFolders(2)
	root.Stats.AddAlbums(3)
	root.Stats.AddImages(40)

	assert.Equal(t, "2 folders, 3 albums, 40 images", root.Stats.String())
}
