// Package model holds the in-memory tree shared by the scanners and the
// reconciliation engine: folders containing albums containing images,
// each with an optional disk side and an optional online side.
package model

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/smugsync/smugsync/internal/syncstate"
)

// dateAlbumPattern matches album directory names that start with a date,
// optionally followed by " - <description>".
var dateAlbumPattern = regexp.MustCompile(`^([12][90]\d\d_[0-1]\d_[0-3]\d)( - .*)?$`)

// dateAlbumLayout is the time layout of the date portion.
const dateAlbumLayout = "2006_01_02"

// DiskFolderInfo is the physical side of a folder.
type DiskFolderInfo struct {
	DiskPath string
}

// DiskAlbumInfo is the physical side of an album, including the sync
// triplet loaded from the album directory (nil when never synced).
type DiskAlbumInfo struct {
	DiskPath string
	Sync     *syncstate.Triplet
}

// ModTime returns the album directory's current mtime in epoch seconds.
func (d *DiskAlbumInfo) ModTime() (float64, error) {
	info, err := os.Stat(d.DiskPath)
	if err != nil {
		return 0, fmt.Errorf("model: stat album dir: %w", err)
	}

	return float64(info.ModTime().UnixNano()) / float64(time.Second), nil
}

// OnlineFolderInfo is the service side of a folder. SubFoldersURI may be
// empty: the service omits the Folders URI for leaf folders.
type OnlineFolderInfo struct {
	Name          string
	URI           string
	SubFoldersURI string
	AlbumsURI     string
	NodeURI       string
}

// OnlineAlbumInfo is the service side of an album. LastUpdated is epoch
// seconds, the later of the album's LastUpdated and ImagesLastUpdated.
type OnlineAlbumInfo struct {
	Name        string
	URI         string
	ImagesURI   string
	ImageCount  int
	LastUpdated int64
}

// Album is a leaf in the tree: a directory of images and movies. Remote
// albums load their image list lazily because enumerating images is the
// most expensive service call.
type Album struct {
	RelativePath string
	DiskInfo     *DiskAlbumInfo
	OnlineInfo   *OnlineAlbumInfo

	mu         sync.Mutex
	images     []*Image
	imageCount int
}

// NewAlbum creates an album with the given relative path.
func NewAlbum(relativePath string) *Album {
	return &Album{RelativePath: relativePath}
}

// Name returns the album's directory name.
func (a *Album) Name() string { return path.Base(a.RelativePath) }

// OnDisk reports whether the album exists locally.
func (a *Album) OnDisk() bool { return a.DiskInfo != nil }

// Online reports whether the album exists on the service.
func (a *Album) Online() bool { return a.OnlineInfo != nil }

// Date extracts the album date from names matching "YYYY_MM_DD" or
// "YYYY_MM_DD - <description>".
func (a *Album) Date() (time.Time, bool) {
	m := dateAlbumPattern.FindStringSubmatch(a.Name())
	if m == nil {
		return time.Time{}, false
	}

	t, err := time.Parse(dateAlbumLayout, m[1])
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// DateOnlyName reports whether the album name is a bare date with no
// description. Date-only albums are considered overwritable by
// richer-named duplicates.
func (a *Album) DateOnlyName() bool {
	m := dateAlbumPattern.FindStringSubmatch(a.Name())
	return m != nil && m[2] == ""
}

// Images returns the materialized image list (nil when not loaded).
func (a *Album) Images() []*Image {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.images
}

// SetImages replaces the image list in one shot and updates ImageCount.
func (a *Album) SetImages(images []*Image) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.images = images
	a.imageCount = len(images)
}

// SetImageCount records the declared image count for a lazy album whose
// list has not been fetched yet.
func (a *Album) SetImageCount(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.imageCount = n
}

// ImageCount returns the album's image count, whether or not the list is
// materialized.
func (a *Album) ImageCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.imageCount
}

// ResetImages discards the materialized list so the next access reloads
// it. Used after transfers so subsequent comparisons see ground truth.
func (a *Album) ResetImages() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.images = nil
}

// RequiresImageLoad reports whether the image list must be (re)loaded
// before per-image operations.
func (a *Album) RequiresImageLoad() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.images == nil || a.imageCount > len(a.images)
}

// Folder is an interior node. Folders never contain images directly.
// Child maps are guarded by a mutex because sibling handlers may insert
// or remove children concurrently.
type Folder struct {
	RelativePath string
	DiskInfo     *DiskFolderInfo
	OnlineInfo   *OnlineFolderInfo

	mu         sync.RWMutex
	subFolders map[string]*Folder
	albums     map[string]*Album
}

// NewFolder creates an empty folder with the given relative path.
func NewFolder(relativePath string) *Folder {
	return &Folder{
		RelativePath: relativePath,
		subFolders:   make(map[string]*Folder),
		albums:       make(map[string]*Album),
	}
}

// Name returns the folder's directory name ("" for the root).
func (f *Folder) Name() string {
	if f.RelativePath == "" {
		return ""
	}

	return path.Base(f.RelativePath)
}

// IsRoot reports whether this is the distinguished root folder.
func (f *Folder) IsRoot() bool { return f.RelativePath == "" }

// OnDisk reports whether the folder exists locally.
func (f *Folder) OnDisk() bool { return f.DiskInfo != nil }

// Online reports whether the folder exists on the service.
func (f *Folder) Online() bool { return f.OnlineInfo != nil }

// AddSubFolder inserts a child folder under its name.
func (f *Folder) AddSubFolder(sub *Folder) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subFolders == nil {
		f.subFolders = make(map[string]*Folder)
	}

	f.subFolders[sub.Name()] = sub
}

// AddAlbum inserts a child album under its name.
func (f *Folder) AddAlbum(album *Album) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.albums == nil {
		f.albums = make(map[string]*Album)
	}

	f.albums[album.Name()] = album
}

// RemoveSubFolder detaches a child folder by name.
func (f *Folder) RemoveSubFolder(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.subFolders, name)
}

// RemoveAlbum detaches a child album by name.
func (f *Folder) RemoveAlbum(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.albums, name)
}

// SubFolder looks up a child folder by name.
func (f *Folder) SubFolder(name string) *Folder {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.subFolders[name]
}

// Album looks up a child album by name.
func (f *Folder) Album(name string) *Album {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.albums[name]
}

// SubFolderNames returns the child folder names, sorted.
func (f *Folder) SubFolderNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.subFolders))
	for name := range f.subFolders {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// AlbumNames returns the child album names, sorted.
func (f *Folder) AlbumNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.albums))
	for name := range f.albums {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// SnapshotSubFolders returns a copy of the child folder map, safe to
// iterate while handlers mutate the original.
func (f *Folder) SnapshotSubFolders() map[string]*Folder {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]*Folder, len(f.subFolders))
	for name, sub := range f.subFolders {
		out[name] = sub
	}

	return out
}

// SnapshotAlbums returns a copy of the child album map.
func (f *Folder) SnapshotAlbums() map[string]*Album {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]*Album, len(f.albums))
	for name, album := range f.albums {
		out[name] = album
	}

	return out
}
