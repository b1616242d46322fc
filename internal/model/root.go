package model

import (
	"fmt"
	"sync/atomic"
)

// Stats accumulates scan totals on the root folder. Counters are atomic
// because the remote scanner accumulates from concurrent sibling fetches.
type Stats struct {
	folders atomic.Int64
	albums  atomic.Int64
	images  atomic.Int64
}

// AddFolders increments the folder count.
func (s *Stats) AddFolders(n int) { s.folders.Add(int64(n)) }

// AddAlbums increments the album count.
func (s *Stats) AddAlbums(n int) { s.albums.Add(int64(n)) }

// AddImages increments the image count.
func (s *Stats) AddImages(n int) { s.images.Add(int64(n)) }

// Folders returns the folder count.
func (s *Stats) Folders() int { return int(s.folders.Load()) }

// Albums returns the album count.
func (s *Stats) Albums() int { return int(s.albums.Load()) }

// Images returns the image count.
func (s *Stats) Images() int { return int(s.images.Load()) }

// String renders the totals for the scan summary.
func (s *Stats) String() string {
	return fmt.Sprintf("%d folders, %d albums, %d images",
		s.Folders(), s.Albums(), s.Images())
}

// RootFolder is the distinguished tree root: empty relative path plus
// the scan statistics accumulator.
type RootFolder struct {
	Folder
	Stats Stats
}

// NewRootFolder creates an empty root.
func NewRootFolder() *RootFolder {
	return &RootFolder{
		Folder: Folder{
			subFolders: make(map[string]*Folder),
			albums:     make(map[string]*Album),
		},
	}
}
