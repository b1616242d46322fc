// Package engine reconciles the two scanned trees. The walk compares
// disk and online hierarchies in lock-step and publishes typed events on
// a bounded-concurrency dispatcher; handlers perform the side effects
// and may publish further events for their children.
package engine

import (
	"github.com/smugsync/smugsync/internal/model"
	"github.com/smugsync/smugsync/internal/policy"
)

// Kind tags an event with its handler registry key.
type Kind string

// Event kinds. The upload/delete-online kinds target the service; the
// download/delete-disk kinds target the local tree. SyncAlbums is shared
// by both directions.
const (
	UploadFolder       Kind = "upload_folder"
	UploadAlbum        Kind = "upload_album"
	DeleteFolderOnline Kind = "delete_folder_online"
	DeleteAlbumOnline  Kind = "delete_album_online"

	DownloadFolder   Kind = "download_folder"
	DownloadAlbum    Kind = "download_album"
	DeleteFolderDisk Kind = "delete_folder_disk"
	DeleteAlbumDisk  Kind = "delete_album_disk"

	SyncAlbums Kind = "sync_album"
)

// Group bundles the event kinds for one sync direction and knows whether
// the policy permits deletes on that direction's target side.
type Group struct {
	FolderAdd    Kind
	AlbumAdd     Kind
	FolderDelete Kind
	AlbumDelete  Kind

	deletePermitted func(policy.Action) bool
}

// OnlineGroup targets the service (upload direction).
var OnlineGroup = Group{
	FolderAdd:       UploadFolder,
	AlbumAdd:        UploadAlbum,
	FolderDelete:    DeleteFolderOnline,
	AlbumDelete:     DeleteAlbumOnline,
	deletePermitted: func(a policy.Action) bool { return a.DeleteOnline },
}

// DiskGroup targets the local tree (download direction).
var DiskGroup = Group{
	FolderAdd:       DownloadFolder,
	AlbumAdd:        DownloadAlbum,
	FolderDelete:    DeleteFolderDisk,
	AlbumDelete:     DeleteAlbumDisk,
	deletePermitted: func(a policy.Action) bool { return a.DeleteOnDisk },
}

// FolderEvent asks a handler to create Source's counterpart under
// TargetParent. The parent is carried in the payload so the tree stays
// free of parent pointers.
type FolderEvent struct {
	Source       *model.Folder
	TargetParent *model.Folder
}

// AlbumEvent asks a handler to create Source's counterpart under
// TargetParent and transfer all of its images.
type AlbumEvent struct {
	Source       *model.Album
	TargetParent *model.Folder
}

// DeleteFolderEvent asks a handler to remove Target from its side and
// detach it from Parent.
type DeleteFolderEvent struct {
	Target *model.Folder
	Parent *model.Folder
}

// DeleteAlbumEvent asks a handler to remove Target from its side and
// detach it from Parent.
type DeleteAlbumEvent struct {
	Target *model.Album
	Parent *model.Folder
}

// SyncAlbumsEvent asks the sync handler to converge a divergent album
// pair according to the action flags.
type SyncAlbumsEvent struct {
	DiskAlbum   *model.Album
	OnlineAlbum *model.Album
	Action      policy.Action
}
