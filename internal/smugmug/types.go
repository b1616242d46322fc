package smugmug

import (
	"fmt"
	"time"

	"github.com/smugsync/smugsync/internal/model"
)

// Wire layouts for the service's timestamps. Both the numeric-offset and
// the colon-separated variant appear in the wild.
var timeLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05-0700",
}

type uriRef struct {
	URI string `json:"Uri"`
}

type pagesInfo struct {
	Total int `json:"Total"`
}

// userEnvelope is the Response payload of GET user/<nickname>.
type userEnvelope struct {
	User struct {
		Uris struct {
			Folder uriRef `json:"Folder"`
		} `json:"Uris"`
	} `json:"User"`
}

// folderRecord is a Folder entity. The Folders URI is absent for leaf
// folders.
type folderRecord struct {
	Name         string `json:"Name"`
	URI          string `json:"Uri"`
	DateModified string `json:"DateModified"`
	Uris         struct {
		Folders      *uriRef `json:"Folders"`
		FolderAlbums *uriRef `json:"FolderAlbums"`
		Node         *uriRef `json:"Node"`
	} `json:"Uris"`
}

func (r *folderRecord) toModel() *model.OnlineFolderInfo {
	info := &model.OnlineFolderInfo{
		Name:      r.Name,
		URI:       r.URI,
		AlbumsURI: "",
	}

	if r.Uris.Folders != nil {
		info.SubFoldersURI = r.Uris.Folders.URI
	}

	if r.Uris.FolderAlbums != nil {
		info.AlbumsURI = r.Uris.FolderAlbums.URI
	}

	if r.Uris.Node != nil {
		info.NodeURI = r.Uris.Node.URI
	}

	return info
}

// albumRecord is an Album entity.
type albumRecord struct {
	Name              string `json:"Name"`
	URI               string `json:"Uri"`
	ImageCount        int    `json:"ImageCount"`
	LastUpdated       string `json:"LastUpdated"`
	ImagesLastUpdated string `json:"ImagesLastUpdated"`
	Uris              struct {
		AlbumImages uriRef `json:"AlbumImages"`
	} `json:"Uris"`
}

// toModel converts the record, folding the two update stamps into a
// single epoch value (the later of the two).
func (r *albumRecord) toModel() (*model.OnlineAlbumInfo, error) {
	lastUpdated, err := parseServiceTime(r.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("smugmug: album %q LastUpdated: %w", r.Name, err)
	}

	imagesLastUpdated := lastUpdated
	if r.ImagesLastUpdated != "" {
		imagesLastUpdated, err = parseServiceTime(r.ImagesLastUpdated)
		if err != nil {
			return nil, fmt.Errorf("smugmug: album %q ImagesLastUpdated: %w", r.Name, err)
		}
	}

	if imagesLastUpdated.After(lastUpdated) {
		lastUpdated = imagesLastUpdated
	}

	return &model.OnlineAlbumInfo{
		Name:        r.Name,
		URI:         r.URI,
		ImagesURI:   r.Uris.AlbumImages.URI,
		ImageCount:  r.ImageCount,
		LastUpdated: lastUpdated.Unix(),
	}, nil
}

// imageRecord is an AlbumImage entity. Processing images have not
// finished ingesting on the service side.
type imageRecord struct {
	FileName     string `json:"FileName"`
	URI          string `json:"Uri"`
	IsVideo      bool   `json:"IsVideo"`
	Processing   bool   `json:"Processing"`
	ArchivedURI  string `json:"ArchivedUri"`
	OriginalSize int64  `json:"OriginalSize"`
	ArchivedSize int64  `json:"ArchivedSize"`
	Uris         struct {
		LargestVideo *uriRef `json:"LargestVideo"`
	} `json:"Uris"`
}

func (r *imageRecord) toModel() *model.OnlineImageInfo {
	size := r.OriginalSize
	if size == 0 {
		size = r.ArchivedSize
	}

	info := &model.OnlineImageInfo{
		URI:         r.URI,
		Size:        size,
		IsVideo:     r.IsVideo,
		ArchivedURI: r.ArchivedURI,
		Processing:  r.Processing,
	}

	if r.Uris.LargestVideo != nil {
		info.LargestVideoURI = r.Uris.LargestVideo.URI
	}

	return info
}

// nodeEnvelope is the Response payload of the node-children POST used by
// the album-creation workaround.
type nodeEnvelope struct {
	Node struct {
		Uris struct {
			Album uriRef `json:"Album"`
		} `json:"Uris"`
	} `json:"Node"`
}

type folderEnvelope struct {
	Folder folderRecord `json:"Folder"`
}

type albumEnvelope struct {
	Album albumRecord `json:"Album"`
}

// largestVideoEnvelope resolves a video's real download URL; the
// archived original only serves photos.
type largestVideoEnvelope struct {
	LargestVideo struct {
		URL string `json:"Url"`
	} `json:"LargestVideo"`
}

// uploadResponse is the body of an upload POST. The service reports
// failure through stat even on HTTP 200.
type uploadResponse struct {
	Stat    string `json:"stat"`
	Message string `json:"message"`
}

func parseServiceTime(s string) (time.Time, error) {
	var lastErr error

	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}

		lastErr = err
	}

	return time.Time{}, lastErr
}
