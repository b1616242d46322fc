package model

import "path"

// ImageType describes a supported photo or movie suffix. The set of
// supported types is closed; anything else is ignored by the scanners.
type ImageType struct {
	Ext                string
	IsMovie            bool
	RequiresConversion bool
}

// imageTypes is the closed suffix table, keyed by lowercased extension.
var imageTypes = map[string]ImageType{
	".jpg":  {Ext: ".jpg"},
	".jpeg": {Ext: ".jpeg"},
	".heic": {Ext: ".heic", RequiresConversion: true},
	".mp4":  {Ext: ".mp4", IsMovie: true},
	".avi":  {Ext: ".avi", IsMovie: true, RequiresConversion: true},
	".m4v":  {Ext: ".m4v", IsMovie: true, RequiresConversion: true},
	".mov":  {Ext: ".mov", IsMovie: true, RequiresConversion: true},
	".mts":  {Ext: ".mts", IsMovie: true, RequiresConversion: true},
}

// ImageTypeFor returns the image type for a filename, matching on the
// lowercased suffix.
func ImageTypeFor(filename string) (ImageType, bool) {
	t, ok := imageTypes[lowerExt(filename)]
	return t, ok
}

// IsImageFile reports whether a directory entry counts as an image:
// supported suffix and non-empty content.
func IsImageFile(filename string, size int64) bool {
	_, ok := imageTypes[lowerExt(filename)]
	return ok && size > 0
}

// ServiceFileName returns the filename an image is stored under by the
// service. Movies are transcoded to mp4 and gain a ".MP4" suffix when the
// original is not already mp4; HEIC photos are converted to ".JPG".
// Everything else keeps its name.
func ServiceFileName(filename string) string {
	t, ok := imageTypes[lowerExt(filename)]
	if !ok {
		return filename
	}

	switch {
	case t.IsMovie && t.Ext != ".mp4":
		return filename + ".MP4"
	case t.Ext == ".heic":
		return filename[:len(filename)-len(".heic")] + ".JPG"
	default:
		return filename
	}
}

func lowerExt(filename string) string {
	ext := path.Ext(filename)

	b := []byte(ext)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}

	return string(b)
}

// DiskImageInfo is the physical side of an image. When a developed
// variant exists (under the album's Developed/ directory), it overrides
// the original file as the effective on-disk representation.
type DiskImageInfo struct {
	ImagePath     string
	DevelopedPath string
	Size          int64
}

// Path returns the effective disk path: the developed variant when
// present, the original otherwise.
func (d *DiskImageInfo) Path() string {
	if d.DevelopedPath != "" {
		return d.DevelopedPath
	}

	return d.ImagePath
}

// HasDeveloped reports whether a developed variant overrides the original.
func (d *DiskImageInfo) HasDeveloped() bool {
	return d.DevelopedPath != ""
}

// OnlineImageInfo is the service side of an image. ArchivedURI serves
// photo originals; videos are fetched through LargestVideoURI instead.
// Processing images have not finished ingesting and are excluded from
// comparison and transfer.
type OnlineImageInfo struct {
	URI             string
	Size            int64
	IsVideo         bool
	ArchivedURI     string
	LargestVideoURI string
	Processing      bool
}

// Image is a leaf in an album. Identity is the album-relative path plus
// filename; equality never looks at content.
type Image struct {
	AlbumRelativePath string
	Filename          string
	DiskInfo          *DiskImageInfo
	OnlineInfo        *OnlineImageInfo
}

// RelativePath returns the image's logical path within the tree.
func (i *Image) RelativePath() string {
	return path.Join(i.AlbumRelativePath, i.Filename)
}

// OnDisk reports whether the image has a physical file.
func (i *Image) OnDisk() bool { return i.DiskInfo != nil }

// Online reports whether the image exists on the service.
func (i *Image) Online() bool { return i.OnlineInfo != nil }

// Same reports whether two images should be treated as the same image.
// Today this is relative-path equality; size or metadata checks may be
// added without changing reconciliation logic.
func (i *Image) Same(other *Image) bool {
	return i.RelativePath() == other.RelativePath()
}
