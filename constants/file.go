package constants

import "strings"

// MaxPhotosPerItem is the number of photo slots offered for every inspected item.
const MaxPhotosPerItem = 3

// DefaultMaxPhotoMB caps a single uploaded photo.
const DefaultMaxPhotoMB = 15

// AllowedExtensions holds the file extensions accepted for photo uploads.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"webp": {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"heic": {},
	"heif": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt reports whether ext (with or without the dot) is an accepted photo extension.
// An empty extension is accepted; content sniffing decides later.
func AllowedExt(ext string) bool {
	ext = NormalizeExt(ext)
	if ext == "" {
		return true
	}
	_, ok := AllowedExtensions[ext]
	return ok
}
