package storage

import (
	"path"
	"strings"
)

const defaultContentType = "application/octet-stream"

// genericTypes are content types that say nothing about the payload.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
	"application/x-download":   true,
}

var extensionTypes = map[string]string{
	// video
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".ts":   "video/mp2t",
	".m3u8": "application/vnd.apple.mpegurl",

	// audio
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",

	// documents
	".pdf":  "application/pdf",
	".epub": "application/epub+zip",

	// comic archives
	".cbz": "application/vnd.comicbook+zip",
	".cbr": "application/vnd.comicbook-rar",
	".cb7": "application/x-cb7",
	".cbt": "application/x-cbt",
}

// ResolveContentType returns reported unless it is missing or generic, in
// which case the type is looked up by the extension of name.
func ResolveContentType(reported, name string) string {
	reported = strings.TrimSpace(reported)
	base, _, _ := strings.Cut(reported, ";")
	if !genericTypes[strings.ToLower(strings.TrimSpace(base))] {
		return reported
	}

	if ct, ok := extensionTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	if reported == "" {
		return defaultContentType
	}
	return reported
}
