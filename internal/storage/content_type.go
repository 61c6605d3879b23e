package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// DetectContentType determines the MIME type of an object.
//
// Priority: provided type, extension lookup, content sniffing of the
// first 512 bytes, then "application/octet-stream".
func DetectContentType(providedType, filename string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	if data != nil {
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buffer[:n])
		}
	}

	return "application/octet-stream"
}

// AllowedImageTypes are the MIME types accepted for uploaded base
// images on image generations.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// IsAllowedImageType reports whether contentType is an accepted image
// upload format. Parameters like charset are ignored.
func IsAllowedImageType(contentType string) bool {
	baseType := strings.Split(contentType, ";")[0]
	baseType = strings.TrimSpace(strings.ToLower(baseType))
	return AllowedImageTypes[baseType]
}

// ExtensionFor returns a file extension for a MIME type, ".bin" when
// unknown.
func ExtensionFor(contentType string) string {
	baseType := strings.Split(contentType, ";")[0]
	baseType = strings.TrimSpace(strings.ToLower(baseType))

	switch baseType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}

	exts, err := mime.ExtensionsByType(contentType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
