package protocol

import (
	"encoding/json"
	"strings"
)

// MediaPrefix is prepended to picked file paths to form app-relative URLs.
const MediaPrefix = "/media/"

// File is a media manager file record.
type File struct {
	Path        string  `json:"path"`
	Name        string  `json:"name"`
	Size        int64   `json:"size,omitempty"`
	CTime       float64 `json:"ctime,omitempty"`
	MTime       float64 `json:"mtime,omitempty"`
	IsDir       bool    `json:"isdir,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
}

// Payload returns the record as envelope payload fields.
func (f File) Payload() map[string]any {
	m := map[string]any{
		"path": f.Path,
		"name": f.Name,
	}
	if f.Size != 0 {
		m["size"] = f.Size
	}
	if f.CTime != 0 {
		m["ctime"] = f.CTime
	}
	if f.MTime != 0 {
		m["mtime"] = f.MTime
	}
	if f.IsDir {
		m["isdir"] = true
	}
	if f.ContentType != "" {
		m["content_type"] = f.ContentType
	}
	return m
}

// SelectedFile extracts the picked file from an insert-file payload. A "files" list
// yields its first element; otherwise the payload itself is the record.
// It reports false when no usable path is present.
func SelectedFile(payload map[string]any) (File, bool) {
	src := payload
	if raw, ok := payload["files"]; ok {
		list, ok := raw.([]any)
		if !ok || len(list) == 0 {
			return File{}, false
		}
		first, ok := list[0].(map[string]any)
		if !ok {
			return File{}, false
		}
		src = first
	}

	if _, ok := src["path"].(string); !ok {
		return File{}, false
	}

	return File{
		Path:        getStringField(src, "path"),
		Name:        getStringField(src, "name"),
		Size:        getInt64Field(src, "size"),
		CTime:       getFloatField(src, "ctime"),
		MTime:       getFloatField(src, "mtime"),
		IsDir:       getBoolField(src, "isdir"),
		ContentType: getStringField(src, "content_type"),
	}, true
}

// MediaURL derives the insertable URL for a file path: MediaPrefix + path with the
// first doubled slash collapsed. Only one pass is made; this is not a normalizer.
func MediaURL(path string) string {
	return strings.Replace(MediaPrefix+path, "//", "/", 1)
}

// Helper functions for extracting fields from decoded JSON

func getStringField(data map[string]any, key string) string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt64Field(data map[string]any, key string) int64 {
	if v, ok := data[key]; ok {
		switch n := v.(type) {
		case float64:
			return int64(n)
		case int64:
			return n
		case int:
			return int64(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i
			}
		}
	}
	return 0
}

func getFloatField(data map[string]any, key string) float64 {
	if v, ok := data[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		case int:
			return float64(n)
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	}
	return 0
}

func getBoolField(data map[string]any, key string) bool {
	if v, ok := data[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}
