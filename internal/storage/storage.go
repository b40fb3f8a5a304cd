// Package storage keeps ingestion source files in object storage, under the container the
// ingestion pipeline reads from.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
	Close() error
}

// ObjectName places filename under container, dropping any directories the client sent.
func ObjectName(container, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	c := strings.Trim(strings.TrimSpace(container), "/")
	if c == "" {
		return base
	}
	return c + "/" + base
}
