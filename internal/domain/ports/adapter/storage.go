package adapter

import (
	"context"
	"io"
)

// FileStore keeps the per-user files some options point at
// (thumbnail, rclone.conf, token.pickle, cookies, watermark image).
type FileStore interface {
	// Save stores r for the option and returns the path to persist.
	Save(ctx context.Context, tgID int64, key, fileName string, r io.Reader) (string, error)
	// Remove deletes the stored file; missing files are not an error.
	Remove(ctx context.Context, tgID int64, key string) error
	Exists(tgID int64, key string) bool
	Path(tgID int64, key string) string
}
