package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"telegram-usersettings/internal/domain"
	"telegram-usersettings/internal/domain/ports/adapter"
)

// ImageConverter rewrites an uploaded image as a JPEG thumbnail.
type ImageConverter interface {
	ToJPEG(r io.Reader, w io.Writer) error
}

var _ adapter.FileStore = (*DiskStore)(nil)

// DiskStore keeps user-uploaded files under a data directory:
//
//	thumbnails/<id>.jpg
//	rclone/<id>.conf
//	tokens/<id>.pickle
//	cookies/<id>/cookies.txt
//	watermarks/<id>/watermark<ext>
type DiskStore struct {
	root   string
	thumbs ImageConverter
}

func NewDiskStore(root string, thumbs ImageConverter) *DiskStore {
	return &DiskStore{root: root, thumbs: thumbs}
}

func (s *DiskStore) Save(ctx context.Context, tgID int64, key, fileName string, r io.Reader) (string, error) {
	dst, err := s.target(tgID, key, fileName)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", key, err)
	}
	// a new watermark may have a different extension than the old one
	if key == "WATERMARK_IMAGE_PATH" {
		_ = s.Remove(ctx, tgID, key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if key == "THUMBNAIL" && s.thumbs != nil {
		err = s.thumbs.ToJPEG(r, tmp)
		if err != nil {
			_ = tmp.Close()
			return "", domain.NewValidationError(key, "Send an image to use as thumbnail.")
		}
	} else if _, err = io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("move %s into place: %w", key, err)
	}
	return dst, nil
}

// Remove is a no-op when nothing is stored.
func (s *DiskStore) Remove(ctx context.Context, tgID int64, key string) error {
	p := s.Path(tgID, key)
	if p == "" {
		return nil
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *DiskStore) Exists(tgID int64, key string) bool {
	p := s.Path(tgID, key)
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// Path returns where key is stored for tgID, or "" for keys that are not
// files and for a watermark that was never uploaded.
func (s *DiskStore) Path(tgID int64, key string) string {
	if key == "WATERMARK_IMAGE_PATH" {
		matches, _ := filepath.Glob(filepath.Join(s.root, "watermarks", strconv.FormatInt(tgID, 10), "watermark*"))
		if len(matches) == 0 {
			return ""
		}
		return matches[0]
	}
	p, err := s.target(tgID, key, "")
	if err != nil {
		return ""
	}
	return p
}

func (s *DiskStore) target(tgID int64, key, fileName string) (string, error) {
	id := strconv.FormatInt(tgID, 10)
	switch key {
	case "THUMBNAIL":
		return filepath.Join(s.root, "thumbnails", id+".jpg"), nil
	case "RCLONE_CONFIG":
		return filepath.Join(s.root, "rclone", id+".conf"), nil
	case "TOKEN_PICKLE":
		return filepath.Join(s.root, "tokens", id+".pickle"), nil
	case "USER_COOKIE_FILE":
		return filepath.Join(s.root, "cookies", id, "cookies.txt"), nil
	case "WATERMARK_IMAGE_PATH":
		ext := strings.ToLower(filepath.Ext(fileName))
		if ext == "" {
			ext = ".png"
		}
		return filepath.Join(s.root, "watermarks", id, "watermark"+ext), nil
	}
	return "", fmt.Errorf("%s is not stored as a file: %w", key, domain.ErrUnknownOption)
}
