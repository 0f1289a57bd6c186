//go:build !integration

package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"telegram-usersettings/internal/domain"
)

type upperConverter struct{ fail bool }

func (c upperConverter) ToJPEG(r io.Reader, w io.Writer) error {
	if c.fail {
		return errors.New("not an image")
	}
	b, _ := io.ReadAll(r)
	_, err := w.Write([]byte(strings.ToUpper(string(b))))
	return err
}

func TestDiskStore(t *testing.T) {
	ctx := context.Background()

	t.Run("files land at their fixed paths", func(t *testing.T) {
		root := t.TempDir()
		s := NewDiskStore(root, upperConverter{})
		cases := map[string]string{
			"RCLONE_CONFIG":    filepath.Join(root, "rclone", "42.conf"),
			"TOKEN_PICKLE":     filepath.Join(root, "tokens", "42.pickle"),
			"USER_COOKIE_FILE": filepath.Join(root, "cookies", "42", "cookies.txt"),
			"THUMBNAIL":        filepath.Join(root, "thumbnails", "42.jpg"),
		}
		for key, want := range cases {
			got, err := s.Save(ctx, 42, key, "upload.bin", strings.NewReader("data"))
			if err != nil {
				t.Fatalf("%s: %v", key, err)
			}
			if got != want || s.Path(42, key) != want || !s.Exists(42, key) {
				t.Errorf("%s stored at %q, want %q", key, got, want)
			}
		}
		b, _ := os.ReadFile(filepath.Join(root, "thumbnails", "42.jpg"))
		if string(b) != "DATA" {
			t.Errorf("thumbnail not converted: %q", b)
		}
	})

	t.Run("watermark keeps the upload extension", func(t *testing.T) {
		root := t.TempDir()
		s := NewDiskStore(root, nil)
		if s.Exists(7, "WATERMARK_IMAGE_PATH") || s.Path(7, "WATERMARK_IMAGE_PATH") != "" {
			t.Fatal("watermark reported before upload")
		}
		p1, err := s.Save(ctx, 7, "WATERMARK_IMAGE_PATH", "logo.PNG", strings.NewReader("png"))
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(p1) != "watermark.png" {
			t.Fatalf("got %s", p1)
		}
		p2, _ := s.Save(ctx, 7, "WATERMARK_IMAGE_PATH", "logo.webp", strings.NewReader("webp"))
		if _, err := os.Stat(p1); !os.IsNotExist(err) {
			t.Error("old watermark left behind")
		}
		if s.Path(7, "WATERMARK_IMAGE_PATH") != p2 {
			t.Errorf("path %q, want %q", s.Path(7, "WATERMARK_IMAGE_PATH"), p2)
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		s := NewDiskStore(t.TempDir(), nil)
		_, _ = s.Save(ctx, 1, "RCLONE_CONFIG", "rclone.conf", strings.NewReader("[r]"))
		if err := s.Remove(ctx, 1, "RCLONE_CONFIG"); err != nil {
			t.Fatal(err)
		}
		if err := s.Remove(ctx, 1, "RCLONE_CONFIG"); err != nil {
			t.Fatalf("second remove: %v", err)
		}
		if s.Exists(1, "RCLONE_CONFIG") {
			t.Fatal("file still there")
		}
	})

	t.Run("bad thumbnail is a validation error", func(t *testing.T) {
		s := NewDiskStore(t.TempDir(), upperConverter{fail: true})
		_, err := s.Save(ctx, 1, "THUMBNAIL", "x.txt", strings.NewReader("text"))
		if _, ok := domain.AsValidation(err); !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if s.Exists(1, "THUMBNAIL") {
			t.Fatal("partial thumbnail stored")
		}
	})

	t.Run("non file keys are refused", func(t *testing.T) {
		s := NewDiskStore(t.TempDir(), nil)
		if _, err := s.Save(ctx, 1, "LEECH_PREFIX", "", strings.NewReader("")); !errors.Is(err, domain.ErrUnknownOption) {
			t.Fatalf("got %v", err)
		}
	})
}
