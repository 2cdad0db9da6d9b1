package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"backend-travelbuddy/internal/db"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const (
	// PublicPrefix is the URL path uploaded files are served under.
	PublicPrefix = "/uploads/"
	thumbDir     = "thumb"
	thumbSize    = 300
)

var ErrUnsupportedType = errors.New("only jpg, png, gif, bmp, tiff and webp images are accepted")

type Service struct {
	db  db.Querier
	dir string
}

type Upload struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func NewService(db db.Querier, dir string) *Service {
	return &Service{db: db, dir: dir}
}

// Store decodes an uploaded image, writes it and a thumbnail under the upload
// directory and records it for userID. Files are removed again when the
// record cannot be written.
func (s *Service) Store(ctx context.Context, userID, kind string, fh *multipart.FileHeader) (Upload, error) {
	ext, err := storedExt(fh.Filename)
	if err != nil {
		return Upload{}, err
	}

	src, err := fh.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}

	if err := os.MkdirAll(filepath.Join(s.dir, thumbDir), 0o755); err != nil {
		return Upload{}, err
	}
	name := uuid.NewString() + ext
	original := filepath.Join(s.dir, name)
	thumb := filepath.Join(s.dir, thumbDir, name)

	if err := imaging.Save(img, original); err != nil {
		return Upload{}, fmt.Errorf("save image: %w", err)
	}
	if err := imaging.Save(imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos), thumb); err != nil {
		_ = os.Remove(original)
		return Upload{}, fmt.Errorf("save thumbnail: %w", err)
	}

	up := Upload{
		URL:          PublicPrefix + name,
		ThumbnailURL: PublicPrefix + thumbDir + "/" + name,
	}
	if up.ID, err = s.SaveObject(ctx, userID, up.URL, kind); err != nil {
		_ = os.Remove(original)
		_ = os.Remove(thumb)
		return Upload{}, err
	}
	return up, nil
}

// storedExt maps an upload name to the extension it is saved under. webp is
// decoded but re-encoded as jpg since imaging has no webp encoder.
func storedExt(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".webp" {
		return ".jpg", nil
	}
	if _, err := imaging.FormatFromExtension(ext); err != nil {
		return "", ErrUnsupportedType
	}
	return ext, nil
}

func (s *Service) SaveObject(ctx context.Context, userID, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, userID, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}
