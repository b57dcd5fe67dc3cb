package implementation

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"nous-core/internal/model"
	"nous-core/pkg/gateway"
	"nous-core/pkg/lexical"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaRepositoryImpl copies artifacts into a local media library and keeps
// a row per file.
type MediaRepositoryImpl struct {
	db  *gorm.DB
	dir string
}

var _ gateway.MediaUploader = (*MediaRepositoryImpl)(nil)

func NewMediaRepository(db *gorm.DB, dir string) *MediaRepositoryImpl {
	return &MediaRepositoryImpl{db: db, dir: dir}
}

func (r *MediaRepositoryImpl) UploadMedia(ctx context.Context, path string, kind lexical.MediaKind, alt, token string) (string, error) {
	if err := requireToken(token); err != nil {
		return "", err
	}

	id := uuid.New()
	fileName := id.String() + filepath.Ext(path)
	size, err := copyFile(path, filepath.Join(r.dir, fileName))
	if err != nil {
		return "", fmt.Errorf("store media: %w", err)
	}

	m := model.Media{
		Id:       id,
		Kind:     string(kind),
		Alt:      alt,
		FileName: fileName,
		MimeType: mimeType(kind),
		Size:     size,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		_ = os.Remove(filepath.Join(r.dir, fileName))
		return "", gateway.Wrap(gateway.Persistence, err)
	}
	return id.String(), nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func mimeType(kind lexical.MediaKind) string {
	if kind == lexical.MediaVideo {
		return "video/mp4"
	}
	return "audio/mpeg"
}
