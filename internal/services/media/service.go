// Package media implements the upload catalog and file validation. The
// storage backend is abstracted; the default implementation writes to local
// disk and serves by URL path.
package media

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"kobapay/internal/apperr"
	"kobapay/internal/models"
	"kobapay/internal/repositories"
)

// Storage persists an uploaded file and returns its public URL.
type Storage interface {
	Save(uploadTo, filename string, data []byte) (url string, err error)
}

// LocalStorage writes uploads under a root directory.
type LocalStorage struct {
	Root    string
	BaseURL string
}

func (s *LocalStorage) Save(uploadTo, filename string, data []byte) (string, error) {
	dir := filepath.Join(s.Root, uploadTo)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.BaseURL, "/"), uploadTo, filename), nil
}

type Service struct {
	media   *repositories.MediaRepository
	storage Storage
}

func NewService(media *repositories.MediaRepository, storage Storage) *Service {
	return &Service{media: media, storage: storage}
}

// Catalog lists the configured media kinds.
func (s *Service) Catalog() ([]models.Media, error) {
	items, err := s.media.List()
	if err != nil {
		return nil, apperr.Server(err, "media.Catalog")
	}
	return items, nil
}

// Upload validates a file against its catalog entry and stores it.
func (s *Service) Upload(user *models.User, mediaName, filename string, data []byte) (*models.UploadedMedia, error) {
	catalog, err := s.media.FindByName(mediaName)
	if err != nil {
		return nil, apperr.User("Unknown media kind " + mediaName)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return nil, apperr.User("The file has no extension")
	}

	var allowed []string
	if len(catalog.AllowedFileTypes) > 0 {
		if err := json.Unmarshal(catalog.AllowedFileTypes, &allowed); err != nil {
			return nil, apperr.Server(err, "media.Upload")
		}
	}
	permitted := len(allowed) == 0
	for _, t := range allowed {
		if strings.EqualFold(t, ext) {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, apperr.User("Files of type " + ext + " are not allowed here")
	}

	if sizeKB := len(data) / 1024; sizeKB > catalog.MaxFileSizeInKB {
		return nil, apperr.User(fmt.Sprintf("The file exceeds the %dKB limit", catalog.MaxFileSizeInKB))
	}

	stored := fmt.Sprintf("%s.%s", uuid.NewString(), ext)
	url, err := s.storage.Save(catalog.UploadTo, stored, data)
	if err != nil {
		return nil, apperr.Server(err, "media.Upload")
	}

	upload := &models.UploadedMedia{
		UserID:   &user.ID,
		URL:      url,
		Name:     filename,
		Size:     len(data),
		FileType: ext,
		MediaID:  &catalog.ID,
	}
	if err := s.media.CreateUpload(upload); err != nil {
		return nil, apperr.Server(err, "media.Upload")
	}
	return upload, nil
}
