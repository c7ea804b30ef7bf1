package app

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"quizmaster-web/internal/domain"
)

// ProfileBackend reads and writes the caller's profile record.
type ProfileBackend interface {
	GetProfile(ctx context.Context, token string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, token string, in domain.Profile) (domain.Profile, error)
}

// MaxPictureBytes caps an uploaded profile picture.
const MaxPictureBytes = 2 << 20

// ProfileService is a read-modify-write over one backend record.
type ProfileService struct {
	backend ProfileBackend
}

func NewProfileService(backend ProfileBackend) *ProfileService {
	return &ProfileService{backend: backend}
}

// Get fetches the current profile.
func (s *ProfileService) Get(ctx context.Context, token string) (domain.Profile, error) {
	return s.backend.GetProfile(ctx, token)
}

// Update sends the full form and returns the server's copy, which is
// authoritative over what was submitted.
func (s *ProfileService) Update(ctx context.Context, token string, form domain.Profile) (domain.Profile, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	if form.Email != "" && !strings.Contains(form.Email, "@") {
		return domain.Profile{}, domain.Invalid("email", "Enter a valid email address.")
	}
	return s.backend.UpdateProfile(ctx, token, form)
}

// PictureDataURL encodes an uploaded image as a data URL.
func PictureDataURL(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if len(data) > MaxPictureBytes {
		return "", domain.Invalid("profilePicture", "Picture must be at most 2 MiB.")
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", domain.Invalid("profilePicture", "Picture must be an image.")
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
