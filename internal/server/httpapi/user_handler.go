package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/contacthub/contacthub/internal/server/models"
)

// maxAvatarBytes caps avatar uploads.
const maxAvatarBytes = 5 << 20

// UserService is the slice of the user service the profile endpoints need.
type UserService interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID, contentType string, body io.Reader) (string, error)
}

// UserHandler serves the current-user profile endpoints.
type UserHandler struct {
	svc UserService
}

func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	u, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateAvatar handles PATCH /api/users/avatar with a multipart "file" part.
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeValidationError(w, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := h.svc.UpdateAvatar(r.Context(), userID, contentType, file); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}
