package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/contacthub/contacthub/internal/server/models"
)

const birthdayLayout = "2006-01-02"

// ContactService is the address-book service surface used by the handlers.
type ContactService interface {
	Create(ctx context.Context, userID string, contact *models.Contact) (*models.Contact, error)
	Get(ctx context.Context, userID, id string) (*models.Contact, error)
	List(ctx context.Context, userID, search string, limit, offset int) ([]*models.Contact, error)
	Update(ctx context.Context, userID string, contact *models.Contact) error
	Delete(ctx context.Context, userID, id string) error
	UpcomingBirthdays(ctx context.Context, userID string, limit, offset int) ([]*models.Contact, error)
}

// ContactHandler serves the address-book endpoints.
type ContactHandler struct {
	svc ContactService
}

func NewContactHandler(svc ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

type contactRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Birthday string `json:"birthday"`
	Notes    string `json:"notes"`
}

type contactResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Birthday string `json:"birthday"`
	Notes    string `json:"notes,omitempty"`
}

func (req *contactRequest) toModel() (*models.Contact, string) {
	if req.Name == "" {
		return nil, "name is required"
	}
	if req.Email != "" && !looksLikeEmail(req.Email) {
		return nil, "invalid email"
	}
	birthday, err := time.Parse(birthdayLayout, req.Birthday)
	if err != nil {
		return nil, "birthday must be formatted YYYY-MM-DD"
	}
	return &models.Contact{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Phone:    req.Phone,
		Birthday: birthday,
		Notes:    req.Notes,
	}, ""
}

func toContactResponse(c *models.Contact) contactResponse {
	return contactResponse{
		ID:       c.ID,
		Name:     c.Name,
		Surname:  c.Surname,
		Email:    c.Email,
		Phone:    c.Phone,
		Birthday: c.Birthday.Format(birthdayLayout),
		Notes:    c.Notes,
	}
}

func toContactResponses(items []*models.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(items))
	for _, c := range items {
		out = append(out, toContactResponse(c))
	}
	return out
}

// Create handles POST /api/contacts.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	contact, msg := req.toModel()
	if msg != "" {
		writeValidationError(w, msg)
		return
	}
	created, err := h.svc.Create(r.Context(), userID, contact)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactResponse(created))
}

// Get handles GET /api/contacts/{id}.
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	c, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(c))
}

// List handles GET /api/contacts with optional search, limit, and offset
// query parameters.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	limit, offset := pageParams(r)
	items, err := h.svc.List(r.Context(), userID, r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponses(items))
}

// Update handles PUT /api/contacts/{id}.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	contact, msg := req.toModel()
	if msg != "" {
		writeValidationError(w, msg)
		return
	}
	contact.ID = chi.URLParam(r, "id")
	if err := h.svc.Update(r.Context(), userID, contact); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponse(contact))
}

// Delete handles DELETE /api/contacts/{id}.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	if err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpcomingBirthdays handles GET /api/birthdays/nearest.
func (h *ContactHandler) UpcomingBirthdays(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	limit, offset := pageParams(r)
	items, err := h.svc.UpcomingBirthdays(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContactResponses(items))
}

func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return limit, offset
}
