package http

import (
	"net/http"

	"github.com/robertarktes/pet-services-marketplace/internal/auth"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "User created successfully", "user": user})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token, "user": user})
}

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Profile(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), actor(r), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
