package http

import (
	"net/http"

	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

func (h *Handlers) ListPets(w http.ResponseWriter, r *http.Request) {
	pets, err := h.catalog.ListPets(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pets)
}

func (h *Handlers) GetPet(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pet, err := h.catalog.GetPet(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pet)
}

func (h *Handlers) CreatePet(w http.ResponseWriter, r *http.Request) {
	var pet domain.Pet
	if err := decodeJSON(r, &pet); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.catalog.CreatePet(r.Context(), actor(r), pet)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) UpdatePet(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var patch domain.PetPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	pet, err := h.catalog.UpdatePet(r.Context(), actor(r), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pet)
}

func (h *Handlers) DeletePet(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.catalog.DeletePet(r.Context(), actor(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.ListServices(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (h *Handlers) GetService(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	svc, err := h.catalog.GetService(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *Handlers) CreateService(w http.ResponseWriter, r *http.Request) {
	var svc domain.Service
	if err := decodeJSON(r, &svc); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.catalog.CreateService(r.Context(), actor(r), svc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var patch domain.ServicePatch
	if err := decodeJSON(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	svc, err := h.catalog.UpdateService(r.Context(), actor(r), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (h *Handlers) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.catalog.DeleteService(r.Context(), actor(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
