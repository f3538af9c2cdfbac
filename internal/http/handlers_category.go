package http

import (
	"errors"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

type categoryDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func toCategoryDTO(c core.Category) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, Color: c.Color}
}

func (req categoryRequest) toDomain() (core.Category, error) {
	c := core.Category{
		Name:  sanitizeInput(req.Name),
		Color: sanitizeInput(req.Color),
	}
	return c, c.Validate()
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, ownerID string) {
	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}

	categories := set.Categories.Snapshot()
	dtos := make([]categoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, listDTO[categoryDTO]{Items: dtos, Banner: set.Categories.LastError()})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	confirmed, err := set.Categories.Insert(r.Context(), c)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(confirmed))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	confirmed, err := set.Categories.Update(r.Context(), r.PathValue("id"), c)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(confirmed))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	err := set.Categories.Delete(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, store.ErrCategoryInUse):
		writeError(w, http.StatusConflict, "category is still used by expenses or payments")
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeJSON(w, http.StatusOK, nil)
	}
}
