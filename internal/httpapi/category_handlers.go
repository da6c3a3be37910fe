package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"penguinims.org/internal/audit"
	"penguinims.org/internal/categories"
	"penguinims.org/internal/users"
)

func (a *API) handleCategoriesCollection(w http.ResponseWriter, r *http.Request) {
	caller, ok := users.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := a.categories.List(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			handleCategoriesError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":      len(list),
			"categories": list,
		})
	case http.MethodPost:
		var req categories.CreateInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.categories.Create(r.Context(), caller.ID, req)
		if err != nil {
			handleCategoriesError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "categories.create", map[string]any{
			"category_id": c.ID,
			"code":        c.Code,
		})
		w.Header().Set("Location", fmt.Sprintf("/api/categories/%s", c.ID))
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCategoryResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := users.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/categories/"), "/")
	if id == "" {
		a.handleCategoriesCollection(w, r)
		return
	}
	if strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := a.categories.Get(r.Context(), id)
		if err != nil {
			handleCategoriesError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		var req categories.UpdateInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.categories.Update(r.Context(), caller.ID, id, req)
		if err != nil {
			handleCategoriesError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "categories.update", map[string]any{
			"category_id": c.ID,
		})
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := a.categories.Deactivate(r.Context(), caller.ID, id); err != nil {
			handleCategoriesError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "categories.deactivate", map[string]any{
			"category_id": id,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "category deactivated successfully",
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func handleCategoriesError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, categories.ErrInvalidInput),
		errors.Is(err, categories.ErrDuplicateCode):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, categories.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
