package http

import (
	"net/http"
	"strings"

	"coinwise/internal/core"
)

type categoryPayload struct {
	Name    string `json:"category_name"`
	Kind    string `json:"type"`
	GroupID string `json:"group_id"`
	Icon    string `json:"icon"`
}

type groupPayload struct {
	Name string `json:"group_name"`
	Kind string `json:"type"`
}

// groupedTaxonomy is one group with its member categories inlined.
type groupedTaxonomy struct {
	core.CategoryGroup
	Categories []core.Category `json:"categories"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.taxonomy.ListCategories(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.taxonomy.GetCategory(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category := core.Category{
		UserID:  userID(r),
		Name:    strings.TrimSpace(payload.Name),
		Kind:    core.Kind(payload.Kind),
		GroupID: strings.TrimSpace(payload.GroupID),
		Icon:    strings.TrimSpace(payload.Icon),
	}
	if err := category.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}

	id, err := s.taxonomy.CreateCategory(r.Context(), category)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := s.taxonomy.GetCategory(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category := core.Category{
		UserID:  userID(r),
		Name:    strings.TrimSpace(payload.Name),
		Kind:    core.Kind(payload.Kind),
		GroupID: strings.TrimSpace(payload.GroupID),
		Icon:    strings.TrimSpace(payload.Icon),
	}
	if err := category.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := s.taxonomy.UpdateCategory(r.Context(), userID(r), id, category); err != nil {
		writeDomainError(w, r, err)
		return
	}

	updated, err := s.taxonomy.GetCategory(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.taxonomy.DeleteCategory(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.taxonomy.ListGroups(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if groups == nil {
		groups = []core.CategoryGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.taxonomy.GetGroup(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var payload groupPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	group := core.CategoryGroup{
		UserID: userID(r),
		Name:   strings.TrimSpace(payload.Name),
		Kind:   core.Kind(payload.Kind),
	}
	if err := group.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}

	id, err := s.taxonomy.CreateGroup(r.Context(), group)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := s.taxonomy.GetGroup(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var payload groupPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	group := core.CategoryGroup{
		UserID: userID(r),
		Name:   strings.TrimSpace(payload.Name),
		Kind:   core.Kind(payload.Kind),
	}
	if err := group.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if err := s.taxonomy.UpdateGroup(r.Context(), userID(r), id, group); err != nil {
		writeDomainError(w, r, err)
		return
	}

	updated, err := s.taxonomy.GetGroup(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.taxonomy.DeleteGroup(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "category group deleted"})
}

// handleGroupedTaxonomy returns every group with its categories inlined,
// the shape pickers consume in one request.
func (s *Server) handleGroupedTaxonomy(w http.ResponseWriter, r *http.Request) {
	groups, byGroup, err := s.taxonomy.GroupsWithCategories(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]groupedTaxonomy, 0, len(groups))
	for _, g := range groups {
		categories := byGroup[g.ID]
		if categories == nil {
			categories = []core.Category{}
		}
		out = append(out, groupedTaxonomy{CategoryGroup: g, Categories: categories})
	}
	writeJSON(w, http.StatusOK, out)
}
