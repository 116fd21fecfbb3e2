package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
	"github.com/eugenenazirov/cutlist-optimizer/internal/storage"
	"github.com/eugenenazirov/cutlist-optimizer/internal/templates"
)

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.storage.ListProjects(r.Context())
	if err != nil {
		h.writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectsResponse{Projects: projects})
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[createProjectRequest](w, r, false)
	if !ok {
		return
	}

	project, err := h.storage.CreateProject(r.Context(), storage.NewProject{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CutList:     toCutList(req.CutList),
		Hardware:    toHardware(req.Hardware),
	})
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.storage.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[updateProjectRequest](w, r, false)
	if !ok {
		return
	}

	patch := storage.ProjectPatch{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if req.CutList != nil {
		if !validateRequest(w, &cutListRequest{CutList: *req.CutList}) {
			return
		}
		items := toCutList(*req.CutList)
		patch.CutList = &items
	}
	if req.Hardware != nil {
		if !validateRequest(w, &hardwareRequest{Hardware: *req.Hardware}) {
			return
		}
		hardware := toHardware(*req.Hardware)
		patch.Hardware = &hardware
	}

	project, err := h.storage.UpdateProject(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCloneProject(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[titleRequest](w, r, true)
	if !ok {
		return
	}

	project, err := h.storage.CloneProject(r.Context(), chi.URLParam(r, "id"), req.Title)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) handleProjectOptimization(w http.ResponseWriter, r *http.Request) {
	project, err := h.storage.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}

	resp := h.optimize(project.CutList)
	writeJSON(w, http.StatusOK, projectOptimizationResponse{
		ProjectID:        project.ID,
		optimizeResponse: resp,
	})
}

func (h *Handler) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.storage.ListNotes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notesResponse{Notes: notes})
}

func (h *Handler) handleAddNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[noteRequest](w, r, false)
	if !ok {
		return
	}

	note, err := h.storage.AddNote(r.Context(), chi.URLParam(r, "id"), storage.NewNote{
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *Handler) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var list []templates.Template
	switch category, difficulty := strings.TrimSpace(q.Get("category")), strings.TrimSpace(q.Get("difficulty")); {
	case category != "":
		list = h.templates.ByCategory(category)
	case difficulty != "":
		list = h.templates.ByDifficulty(difficulty)
	default:
		list = h.templates.List()
	}
	writeJSON(w, http.StatusOK, templatesResponse{Templates: list})
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.templates.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeTemplateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// handleCreateFromTemplate starts a new project from a template's cut list.
// The template name is used when no title is given.
func (h *Handler) handleCreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[titleRequest](w, r, true)
	if !ok {
		return
	}

	tmpl, err := h.templates.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeTemplateError(w, r, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = tmpl.Name
	}
	project, err := h.storage.CreateProject(r.Context(), storage.NewProject{
		Title:       title,
		Description: tmpl.Description,
		ImageURL:    tmpl.ImageURL,
		CutList:     append([]optimizer.CutListItem{}, tmpl.CutList...),
	})
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) writeStorageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Project not found", err.Error())
	case errors.Is(err, storage.ErrInvalidProject):
		writeError(w, http.StatusBadRequest, "Invalid project", err.Error())
	case errors.Is(err, storage.ErrNoteNotFound):
		writeError(w, http.StatusNotFound, "Note not found", err.Error())
	case errors.Is(err, storage.ErrInvalidNote):
		writeError(w, http.StatusBadRequest, "Invalid note", err.Error())
	case errors.Is(err, storage.ErrInventoryNotFound):
		writeError(w, http.StatusNotFound, "Inventory item not found", err.Error())
	case errors.Is(err, storage.ErrInvalidInventoryItem):
		writeError(w, http.StatusBadRequest, "Invalid inventory item", err.Error())
	default:
		h.writeInternalError(w, r, err)
	}
}

func (h *Handler) writeTemplateError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, templates.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Template not found", err.Error(),
			"List the available templates with GET /api/templates.")
		return
	}
	h.writeInternalError(w, r, err)
}

type projectsResponse struct {
	Projects []storage.Project `json:"projects"`
}

type notesResponse struct {
	Notes []storage.Note `json:"notes"`
}

type projectOptimizationResponse struct {
	ProjectID string `json:"projectId"`
	optimizeResponse
}

type templatesResponse struct {
	Templates []templates.Template `json:"templates"`
}
