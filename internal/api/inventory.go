package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eugenenazirov/cutlist-optimizer/internal/storage"
)

func (h *Handler) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.storage.ListInventory(r.Context())
	if err != nil {
		h.writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inventoryResponse{Items: items})
}

func (h *Handler) handleCreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[createInventoryRequest](w, r, false)
	if !ok {
		return
	}

	item, err := h.storage.CreateInventoryItem(r.Context(), storage.NewInventoryItem{
		Name:      req.Name,
		Material:  req.Material,
		Length:    req.Length,
		Width:     req.Width,
		Thickness: req.Thickness,
		Quantity:  req.Quantity,
		Location:  req.Location,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleGetInventoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.storage.GetInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleUpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[updateInventoryRequest](w, r, false)
	if !ok {
		return
	}

	item, err := h.storage.UpdateInventoryItem(r.Context(), chi.URLParam(r, "id"), storage.InventoryPatch{
		Name:      req.Name,
		Material:  req.Material,
		Length:    req.Length,
		Width:     req.Width,
		Thickness: req.Thickness,
		Quantity:  req.Quantity,
		Location:  req.Location,
		Notes:     req.Notes,
	})
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.DeleteInventoryItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type inventoryResponse struct {
	Items []storage.InventoryItem `json:"items"`
}
