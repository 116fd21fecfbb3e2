package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eugenenazirov/cutlist-optimizer/internal/export"
	"github.com/eugenenazirov/cutlist-optimizer/internal/importer"
	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
	"github.com/eugenenazirov/cutlist-optimizer/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type shoppingFormat struct {
	ext         string
	contentType string
	write       func(io.Writer, export.ShoppingList) error
}

var shoppingFormats = map[string]shoppingFormat{
	"csv":  {ext: "csv", contentType: "text/csv; charset=utf-8", write: export.WriteCSV},
	"xlsx": {ext: "xlsx", contentType: xlsxContentType, write: export.WriteXLSX},
	"pdf":  {ext: "pdf", contentType: "application/pdf", write: export.WritePDF},
}

func (h *Handler) handleProjectShoppingList(w http.ResponseWriter, r *http.Request) {
	project, err := h.storage.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	h.writeShoppingList(w, r, project.Title, project.CutList, project.Hardware)
}

func (h *Handler) handleShoppingList(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[shoppingListRequest](w, r, false)
	if !ok {
		return
	}
	h.writeShoppingList(w, r, req.Title, toCutList(req.CutList), toHardware(req.Hardware))
}

// writeShoppingList optimizes items, adds the hardware and renders the
// purchase list in the format named by the format query parameter (json by
// default).
func (h *Handler) writeShoppingList(w http.ResponseWriter, r *http.Request, title string, items []optimizer.CutListItem, hardware []storage.HardwareItem) {
	name := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if name == "" {
		name = "json"
	}
	format, known := shoppingFormats[name]
	if name != "json" && !known {
		writeError(w, http.StatusBadRequest, "Invalid format",
			fmt.Sprintf("unsupported format %q", name), "Use one of json, csv, xlsx or pdf.")
		return
	}

	result := h.optimize(items).Result
	list := export.BuildShoppingList(title, items, result)
	list.AddHardware(hardware)
	if len(list.Lines) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "Nothing to buy", export.ErrEmptyShoppingList.Error(),
			"Add cut-list items whose materials are in the catalog, or hardware.")
		return
	}

	if name == "json" {
		writeJSON(w, http.StatusOK, list)
		return
	}

	var buf bytes.Buffer
	if err := format.write(&buf, list); err != nil {
		if errors.Is(err, export.ErrEmptyShoppingList) {
			writeError(w, http.StatusUnprocessableEntity, "Nothing to buy", err.Error())
			return
		}
		h.writeInternalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": export.FileName(title, format.ext)}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handleImportCutList reads a CSV or XLSX cut list from the request body.
// Row problems are reported in the result, not as a request failure.
func (h *Handler) handleImportCutList(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	var read func(io.Reader) importer.Result
	switch mediaType {
	case "text/csv", "text/plain", "application/csv":
		read = importer.ImportCSV
	case xlsxContentType:
		read = importer.ImportExcel
	default:
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported media type",
			fmt.Sprintf("cannot import %q", r.Header.Get("Content-Type")),
			"Send text/csv or an .xlsx workbook.")
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large",
				fmt.Sprintf("request body must not exceed %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to read request body")
		return
	}

	writeJSON(w, http.StatusOK, read(bytes.NewReader(data)))
}
