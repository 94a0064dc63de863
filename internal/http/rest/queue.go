package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ytqueue/ytqueue/internal/logctx"
	"github.com/ytqueue/ytqueue/internal/queue"
	"github.com/ytqueue/ytqueue/internal/storage"
	"github.com/ytqueue/ytqueue/internal/validate"
)

// QueueHandler exposes the download queue over HTTP. It is the service's
// presentation surface: every mutation goes through the queue, never
// directly to items.
type QueueHandler struct {
	queue    *queue.Queue
	history  storage.HistoryRepository
	settings storage.SettingsRepository
}

func NewQueueHandler(q *queue.Queue, history storage.HistoryRepository, settings storage.SettingsRepository) *QueueHandler {
	return &QueueHandler{
		queue:    q,
		history:  history,
		settings: settings,
	}
}

// Routes returns the router for the queue API.
func (h *QueueHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/downloads", h.submit)
	r.Get("/downloads", h.listDownloads)
	r.Delete("/downloads", h.cancelAll)
	r.Get("/downloads/{key}", h.getDownload)
	r.Delete("/downloads/{key}", h.cancelDownload)

	r.Get("/history", h.listHistory)
	r.Delete("/history", h.clearHistory)
	r.Delete("/history/{url}", h.removeHistory)

	r.Put("/settings/download-folder", h.setDownloadFolder)

	r.Get("/healthz", h.health)

	return r
}

type submitRequest struct {
	URL string `json:"url"`
}

type submitResponse struct {
	Key string `json:"key"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *QueueHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	if err := validate.Var(req.URL, "required,youtube_url"); err != nil {
		_, _, msg := validate.ValidateAndExtract(req.URL)
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: msg})

		return
	}

	key, err := h.queue.Submit(req.URL)
	if err != nil {
		var verr *queue.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})

			return
		}

		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})

		return
	}

	respondJSON(w, http.StatusAccepted, submitResponse{Key: key})
}

func (h *QueueHandler) listDownloads(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.queue.List())
}

func (h *QueueHandler) getDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	snap, exists := h.queue.Get(key)
	if !exists {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "download not found"})

		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (h *QueueHandler) cancelDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.queue.Cancel(key); err != nil {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *QueueHandler) cancelAll(w http.ResponseWriter, r *http.Request) {
	h.queue.CancelAll()
	w.WriteHeader(http.StatusNoContent)
}

type historyEntryResponse struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	FilePath     string `json:"file_path"`
	DownloadedAt string `json:"downloaded_at"`
	Status       string `json:"status"`
}

func (h *QueueHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.All()
	if err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to list history", "err", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list history"})

		return
	}

	out := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, historyEntryResponse{
			URL:          entry.URL,
			Title:        entry.Title,
			FilePath:     entry.FilePath,
			DownloadedAt: entry.DownloadedAt,
			Status:       entry.Status,
		})
	}

	respondJSON(w, http.StatusOK, out)
}

func (h *QueueHandler) removeHistory(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "url")

	target, err := url.PathUnescape(raw)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid url parameter"})

		return
	}

	if err := h.history.Remove(target); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to remove history entry", "err", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to remove history entry"})

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *QueueHandler) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to clear history", "err", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to clear history"})

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type settingsRequest struct {
	Path string `json:"path"`
}

func (h *QueueHandler) setDownloadFolder(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	if err := h.settings.Set(storage.KeyDownloadFolder, req.Path); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to save setting", "err", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to save setting"})

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *QueueHandler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
