package handler

import (
	"log/slog"
	"net/http"

	"github.com/ebenavides/ekklesia/internal/backup"
	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/store"
)

type BackupHandler struct {
	manager     *backup.Manager
	backupStore *store.BackupStore
	logger      *slog.Logger
}

func NewBackupHandler(manager *backup.Manager, backupStore *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: manager, backupStore: backupStore, logger: logger.With("handler", "backup")}
}

// Run triggers an immediate backup.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backup not configured"})
		return
	}

	record, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual backup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backup failed"})
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// List returns recent backup runs, newest first.
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.backupStore.List(50)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list backups"})
		return
	}
	if runs == nil {
		runs = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// Status reports the backup manager state.
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}
