package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

// maxMinuteFileSize caps an attachment upload at 10 MB.
const maxMinuteFileSize = 10 << 20

type MinuteHandler struct {
	minuteStore *store.MinuteStore
	memberStore *store.MemberStore
	uploadDir   string
	logger      *slog.Logger
}

func NewMinuteHandler(ms *store.MinuteStore, mems *store.MemberStore, uploadDir string, logger *slog.Logger) *MinuteHandler {
	return &MinuteHandler{minuteStore: ms, memberStore: mems, uploadDir: uploadDir, logger: logger}
}

type minuteRequest struct {
	MeetingDate string `json:"meeting_date"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ChurchID    *int64 `json:"church_id"`
}

func (h *MinuteHandler) parse(w http.ResponseWriter, req *minuteRequest) (time.Time, bool) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return time.Time{}, false
	}
	meetingDate, err := time.Parse("2006-01-02", req.MeetingDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "meeting_date must be YYYY-MM-DD format"})
		return time.Time{}, false
	}
	return meetingDate, true
}

func (h *MinuteHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := principal(r)

	var req minuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	churchID := targetChurch(ac, req.ChurchID)
	if churchID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "church_id is required"})
		return
	}

	meetingDate, ok := h.parse(w, &req)
	if !ok {
		return
	}

	minute, err := h.minuteStore.Create(churchID, meetingDate, req.Title, req.Content)
	if err != nil {
		h.logger.Error("create minute", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create minute"})
		return
	}

	writeJSON(w, http.StatusCreated, minute)
}

func (h *MinuteHandler) List(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	minutes, err := h.minuteStore.List(scope)
	if err != nil {
		h.logger.Error("list minutes", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list minutes"})
		return
	}
	if minutes == nil {
		minutes = []model.Minute{}
	}

	writeJSON(w, http.StatusOK, minutes)
}

// Get returns a minute with its motions and attachments inlined.
func (h *MinuteHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	minute, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	motions, err := h.minuteStore.ListMotions(minute.ID)
	if err != nil {
		h.logger.Error("list motions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list motions"})
		return
	}
	if motions == nil {
		motions = []model.Motion{}
	}

	files, err := h.minuteStore.ListFiles(minute.ID)
	if err != nil {
		h.logger.Error("list minute files", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list files"})
		return
	}
	if files == nil {
		files = []model.MinuteFile{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"minute":  minute,
		"motions": motions,
		"files":   files,
	})
}

func (h *MinuteHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	existing, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req minuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	meetingDate, ok := h.parse(w, &req)
	if !ok {
		return
	}

	minute, err := h.minuteStore.Update(existing.ID, meetingDate, req.Title, req.Content)
	if err != nil {
		h.logger.Error("update minute", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update minute"})
		return
	}

	writeJSON(w, http.StatusOK, minute)
}

func (h *MinuteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	minute, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	// Remove stored attachments from disk before the rows cascade away.
	files, err := h.minuteStore.ListFiles(minute.ID)
	if err == nil {
		for _, f := range files {
			os.Remove(filepath.Join(h.uploadDir, f.StoredName))
		}
	}

	if err := h.minuteStore.Delete(minute.ID); err != nil {
		h.logger.Error("delete minute", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete minute"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type motionRequest struct {
	Description string `json:"description"`
	Approved    bool   `json:"approved"`
}

func (h *MinuteHandler) CreateMotion(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	minute, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	var req motionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description is required"})
		return
	}

	motion, err := h.minuteStore.CreateMotion(minute.ID, req.Description, req.Approved)
	if err != nil {
		h.logger.Error("create motion", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create motion"})
		return
	}

	writeJSON(w, http.StatusCreated, motion)
}

func (h *MinuteHandler) UpdateMotion(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	motion, _, ok := h.fetchMotion(w, r, scope)
	if !ok {
		return
	}

	var req motionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description is required"})
		return
	}

	updated, err := h.minuteStore.UpdateMotion(motion.ID, req.Description, req.Approved)
	if err != nil {
		h.logger.Error("update motion", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update motion"})
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *MinuteHandler) DeleteMotion(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	motion, _, ok := h.fetchMotion(w, r, scope)
	if !ok {
		return
	}

	if err := h.minuteStore.DeleteMotion(motion.ID); err != nil {
		h.logger.Error("delete motion", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete motion"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type voterRequest struct {
	MemberID int64 `json:"member_id"`
	InFavor  bool  `json:"in_favor"`
}

// ReplaceVoters replaces the recorded votes of a motion. The vote rows and
// the tally columns move together in one transaction.
func (h *MinuteHandler) ReplaceVoters(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	motion, minute, ok := h.fetchMotion(w, r, scope)
	if !ok {
		return
	}

	var req struct {
		Voters []voterRequest `json:"voters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	voters := make([]store.VoterParams, 0, len(req.Voters))
	for _, v := range req.Voters {
		member, err := h.memberStore.GetByID(v.MemberID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check member"})
			return
		}
		if member == nil || member.ChurchID != minute.ChurchID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("member %d not found", v.MemberID)})
			return
		}
		voters = append(voters, store.VoterParams{MemberID: v.MemberID, InFavor: v.InFavor})
	}

	updated, err := h.minuteStore.ReplaceVoters(motion.ID, voters)
	if err != nil {
		h.logger.Error("replace voters", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save votes"})
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *MinuteHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	motion, _, ok := h.fetchMotion(w, r, scope)
	if !ok {
		return
	}

	voters, err := h.minuteStore.ListVoters(motion.ID)
	if err != nil {
		h.logger.Error("list voters", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list voters"})
		return
	}
	if voters == nil {
		voters = []model.MotionVoter{}
	}

	writeJSON(w, http.StatusOK, voters)
}

// UploadFile attaches a multipart file to a minute. The file lands on disk
// under a random name; the original name is kept for display only.
func (h *MinuteHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	minute, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMinuteFileSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file field is required"})
		return
	}
	defer file.Close()

	storedName := uuid.NewString() + filepath.Ext(header.Filename)
	dest := filepath.Join(h.uploadDir, storedName)

	out, err := os.Create(dest)
	if err != nil {
		h.logger.Error("create upload file", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store file"})
		return
	}
	defer out.Close()

	size, err := io.Copy(out, file)
	if err != nil {
		os.Remove(dest)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store file"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	record, err := h.minuteStore.AddFile(minute.ID, header.Filename, storedName, size, contentType)
	if err != nil {
		os.Remove(dest)
		h.logger.Error("record minute file", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store file"})
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *MinuteHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	minute, ok := h.fetch(w, r, scope)
	if !ok {
		return
	}

	files, err := h.minuteStore.ListFiles(minute.ID)
	if err != nil {
		h.logger.Error("list minute files", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list files"})
		return
	}
	if files == nil {
		files = []model.MinuteFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *MinuteHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	record, ok := h.fetchFile(w, r, scope)
	if !ok {
		return
	}

	path := filepath.Join(h.uploadDir, record.StoredName)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, record.FileName))
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	http.ServeFile(w, r, path)
}

func (h *MinuteHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	_, scope := principal(r)

	record, ok := h.fetchFile(w, r, scope)
	if !ok {
		return
	}

	if err := h.minuteStore.DeleteFile(record.ID); err != nil {
		h.logger.Error("delete minute file", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete file"})
		return
	}
	os.Remove(filepath.Join(h.uploadDir, record.StoredName))

	w.WriteHeader(http.StatusNoContent)
}

func (h *MinuteHandler) fetch(w http.ResponseWriter, r *http.Request, scope tenant.Scope) (*model.Minute, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	minute, err := h.minuteStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get minute"})
		return nil, false
	}
	if minute == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "minute not found"})
		return nil, false
	}
	if !scope.Allows(minute.ChurchID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil, false
	}
	return minute, true
}

// fetchMotion resolves the motion in the path and its owning minute, which
// carries the church for the scope check.
func (h *MinuteHandler) fetchMotion(w http.ResponseWriter, r *http.Request, scope tenant.Scope) (*model.Motion, *model.Minute, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, nil, false
	}

	motion, err := h.minuteStore.GetMotion(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get motion"})
		return nil, nil, false
	}
	if motion == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "motion not found"})
		return nil, nil, false
	}

	minute, err := h.minuteStore.GetByID(motion.MinuteID)
	if err != nil || minute == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get minute"})
		return nil, nil, false
	}
	if !scope.Allows(minute.ChurchID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil, nil, false
	}
	return motion, minute, true
}

func (h *MinuteHandler) fetchFile(w http.ResponseWriter, r *http.Request, scope tenant.Scope) (*model.MinuteFile, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, false
	}

	record, err := h.minuteStore.GetFile(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get file"})
		return nil, false
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		return nil, false
	}

	minute, err := h.minuteStore.GetByID(record.MinuteID)
	if err != nil || minute == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get minute"})
		return nil, false
	}
	if !scope.Allows(minute.ChurchID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil, false
	}
	return record, true
}
