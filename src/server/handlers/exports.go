package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/jobs"
	"github.com/quiz-master/server/src/server/quiz"
	"github.com/quiz-master/server/src/server/reports"
	"github.com/quiz-master/server/src/server/storage"
)

// ExportHandler enqueues report jobs and serves their artifacts.
type ExportHandler struct {
	Service *quiz.Service
	Queue   jobs.Queue
	Objects storage.ObjectStorage
	Reports *reports.Reports
}

type jobResponse struct {
	TaskID string     `json:"task_id"`
	Task   string     `json:"task"`
	Status jobs.State `json:"status"`
	Result string     `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

func (h *ExportHandler) enqueue(w http.ResponseWriter, r *http.Request, task string, args any, msg string) {
	raw, err := jobs.MarshalArgs(args)
	if err == nil {
		var id string
		if id, err = h.Queue.Enqueue(r.Context(), task, raw); err == nil {
			writeJSON(w, http.StatusAccepted, map[string]string{"message": msg, "task_id": id})
			return
		}
	}
	slog.Error("Failed to enqueue job", "task", task, "error", err)
	http.Error(w, `{"error":"failed to start job"}`, http.StatusInternalServerError)
}

// jobOwner returns the user a job was started for, or 0 for system jobs.
func jobOwner(st jobs.Status) int64 {
	var args reports.UserArgs
	if len(st.Args) == 0 || json.Unmarshal(st.Args, &args) != nil {
		return 0
	}
	return args.UserID
}

// status loads a job the caller may see. Users see their own jobs only.
func (h *ExportHandler) status(w http.ResponseWriter, r *http.Request, p data.Principal, id string) (jobs.Status, bool) {
	st, err := h.Queue.Status(r.Context(), id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return st, false
	}
	if err != nil {
		writeError(w, r, err)
		return st, false
	}
	if !p.IsAdmin() && jobOwner(st) != p.UserID {
		writeError(w, r, quiz.ErrUnauthorized)
		return st, false
	}
	return st, true
}

func (h *ExportHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	st, ok := h.status(w, r, p, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{
		TaskID: st.ID,
		Task:   st.Task,
		Status: st.State,
		Result: st.Result,
		Error:  st.Error,
	})
}

// serveObject redirects to a presigned URL when the storage offers one and
// streams the object otherwise.
func (h *ExportHandler) serveObject(w http.ResponseWriter, r *http.Request, key string) {
	url, err := h.Objects.PresignedURL(r.Context(), key, 15*time.Minute)
	if err != nil {
		slog.Error("Failed to generate presigned URL", "error", err, "key", key)
		http.Error(w, `{"error":"failed to generate download URL"}`, http.StatusInternalServerError)
		return
	}
	if url != "" {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}

	obj, err := h.Objects.Open(r.Context(), key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		http.Error(w, `{"error":"File not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+path.Base(key))
	if _, err := io.Copy(w, obj); err != nil {
		slog.Warn("Download interrupted", "key", key, "error", err)
	}
}

// ── User exports ──

func (h *ExportHandler) ExportQuizHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	h.enqueue(w, r, reports.TaskExportQuizHistory, reports.UserArgs{UserID: p.UserID}, "Export started")
}

func (h *ExportHandler) DownloadQuizHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	st, ok := h.status(w, r, p, chi.URLParam(r, "taskID"))
	if !ok {
		return
	}
	if st.Task != reports.TaskExportQuizHistory {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	switch st.State {
	case jobs.StatePending:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": string(jobs.StatePending)})
	case jobs.StateFailed:
		http.Error(w, `{"error":"Export failed"}`, http.StatusNotFound)
	default:
		h.serveObject(w, r, st.Result)
	}
}

// ExportQuizHistoryDirect streams the caller's history without a job.
func (h *ExportHandler) ExportQuizHistoryDirect(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	u, err := h.Service.GetUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+h.Reports.QuizHistoryFilename(u.ID))
	if _, err := h.Reports.WriteQuizHistory(r.Context(), w, u); err != nil {
		// Headers are sent; the truncated body is all the client gets.
		slog.Error("Direct export failed", "user_id", u.ID, "error", err)
	}
}

// ── Admin exports and test jobs ──

func (h *ExportHandler) ExportAllUsersStats(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, reports.TaskExportAllUsersStats, nil, "Export started")
}

func (h *ExportHandler) DownloadLatestStats(w http.ResponseWriter, r *http.Request) {
	objs, err := h.Objects.List(r.Context(), reports.AllUsersStatsPrefix)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(objs) == 0 {
		http.Error(w, `{"error":"No export file found"}`, http.StatusNotFound)
		return
	}
	h.serveObject(w, r, objs[len(objs)-1].Key)
}

func (h *ExportHandler) DownloadStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	dir, base := path.Split(reports.AllUsersStatsPrefix)
	if strings.ContainsAny(name, `/\`) || !strings.HasPrefix(name, base) || !strings.HasSuffix(name, ".csv") {
		http.Error(w, `{"error":"File not found"}`, http.StatusNotFound)
		return
	}
	h.serveObject(w, r, dir+name)
}

func (h *ExportHandler) TestEmail(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, reports.TaskTestEmail, nil, "Test email queued")
}

func (h *ExportHandler) TestMonthlyReport(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, reports.TaskMonthlyReport, nil, "Monthly report queued")
}
