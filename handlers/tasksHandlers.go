package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"taskboard/gantt"
	"taskboard/models"
	"taskboard/tasks"
	"taskboard/utilities"
)

type taskListResponse struct {
	Tasks      []models.Task      `json:"tasks"`
	ViewMode   string             `json:"view_mode"`
	Status     string             `json:"status,omitempty"`
	Priority   string             `json:"priority,omitempty"`
	Statuses   []models.Status    `json:"statuses"`
	Priorities models.PrioritySet `json:"priorities"`
}

func taskID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.ValidationError{Field: "id", Message: "invalid task id"}
	}
	return id, nil
}

func listQuery(r *http.Request, defaultView string) tasks.Query {
	q := r.URL.Query()
	view := q.Get("view_mode")
	if view == "" {
		view = defaultView
	}
	return tasks.Query{
		Scope:    models.ParseScope(view),
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
	}
}

func bindTaskInput(r *http.Request) (tasks.TaskInput, error) {
	var in tasks.TaskInput
	err := bind(r, &in, func(get func(string) string) {
		in.Title = get("title")
		in.Detail = get("detail")
		in.Priority = get("priority")
		if _, ok := r.PostForm["start_date"]; ok {
			start := get("start_date")
			in.StartDate = &start
		}
		in.DueDate = get("due_date")
	})
	return in, err
}

// ListTasksHandler lists tasks for view_mode (personal by default), status and priority.
func (h *Handler) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r, "personal")
	list, err := h.Tasks.List(r.Context(), sessionFrom(r).Identity(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, taskListResponse{
		Tasks:      list,
		ViewMode:   q.Scope.String(),
		Status:     r.URL.Query().Get("status"),
		Priority:   r.URL.Query().Get("priority"),
		Statuses:   models.Statuses,
		Priorities: h.Tasks.Priorities(),
	})
}

func (h *Handler) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	in, err := bindTaskInput(r)
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.Tasks.Create(r.Context(), sessionFrom(r).Identity(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	utilities.LogInfo("Task created: %s (ID: %d)", t.Title, t.ID)
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.Tasks.Get(r.Context(), sessionFrom(r).Identity(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTaskHandler replaces every editable field of a task.
func (h *Handler) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	in, err := bindTaskInput(r)
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.Tasks.Update(r.Context(), sessionFrom(r).Identity(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	utilities.LogInfo("Task %d updated", id)
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := bind(r, &in, func(get func(string) string) { in.Status = get("status") }); err != nil {
		writeError(w, err)
		return
	}

	if err := h.Tasks.UpdateStatus(r.Context(), sessionFrom(r).Identity(), id, in.Status); err != nil {
		writeError(w, err)
		return
	}
	utilities.LogInfo("Task %d moved to %s", id, in.Status)
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": in.Status})
}

func (h *Handler) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Tasks.Delete(r.Context(), sessionFrom(r).Identity(), id); err != nil {
		writeError(w, err)
		return
	}
	utilities.LogInfo("Task %d deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// GanttHandler returns the chart dataset for the filtered tasks, charting
// every owner unless view_mode says otherwise.
func (h *Handler) GanttHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tasks.List(r.Context(), sessionFrom(r).Identity(), listQuery(r, "all"))
	if err != nil {
		writeError(w, err)
		return
	}

	ds, ok := gantt.Project(list, h.Tasks.Now())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"empty": true, "message": "No tasks yet."})
		return
	}
	writeJSON(w, http.StatusOK, ds)
}
