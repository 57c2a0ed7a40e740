package handlers

import (
	"net/http"
	"time"

	"famigo/internal/logger"
	"famigo/internal/service"
	"famigo/internal/validation"
)

// TaskHandler handles task and assignment requests
type TaskHandler struct {
	taskService *service.TaskService
	validate    *validation.Validator
	log         *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *service.TaskService, validate *validation.Validator, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		validate:    validate,
		log:         log,
	}
}

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description *string    `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	PointsValue int        `json:"points_value" validate:"min=0"`
}

// Create creates a new task in a family
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID := r.PathValue("id")

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	task, err := h.taskService.CreateTask(familyID, user.ID, req.Title, req.Description, req.Deadline, req.PointsValue)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("task_id", task.ID).Info("task created")
	writeJSON(w, http.StatusCreated, task)
}

// ListForFamily lists the tasks of a family
func (h *TaskHandler) ListForFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	familyID := r.PathValue("id")

	tasks, err := h.taskService.ListTasksForFamily(familyID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// Get retrieves a single task
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	taskID := r.PathValue("id")

	task, err := h.taskService.GetTask(taskID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

type assignTaskRequest struct {
	AssigneeMemberID string `json:"assignee_member_id" validate:"required"`
}

// Assign assigns a task to a family member
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	taskID := r.PathValue("id")

	var req assignTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	assignment, err := h.taskService.AssignTask(taskID, user.ID, req.AssigneeMemberID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("task_id", taskID).Info("task assigned")
	writeJSON(w, http.StatusCreated, assignment)
}

type completeTaskRequest struct {
	AssigneeMemberID *string `json:"assignee_member_id,omitempty"`
}

// Complete marks an assignment of the task as completed and credits the
// assignee's wallet
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	taskID := r.PathValue("id")

	var req completeTaskRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondBadRequest(w, "invalid JSON body")
			return
		}
	}

	assignment, err := h.taskService.CompleteTask(taskID, user.ID, req.AssigneeMemberID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	h.log.WithUserID(user.ID).WithField("task_id", taskID).Info("task completed")
	writeJSON(w, http.StatusOK, assignment)
}

// Update edits a task's details
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	taskID := r.PathValue("id")

	var req service.TaskUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.validate.Validate(req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(taskID, user.ID, req)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// ListAssignments lists the assignments of a task
func (h *TaskHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	taskID := r.PathValue("id")

	assignments, err := h.taskService.ListAssignments(taskID, user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, assignments)
}

// ListMine lists the tasks assigned to the authenticated user across all
// their families
func (h *TaskHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	tasks, err := h.taskService.ListTasksForUser(user.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}
