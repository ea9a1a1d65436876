package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"taskflow/internal/models"
	"taskflow/internal/pdf"
	"taskflow/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskHandler struct {
	service services.TaskService
	reports *pdf.ReportGenerator
}

func NewTaskHandler(service services.TaskService, reports *pdf.ReportGenerator) *TaskHandler {
	return &TaskHandler{service: service, reports: reports}
}

// sortField whitelists the sortable task fields.
func sortField(s string) (string, bool) {
	switch s {
	case "", "dueDate":
		return "dueDate", true
	case "createdAt", "priority", "status", "title":
		return s, true
	}
	return "", false
}

func parseListQuery(c *gin.Context) (models.TaskFilter, models.TaskSort, error) {
	var filter models.TaskFilter
	if v, ok := c.GetQuery("status"); ok && v != "" {
		st := models.TaskStatus(v)
		if !st.Valid() {
			return filter, models.TaskSort{}, fmt.Errorf("invalid status %q", v)
		}
		filter.Status = &st
	}
	if v, ok := c.GetQuery("priority"); ok && v != "" {
		p := models.TaskPriority(v)
		if !p.Valid() {
			return filter, models.TaskSort{}, fmt.Errorf("invalid priority %q", v)
		}
		filter.Priority = &p
	}

	field, ok := sortField(c.Query("sortBy"))
	if !ok {
		return filter, models.TaskSort{}, fmt.Errorf("invalid sortBy %q", c.Query("sortBy"))
	}
	sort := models.TaskSort{Field: field, Desc: c.Query("sortOrder") == "desc"}
	return filter, sort, nil
}

// POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	var req struct {
		Title        string              `json:"title" binding:"required,max=100"`
		Description  string              `json:"description"`
		DueDate      string              `json:"dueDate" binding:"required"` // RFC3339
		Priority     models.TaskPriority `json:"priority"`
		Status       models.TaskStatus   `json:"status"`
		AssignedToID *string             `json:"assignedToId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][create][bind][err] %v", err)
		bindError(c, err)
		return
	}

	due, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []gin.H{
			{"path": "dueDate", "message": "dueDate must be a valid RFC3339 date"},
		}})
		return
	}
	if req.Priority != "" && !req.Priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []gin.H{
			{"path": "priority", "message": "priority is invalid"},
		}})
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []gin.H{
			{"path": "status", "message": "status is invalid"},
		}})
		return
	}

	input := models.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	if req.AssignedToID != nil && *req.AssignedToID != "" {
		id, err := primitive.ObjectIDFromHex(*req.AssignedToID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []gin.H{
				{"path": "assignedToId", "message": "assignedToId must be a valid user id"},
			}})
			return
		}
		input.AssignedToID = &id
	}

	task, err := h.service.Create(c.Request.Context(), input, userID)
	if err != nil {
		log.Printf("[task][create][err] %v", err)
		serviceError(c, err, "failed to create task")
		return
	}

	log.Printf("[task][create][ok] id=%s creator=%s", task.ID.Hex(), userID.Hex())
	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task":    task,
	})
}

// GET /tasks
func (h *TaskHandler) GetAll(c *gin.Context) {
	h.list(c, "list", func(filter models.TaskFilter, sort models.TaskSort, _ primitive.ObjectID) ([]models.TaskView, error) {
		return h.service.List(c.Request.Context(), filter, sort)
	})
}

// GET /tasks/my-created
func (h *TaskHandler) GetMyCreated(c *gin.Context) {
	h.list(c, "my-created", func(filter models.TaskFilter, sort models.TaskSort, userID primitive.ObjectID) ([]models.TaskView, error) {
		return h.service.ListCreated(c.Request.Context(), userID, filter, sort)
	})
}

// GET /tasks/my-assigned
func (h *TaskHandler) GetMyAssigned(c *gin.Context) {
	h.list(c, "my-assigned", func(filter models.TaskFilter, sort models.TaskSort, userID primitive.ObjectID) ([]models.TaskView, error) {
		return h.service.ListAssigned(c.Request.Context(), userID, filter, sort)
	})
}

// GET /tasks/overdue
func (h *TaskHandler) GetOverdue(c *gin.Context) {
	h.list(c, "overdue", func(filter models.TaskFilter, sort models.TaskSort, userID primitive.ObjectID) ([]models.TaskView, error) {
		return h.service.ListOverdue(c.Request.Context(), userID, filter, sort)
	})
}

func (h *TaskHandler) list(c *gin.Context, op string, fetch func(models.TaskFilter, models.TaskSort, primitive.ObjectID) ([]models.TaskView, error)) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	filter, sort, err := parseListQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks, err := fetch(filter, sort, userID)
	if err != nil {
		log.Printf("[task][%s][err] %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// GET /tasks/:id
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	task, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		log.Printf("[task][get][err] id=%s: %v", c.Param("id"), err)
		serviceError(c, err, "failed to get task")
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// PUT /tasks/:id — creator or current assignee only. An explicit empty
// assignedToId clears the assignee.
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req struct {
		Title        *string              `json:"title" binding:"omitempty,min=1,max=100"`
		Description  *string              `json:"description"`
		DueDate      *string              `json:"dueDate"` // RFC3339
		Priority     *models.TaskPriority `json:"priority"`
		Status       *models.TaskStatus   `json:"status"`
		AssignedToID *string              `json:"assignedToId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][update][bind][err] %v", err)
		bindError(c, err)
		return
	}

	patch := models.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.DueDate != nil {
		t, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []gin.H{
				{"path": "dueDate", "message": "dueDate must be a valid RFC3339 date"},
			}})
			return
		}
		patch.DueDate = &t
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []gin.H{
				{"path": "priority", "message": "priority is invalid"},
			}})
			return
		}
		patch.Priority = req.Priority
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []gin.H{
				{"path": "status", "message": "status is invalid"},
			}})
			return
		}
		patch.Status = req.Status
	}
	if req.AssignedToID != nil {
		if *req.AssignedToID == "" {
			patch.ClearAssignee = true
		} else {
			aid, err := primitive.ObjectIDFromHex(*req.AssignedToID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": []gin.H{
					{"path": "assignedToId", "message": "assignedToId must be a valid user id"},
				}})
				return
			}
			patch.AssignedToID = &aid
		}
	}

	task, _, err := h.service.Update(c.Request.Context(), id, patch, userID)
	if err != nil {
		log.Printf("[task][update][err] id=%s actor=%s: %v", id.Hex(), userID.Hex(), err)
		serviceError(c, err, "failed to update task")
		return
	}

	log.Printf("[task][update][ok] id=%s", id.Hex())
	c.JSON(http.StatusOK, gin.H{
		"message": "Task updated successfully",
		"task":    task,
	})
}

// DELETE /tasks/:id — creator only.
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, userID); err != nil {
		log.Printf("[task][delete][err] id=%s actor=%s: %v", id.Hex(), userID.Hex(), err)
		serviceError(c, err, "failed to delete task")
		return
	}

	log.Printf("[task][delete][ok] id=%s", id.Hex())
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// GET /tasks/report — PDF export of the acting user's created and assigned
// tasks.
func (h *TaskHandler) Report(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	sort := models.TaskSort{Field: "dueDate"}
	created, err := h.service.ListCreated(c.Request.Context(), userID, models.TaskFilter{}, sort)
	if err != nil {
		log.Printf("[task][report][err] created: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	assigned, err := h.service.ListAssigned(c.Request.Context(), userID, models.TaskFilter{}, sort)
	if err != nil {
		log.Printf("[task][report][err] assigned: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}

	data, err := h.reports.TasksReport(created, assigned)
	if err != nil {
		log.Printf("[task][report][err] render: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="tasks-report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
