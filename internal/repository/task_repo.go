package repository

import (
	"database/sql"
	"fmt"
	"time"

	"famigo/internal/database"
	"famigo/internal/models"
	"famigo/internal/security"
)

// TaskRepository handles database operations for tasks and assignments
type TaskRepository struct {
	db database.DBTX
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db database.DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateTask inserts a new task in OPEN state
func (r *TaskRepository) CreateTask(familyID, title string, description *string, deadline *time.Time, pointsValue int, createdBy *string) (*models.Task, error) {
	now := time.Now().UTC()
	task := &models.Task{
		ID:                security.NewID(),
		FamilyID:          familyID,
		Title:             title,
		Description:       description,
		Deadline:          deadline,
		Status:            models.TaskOpen,
		PointsValue:       pointsValue,
		CreatedByMemberID: createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	query := `
		INSERT INTO tasks (id, family_id, title, description, deadline, status, points_value, created_by_member_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, task.ID, task.FamilyID, task.Title, task.Description, task.Deadline, task.Status, task.PointsValue, task.CreatedByMemberID, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// GetTaskByID retrieves a task by ID
func (r *TaskRepository) GetTaskByID(id string) (*models.Task, error) {
	query := `
		SELECT id, family_id, title, description, deadline, status, points_value, created_by_member_id, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`
	return r.scanTask(r.db.QueryRow(query, id))
}

func (r *TaskRepository) scanTask(row *sql.Row) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID,
		&task.FamilyID,
		&task.Title,
		&task.Description,
		&task.Deadline,
		&task.Status,
		&task.PointsValue,
		&task.CreatedByMemberID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// UpdateTaskDetails rewrites a task's editable fields
func (r *TaskRepository) UpdateTaskDetails(task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE tasks
		SET title = ?, description = ?, deadline = ?, points_value = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query, task.Title, task.Description, task.Deadline, task.PointsValue, task.UpdatedAt, task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// SetTaskStatus moves a task to a new lifecycle state
func (r *TaskRepository) SetTaskStatus(taskID string, status models.TaskStatus) error {
	query := `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.Exec(query, status, time.Now().UTC(), taskID)
	if err != nil {
		return fmt.Errorf("failed to set task status: %w", err)
	}
	return nil
}

// ListTasksForFamily retrieves all tasks in a family, newest first
func (r *TaskRepository) ListTasksForFamily(familyID string) ([]models.Task, error) {
	query := `
		SELECT id, family_id, title, description, deadline, status, points_value, created_by_member_id, created_at, updated_at
		FROM tasks
		WHERE family_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	return r.collectTasks(rows)
}

// ListTasksForUser retrieves tasks assigned to any of the user's memberships
// across all their families. A task appears once even if the user is assigned
// through multiple memberships.
func (r *TaskRepository) ListTasksForUser(userID string) ([]models.Task, error) {
	query := `
		SELECT DISTINCT t.id, t.family_id, t.title, t.description, t.deadline, t.status, t.points_value, t.created_by_member_id, t.created_at, t.updated_at
		FROM tasks t
		JOIN task_assignments a ON a.task_id = t.id
		JOIN family_members m ON m.id = a.assignee_id
		WHERE m.user_id = ?
		ORDER BY t.created_at DESC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for user: %w", err)
	}
	defer rows.Close()

	return r.collectTasks(rows)
}

func (r *TaskRepository) collectTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		err := rows.Scan(
			&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.Deadline,
			&t.Status, &t.PointsValue, &t.CreatedByMemberID, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateAssignment binds a task to an assignee
func (r *TaskRepository) CreateAssignment(taskID, assigneeID string) (*models.TaskAssignment, error) {
	assignment := &models.TaskAssignment{
		ID:         security.NewID(),
		TaskID:     taskID,
		AssigneeID: assigneeID,
	}

	query := `
		INSERT INTO task_assignments (id, task_id, assignee_id, is_completed)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, assignment.ID, assignment.TaskID, assignment.AssigneeID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	return assignment, nil
}

// GetAssignmentByID retrieves an assignment by ID
func (r *TaskRepository) GetAssignmentByID(id string) (*models.TaskAssignment, error) {
	query := `
		SELECT id, task_id, assignee_id, is_completed, completed_at, approved_by_member_id, approved_at
		FROM task_assignments
		WHERE id = ?
	`
	return r.scanAssignment(r.db.QueryRow(query, id))
}

// GetAssignment retrieves the assignment of a task to a specific member
func (r *TaskRepository) GetAssignment(taskID, assigneeID string) (*models.TaskAssignment, error) {
	query := `
		SELECT id, task_id, assignee_id, is_completed, completed_at, approved_by_member_id, approved_at
		FROM task_assignments
		WHERE task_id = ? AND assignee_id = ?
	`
	return r.scanAssignment(r.db.QueryRow(query, taskID, assigneeID))
}

func (r *TaskRepository) scanAssignment(row *sql.Row) (*models.TaskAssignment, error) {
	a := &models.TaskAssignment{}
	err := row.Scan(
		&a.ID,
		&a.TaskID,
		&a.AssigneeID,
		&a.IsCompleted,
		&a.CompletedAt,
		&a.ApprovedByMemberID,
		&a.ApprovedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return a, nil
}

// ListAssignmentsForTask retrieves all assignments of a task
func (r *TaskRepository) ListAssignmentsForTask(taskID string) ([]models.TaskAssignment, error) {
	query := `
		SELECT id, task_id, assignee_id, is_completed, completed_at, approved_by_member_id, approved_at
		FROM task_assignments
		WHERE task_id = ?
	`
	rows, err := r.db.Query(query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.TaskAssignment
	for rows.Next() {
		var a models.TaskAssignment
		err := rows.Scan(
			&a.ID, &a.TaskID, &a.AssigneeID, &a.IsCompleted,
			&a.CompletedAt, &a.ApprovedByMemberID, &a.ApprovedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// CompleteAssignment flips an assignment to completed exactly once. The
// is_completed guard in the WHERE clause makes concurrent completions of the
// same assignment resolve to a single winner, so points are credited once.
func (r *TaskRepository) CompleteAssignment(assignmentID string, approvedBy *string) (bool, error) {
	now := time.Now().UTC()
	query := `
		UPDATE task_assignments
		SET is_completed = ?, completed_at = ?, approved_by_member_id = ?, approved_at = ?
		WHERE id = ? AND is_completed = ?
	`
	result, err := r.db.Exec(query, true, now, approvedBy, now, assignmentID, false)
	if err != nil {
		return false, fmt.Errorf("failed to complete assignment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CountAssignments returns the total and completed assignment counts for a task
func (r *TaskRepository) CountAssignments(taskID string) (total, completed int, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_completed THEN 1 ELSE 0 END), 0)
		FROM task_assignments
		WHERE task_id = ?
	`
	if err := r.db.QueryRow(query, taskID).Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return total, completed, nil
}

// AnyAssignmentCompleted reports whether any assignment of the task is completed
func (r *TaskRepository) AnyAssignmentCompleted(taskID string) (bool, error) {
	query := `SELECT COUNT(*) FROM task_assignments WHERE task_id = ? AND is_completed = ?`
	var count int
	if err := r.db.QueryRow(query, taskID, true).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check assignments: %w", err)
	}
	return count > 0, nil
}

// ExpireOverdueTasks marks unfinished tasks past their deadline as EXPIRED
// and returns how many were expired
func (r *TaskRepository) ExpireOverdueTasks(now time.Time) (int64, error) {
	query := `
		UPDATE tasks
		SET status = ?, updated_at = ?
		WHERE deadline IS NOT NULL AND deadline < ? AND status IN (?, ?)
	`
	result, err := r.db.Exec(query, models.TaskExpired, now, now, models.TaskOpen, models.TaskInProgress)
	if err != nil {
		return 0, fmt.Errorf("failed to expire tasks: %w", err)
	}
	return result.RowsAffected()
}
