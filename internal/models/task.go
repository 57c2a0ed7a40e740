package models

import "time"

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	TaskOpen       TaskStatus = "OPEN"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
	TaskExpired    TaskStatus = "EXPIRED"
)

// Task is a unit of work within a family worth a number of points.
// Created OPEN, moves to IN_PROGRESS on first assignment, DONE when every
// assignment is completed, and becomes immutable once any assignment is
// completed.
type Task struct {
	ID                string     `json:"id"`
	FamilyID          string     `json:"family_id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description,omitempty"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	Status            TaskStatus `json:"status"`
	PointsValue       int        `json:"points_value"`
	CreatedByMemberID *string    `json:"created_by_member_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TaskAssignment binds a task to the family member who must perform it.
// At most one assignment exists per (task, assignee); completion is one-way.
type TaskAssignment struct {
	ID                 string     `json:"id"`
	TaskID             string     `json:"task_id"`
	AssigneeID         string     `json:"assignee_id"`
	IsCompleted        bool       `json:"is_completed"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ApprovedByMemberID *string    `json:"approved_by_member_id,omitempty"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
}
