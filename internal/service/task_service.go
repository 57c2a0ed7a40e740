package service

import (
	"errors"
	"fmt"
	"time"

	"famigo/internal/database"
	"famigo/internal/models"
	"famigo/internal/repository"
)

var (
	ErrTaskNotFound          = errors.New("task not found")
	ErrTaskClosed            = errors.New("task is no longer accepting assignments")
	ErrTaskLocked            = errors.New("task can no longer be edited")
	ErrNotTaskEditor         = errors.New("only the creator or a parent can edit a task")
	ErrAssignmentNotFound    = errors.New("assignment not found")
	ErrCrossFamilyAssignment = errors.New("assignee is not in the task's family")
	ErrInvalidPoints         = errors.New("points value must not be negative")
)

// TaskUpdate carries the editable task fields. Nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	PointsValue *int       `json:"points_value,omitempty"`
}

// TaskService handles the task lifecycle: OPEN on creation, IN_PROGRESS on
// first assignment, DONE when every assignment is completed, EXPIRED when the
// deadline sweep catches an unfinished task. Completing an assignment credits
// the assignee's wallet in the same transaction.
type TaskService struct {
	db         *database.DB
	taskRepo   *repository.TaskRepository
	familyRepo *repository.FamilyRepository
	walletRepo *repository.WalletRepository
	wallets    *WalletService
}

// NewTaskService creates a new task service
func NewTaskService(db *database.DB, wallets *WalletService) *TaskService {
	return &TaskService{
		db:         db,
		taskRepo:   repository.NewTaskRepository(db),
		familyRepo: repository.NewFamilyRepository(db),
		walletRepo: repository.NewWalletRepository(db),
		wallets:    wallets,
	}
}

// CreateTask creates a new OPEN task in a family. Any member can create tasks.
func (s *TaskService) CreateTask(familyID, actorUserID, title string, description *string, deadline *time.Time, pointsValue int) (*models.Task, error) {
	if title == "" {
		return nil, errors.New("task title is required")
	}
	if pointsValue < 0 {
		return nil, ErrInvalidPoints
	}

	actor, err := s.ensureMember(actorUserID, familyID)
	if err != nil {
		return nil, err
	}

	task, err := s.taskRepo.CreateTask(familyID, title, description, deadline, pointsValue, &actor.ID)
	if err != nil {
		return nil, err
	}

	return task, nil
}

// GetTask retrieves a task visible to the requesting user
func (s *TaskService) GetTask(taskID, actorUserID string) (*models.Task, error) {
	task, err := s.taskRepo.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	if _, err := s.ensureMember(actorUserID, task.FamilyID); err != nil {
		return nil, err
	}

	return task, nil
}

// AssignTask assigns a task to a family member. Assigning is idempotent: an
// existing assignment is returned unchanged. The first assignment moves an
// OPEN task to IN_PROGRESS.
func (s *TaskService) AssignTask(taskID, actorUserID, assigneeMemberID string) (*models.TaskAssignment, error) {
	task, err := s.taskRepo.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	if _, err := s.ensureMember(actorUserID, task.FamilyID); err != nil {
		return nil, err
	}

	assignee, err := s.familyRepo.GetMemberByID(assigneeMemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignee: %w", err)
	}
	if assignee == nil {
		return nil, ErrMemberNotFound
	}
	if assignee.FamilyID != task.FamilyID {
		return nil, ErrCrossFamilyAssignment
	}

	// Idempotency before the status gate: re-assigning an existing assignee
	// returns the assignment unchanged even on a closed task
	existing, err := s.taskRepo.GetAssignment(taskID, assigneeMemberID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if task.Status == models.TaskDone || task.Status == models.TaskExpired {
		return nil, ErrTaskClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	taskRepo := repository.NewTaskRepository(tx)

	assignment, err := taskRepo.CreateAssignment(taskID, assigneeMemberID)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskOpen {
		if err := taskRepo.SetTaskStatus(taskID, models.TaskInProgress); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit assignment: %w", err)
	}

	return assignment, nil
}

// CompleteTask completes an assignment of the task and credits the assignee's
// wallet with the task's points. By default the actor completes their own
// assignment; only a PARENT can pass a member ID to complete on behalf of
// another assignee.
// Completion is idempotent: a second call finds the assignment already
// completed and credits nothing.
func (s *TaskService) CompleteTask(taskID, actorUserID string, assigneeMemberID *string) (*models.TaskAssignment, error) {
	task, err := s.taskRepo.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	actor, err := s.ensureMember(actorUserID, task.FamilyID)
	if err != nil {
		return nil, err
	}

	targetMemberID := actor.ID
	if assigneeMemberID != nil && *assigneeMemberID != "" {
		targetMemberID = *assigneeMemberID
	}
	if targetMemberID != actor.ID && actor.Role != models.RoleParent {
		return nil, ErrNotParent
	}

	assignment, err := s.taskRepo.GetAssignment(taskID, targetMemberID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, ErrAssignmentNotFound
	}
	if assignment.IsCompleted {
		return assignment, nil
	}

	wallet, err := s.walletRepo.GetWalletByMemberID(targetMemberID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	taskRepo := repository.NewTaskRepository(tx)

	won, err := taskRepo.CompleteAssignment(assignment.ID, &actor.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race to a concurrent completion, nothing left to do
		if err := tx.Rollback(); err != nil {
			return nil, err
		}
		return s.taskRepo.GetAssignmentByID(assignment.ID)
	}

	// Zero-point tasks complete without touching the ledger
	if task.PointsValue > 0 {
		reason := fmt.Sprintf("Task '%s' completed", task.Title)
		if err := s.wallets.Credit(tx, wallet.ID, task.PointsValue, &reason, &assignment.ID, nil, &actor.ID); err != nil {
			return nil, err
		}
	}

	total, completed, err := taskRepo.CountAssignments(taskID)
	if err != nil {
		return nil, err
	}
	if total > 0 && total == completed {
		if err := taskRepo.SetTaskStatus(taskID, models.TaskDone); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	return s.taskRepo.GetAssignmentByID(assignment.ID)
}

// UpdateTask edits a task's details. Only the creator or a PARENT may edit,
// and a task locks against edits once any assignment has been completed or
// the task has left the active states.
func (s *TaskService) UpdateTask(taskID, actorUserID string, update TaskUpdate) (*models.Task, error) {
	task, err := s.taskRepo.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	actor, err := s.ensureMember(actorUserID, task.FamilyID)
	if err != nil {
		return nil, err
	}

	isCreator := task.CreatedByMemberID != nil && *task.CreatedByMemberID == actor.ID
	if !isCreator && actor.Role != models.RoleParent {
		return nil, ErrNotTaskEditor
	}

	if task.Status == models.TaskDone || task.Status == models.TaskExpired {
		return nil, ErrTaskLocked
	}
	anyCompleted, err := s.taskRepo.AnyAssignmentCompleted(taskID)
	if err != nil {
		return nil, err
	}
	if anyCompleted {
		return nil, ErrTaskLocked
	}

	if update.Title != nil {
		if *update.Title == "" {
			return nil, errors.New("task title is required")
		}
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = update.Description
	}
	if update.Deadline != nil {
		task.Deadline = update.Deadline
	}
	if update.PointsValue != nil {
		if *update.PointsValue < 0 {
			return nil, ErrInvalidPoints
		}
		task.PointsValue = *update.PointsValue
	}

	if err := s.taskRepo.UpdateTaskDetails(task); err != nil {
		return nil, err
	}

	return task, nil
}

// ListTasksForFamily retrieves all tasks in a family for a member
func (s *TaskService) ListTasksForFamily(familyID, actorUserID string) ([]models.Task, error) {
	if _, err := s.ensureMember(actorUserID, familyID); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListTasksForFamily(familyID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// ListTasksForUser retrieves the tasks assigned to the user across all
// their families
func (s *TaskService) ListTasksForUser(userID string) ([]models.Task, error) {
	tasks, err := s.taskRepo.ListTasksForUser(userID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// ListAssignments retrieves the assignments of a task for a family member
func (s *TaskService) ListAssignments(taskID, actorUserID string) ([]models.TaskAssignment, error) {
	task, err := s.taskRepo.GetTaskByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	if _, err := s.ensureMember(actorUserID, task.FamilyID); err != nil {
		return nil, err
	}

	assignments, err := s.taskRepo.ListAssignmentsForTask(taskID)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []models.TaskAssignment{}
	}
	return assignments, nil
}

// ExpireOverdueTasks marks unfinished tasks past their deadline as EXPIRED.
// It is called periodically by the background sweep.
func (s *TaskService) ExpireOverdueTasks() (int64, error) {
	return s.taskRepo.ExpireOverdueTasks(time.Now().UTC())
}

func (s *TaskService) ensureMember(userID, familyID string) (*models.FamilyMember, error) {
	member, err := s.familyRepo.GetMemberByUserAndFamily(userID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if member == nil {
		return nil, ErrNotFamilyMember
	}
	return member, nil
}
