package service

import (
	"errors"
	"testing"
	"time"

	"famigo/internal/models"
	"famigo/internal/repository"
)

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)

	task, err := env.tasks.CreateTask(family.ID, parent.ID, "Wash dishes", nil, nil, 10)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Status != models.TaskOpen {
		t.Errorf("new task status = %v, want OPEN", task.Status)
	}

	assignment, err := env.tasks.AssignTask(task.ID, parent.ID, childMember.ID)
	if err != nil {
		t.Fatalf("AssignTask() error = %v", err)
	}

	task, err = env.tasks.GetTask(task.ID, parent.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if task.Status != models.TaskInProgress {
		t.Errorf("assigned task status = %v, want IN_PROGRESS", task.Status)
	}

	t.Run("assign is idempotent", func(t *testing.T) {
		again, err := env.tasks.AssignTask(task.ID, parent.ID, childMember.ID)
		if err != nil {
			t.Fatalf("AssignTask() error = %v", err)
		}
		if again.ID != assignment.ID {
			t.Errorf("second assign ID = %v, want %v", again.ID, assignment.ID)
		}
	})

	completed, err := env.tasks.CompleteTask(task.ID, child.ID, nil)
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if !completed.IsCompleted || completed.CompletedAt == nil {
		t.Error("CompleteTask() should mark the assignment completed")
	}

	wallet, err := env.wallets.GetWalletForMember(childMember.ID)
	if err != nil {
		t.Fatalf("GetWalletForMember() error = %v", err)
	}
	if wallet.Balance != 10 {
		t.Errorf("balance after completion = %d, want 10", wallet.Balance)
	}

	walletRepo := repository.NewWalletRepository(env.db)
	transactions, err := walletRepo.ListTransactions(wallet.ID)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(transactions))
	}
	earn := transactions[0]
	if earn.Type != models.TransactionEarn || earn.Amount != 10 {
		t.Errorf("ledger entry = %v %d, want EARN 10", earn.Type, earn.Amount)
	}
	if earn.Reason == nil || *earn.Reason != "Task 'Wash dishes' completed" {
		t.Errorf("ledger reason = %v, want Task 'Wash dishes' completed", earn.Reason)
	}
	if earn.TaskAssignmentID == nil || *earn.TaskAssignmentID != assignment.ID {
		t.Error("ledger entry should reference the assignment")
	}

	task, _ = env.tasks.GetTask(task.ID, parent.ID)
	if task.Status != models.TaskDone {
		t.Errorf("task status after full completion = %v, want DONE", task.Status)
	}

	t.Run("complete is idempotent", func(t *testing.T) {
		if _, err := env.tasks.CompleteTask(task.ID, child.ID, nil); err != nil {
			t.Fatalf("second CompleteTask() error = %v", err)
		}

		wallet, _ := env.wallets.GetWalletForMember(childMember.ID)
		if wallet.Balance != 10 {
			t.Errorf("balance after repeat completion = %d, want 10", wallet.Balance)
		}
		transactions, _ := walletRepo.ListTransactions(wallet.ID)
		if len(transactions) != 1 {
			t.Errorf("ledger entries after repeat completion = %d, want 1", len(transactions))
		}
	})

	t.Run("closed task rejects new assignments", func(t *testing.T) {
		parentMember, _ := env.families.EnsureMember(parent.ID, family.ID)
		_, err := env.tasks.AssignTask(task.ID, parent.ID, parentMember.ID)
		if !errors.Is(err, ErrTaskClosed) {
			t.Errorf("AssignTask() on DONE task error = %v, want ErrTaskClosed", err)
		}
	})

	t.Run("re-assign stays idempotent on a DONE task", func(t *testing.T) {
		again, err := env.tasks.AssignTask(task.ID, parent.ID, childMember.ID)
		if err != nil {
			t.Fatalf("AssignTask() error = %v", err)
		}
		if again.ID != assignment.ID {
			t.Errorf("re-assign ID = %v, want %v", again.ID, assignment.ID)
		}
	})
}

func TestCompleteOnBehalf(t *testing.T) {
	env := newTestEnv(t)
	family, parent, _, childMember := env.createFamily(t)

	task, err := env.tasks.CreateTask(family.ID, parent.ID, "Rake leaves", nil, nil, 10)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := env.tasks.AssignTask(task.ID, parent.ID, childMember.ID); err != nil {
		t.Fatalf("AssignTask() error = %v", err)
	}

	t.Run("another child cannot complete it", func(t *testing.T) {
		sibling := env.createUser(t, "sibling@example.com")
		if _, err := env.families.JoinBySecretCode(sibling.ID, family.SecretCode, nil); err != nil {
			t.Fatalf("JoinBySecretCode() error = %v", err)
		}

		_, err := env.tasks.CompleteTask(task.ID, sibling.ID, &childMember.ID)
		if !errors.Is(err, ErrNotParent) {
			t.Errorf("CompleteTask() error = %v, want ErrNotParent", err)
		}

		wallet, _ := env.wallets.GetWalletForMember(childMember.ID)
		if wallet.Balance != 0 {
			t.Errorf("balance after forbidden completion = %d, want 0", wallet.Balance)
		}
	})

	t.Run("parent can complete for the assignee", func(t *testing.T) {
		completed, err := env.tasks.CompleteTask(task.ID, parent.ID, &childMember.ID)
		if err != nil {
			t.Fatalf("CompleteTask() error = %v", err)
		}
		if !completed.IsCompleted {
			t.Error("CompleteTask() should mark the assignment completed")
		}

		wallet, _ := env.wallets.GetWalletForMember(childMember.ID)
		if wallet.Balance != 10 {
			t.Errorf("balance = %d, want 10", wallet.Balance)
		}
	})
}

func TestZeroPointTaskCompletion(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)

	task, err := env.tasks.CreateTask(family.ID, parent.ID, "Say thanks", nil, nil, 0)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := env.tasks.AssignTask(task.ID, parent.ID, childMember.ID); err != nil {
		t.Fatalf("AssignTask() error = %v", err)
	}

	completed, err := env.tasks.CompleteTask(task.ID, child.ID, nil)
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if !completed.IsCompleted {
		t.Error("CompleteTask() should mark the assignment completed")
	}

	got, _ := env.tasks.GetTask(task.ID, parent.ID)
	if got.Status != models.TaskDone {
		t.Errorf("task status = %v, want DONE", got.Status)
	}

	// No points means no ledger entry
	wallet, err := env.wallets.GetWalletForMember(childMember.ID)
	if err != nil {
		t.Fatalf("GetWalletForMember() error = %v", err)
	}
	if wallet.Balance != 0 {
		t.Errorf("balance = %d, want 0", wallet.Balance)
	}
	walletRepo := repository.NewWalletRepository(env.db)
	transactions, err := walletRepo.ListTransactions(wallet.ID)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(transactions) != 0 {
		t.Errorf("ledger entries = %d, want 0", len(transactions))
	}
}

func TestAssignCrossFamily(t *testing.T) {
	env := newTestEnv(t)
	family, parent, _, _ := env.createFamily(t)

	stranger := env.createUser(t, "stranger@example.com")
	otherFamily, err := env.families.CreateFamily("The Others", stranger.ID, nil)
	if err != nil {
		t.Fatalf("CreateFamily() error = %v", err)
	}
	strangerMember, err := env.families.EnsureMember(stranger.ID, otherFamily.ID)
	if err != nil {
		t.Fatalf("EnsureMember() error = %v", err)
	}

	task, err := env.tasks.CreateTask(family.ID, parent.ID, "Vacuum", nil, nil, 5)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	_, err = env.tasks.AssignTask(task.ID, parent.ID, strangerMember.ID)
	if !errors.Is(err, ErrCrossFamilyAssignment) {
		t.Errorf("AssignTask() error = %v, want ErrCrossFamilyAssignment", err)
	}
}

func TestTaskDoneOnlyWhenAllAssignmentsComplete(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)
	parentMember, _ := env.families.EnsureMember(parent.ID, family.ID)

	task, err := env.tasks.CreateTask(family.ID, parent.ID, "Tidy garden", nil, nil, 5)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	for _, memberID := range []string{childMember.ID, parentMember.ID} {
		if _, err := env.tasks.AssignTask(task.ID, parent.ID, memberID); err != nil {
			t.Fatalf("AssignTask() error = %v", err)
		}
	}

	if _, err := env.tasks.CompleteTask(task.ID, child.ID, nil); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}

	got, _ := env.tasks.GetTask(task.ID, parent.ID)
	if got.Status != models.TaskInProgress {
		t.Errorf("status with one of two complete = %v, want IN_PROGRESS", got.Status)
	}

	if _, err := env.tasks.CompleteTask(task.ID, parent.ID, nil); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}

	got, _ = env.tasks.GetTask(task.ID, parent.ID)
	if got.Status != models.TaskDone {
		t.Errorf("status with all complete = %v, want DONE", got.Status)
	}
}

func TestCompleteWithoutAssignment(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, _ := env.createFamily(t)

	task, err := env.tasks.CreateTask(family.ID, parent.ID, "Mop floor", nil, nil, 5)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	_, err = env.tasks.CompleteTask(task.ID, child.ID, nil)
	if !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("CompleteTask() error = %v, want ErrAssignmentNotFound", err)
	}
}

func TestUpdateTask(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)

	task, err := env.tasks.CreateTask(family.ID, parent.ID, "Original", nil, nil, 5)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	t.Run("non-creator child cannot edit", func(t *testing.T) {
		title := "Hijacked"
		_, err := env.tasks.UpdateTask(task.ID, child.ID, TaskUpdate{Title: &title})
		if !errors.Is(err, ErrNotTaskEditor) {
			t.Errorf("UpdateTask() error = %v, want ErrNotTaskEditor", err)
		}
	})

	title := "Renamed"
	points := 20
	updated, err := env.tasks.UpdateTask(task.ID, parent.ID, TaskUpdate{Title: &title, PointsValue: &points})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if updated.Title != "Renamed" || updated.PointsValue != 20 {
		t.Errorf("UpdateTask() = %q/%d, want Renamed/20", updated.Title, updated.PointsValue)
	}

	t.Run("locked after a completion", func(t *testing.T) {
		if _, err := env.tasks.AssignTask(task.ID, parent.ID, childMember.ID); err != nil {
			t.Fatalf("AssignTask() error = %v", err)
		}
		if _, err := env.tasks.CompleteTask(task.ID, child.ID, nil); err != nil {
			t.Fatalf("CompleteTask() error = %v", err)
		}

		other := "Too late"
		_, err := env.tasks.UpdateTask(task.ID, parent.ID, TaskUpdate{Title: &other})
		if !errors.Is(err, ErrTaskLocked) {
			t.Errorf("UpdateTask() error = %v, want ErrTaskLocked", err)
		}
	})
}

func TestExpireOverdueTasks(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)

	past := time.Now().UTC().Add(-time.Hour)
	overdue, err := env.tasks.CreateTask(family.ID, parent.ID, "Overdue", nil, &past, 5)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	future := time.Now().UTC().Add(time.Hour)
	current, err := env.tasks.CreateTask(family.ID, parent.ID, "Current", nil, &future, 5)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	// A completed task past its deadline stays DONE
	finished, err := env.tasks.CreateTask(family.ID, parent.ID, "Finished", nil, &past, 5)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := env.tasks.AssignTask(finished.ID, parent.ID, childMember.ID); err != nil {
		t.Fatalf("AssignTask() error = %v", err)
	}
	if _, err := env.tasks.CompleteTask(finished.ID, child.ID, nil); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}

	expired, err := env.tasks.ExpireOverdueTasks()
	if err != nil {
		t.Fatalf("ExpireOverdueTasks() error = %v", err)
	}
	if expired != 1 {
		t.Errorf("ExpireOverdueTasks() = %d, want 1", expired)
	}

	checks := []struct {
		name   string
		taskID string
		want   models.TaskStatus
	}{
		{"overdue open task expires", overdue.ID, models.TaskExpired},
		{"future task untouched", current.ID, models.TaskOpen},
		{"done task untouched", finished.ID, models.TaskDone},
	}
	for _, tc := range checks {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.tasks.GetTask(tc.taskID, parent.ID)
			if err != nil {
				t.Fatalf("GetTask() error = %v", err)
			}
			if got.Status != tc.want {
				t.Errorf("status = %v, want %v", got.Status, tc.want)
			}
		})
	}
}

func TestListTasksForUser(t *testing.T) {
	env := newTestEnv(t)
	family, parent, child, childMember := env.createFamily(t)

	assigned, err := env.tasks.CreateTask(family.ID, parent.ID, "Assigned", nil, nil, 5)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := env.tasks.AssignTask(assigned.ID, parent.ID, childMember.ID); err != nil {
		t.Fatalf("AssignTask() error = %v", err)
	}

	if _, err := env.tasks.CreateTask(family.ID, parent.ID, "Unassigned", nil, nil, 5); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	mine, err := env.tasks.ListTasksForUser(child.ID)
	if err != nil {
		t.Fatalf("ListTasksForUser() error = %v", err)
	}
	if len(mine) != 1 || mine[0].ID != assigned.ID {
		t.Errorf("ListTasksForUser() = %d tasks, want the single assigned task", len(mine))
	}
}
