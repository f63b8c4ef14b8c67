package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/kazi/core/payment"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	fullName, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	ctx := context.Background()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Email:     email,
		FullName:  fullName,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateIdentity(ctx, usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if usr, err = repo.CreateProfile(ctx, usr); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTask(
	t *testing.T,
	repo task.Repository,
	title, status, createdBy string,
	assignedTo *string,
	amount float64,
) task.Task {
	t.Helper()

	now := time.Now().UTC()
	tsk := task.Task{
		Title:      title,
		Status:     status,
		Priority:   task.PriorityMedium,
		Amount:     amount,
		AssignedTo: assignedTo,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tsk, err := repo.CreateTask(context.Background(), tsk)
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	return tsk
}

func LockTask(t *testing.T, repo task.Repository, id string) task.Task {
	t.Helper()

	lock := true
	tsk, err := repo.SetTaskStatus(context.Background(), id, task.StatusCompleted, &lock)
	if err != nil {
		t.Fatalf("LockTask() failed: %v", err)
	}
	return tsk
}

func CreateSubmission(
	t *testing.T,
	repo submission.Repository,
	taskID, instructorID, status string,
	revision int,
) submission.Submission {
	t.Helper()

	url := "https://github.com/acme/work"
	sub := submission.Submission{
		TaskID:         taskID,
		InstructorID:   instructorID,
		SubmissionURL:  &url,
		LinkType:       submission.LinkTypeGithub,
		RevisionNumber: revision,
		Status:         status,
		SubmittedAt:    time.Now().UTC(),
	}
	sub, err := repo.CreateSubmission(context.Background(), sub)
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return sub
}

func CreatePayment(
	t *testing.T,
	repo payment.Repository,
	taskID, instructorID, status string,
	amount float64,
) payment.Payment {
	t.Helper()

	pmt := payment.Payment{
		TaskID:       taskID,
		InstructorID: instructorID,
		Amount:       amount,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
	pmt, err := repo.CreatePayment(context.Background(), pmt)
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return pmt
}
