package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/review"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/core/task"
	testutil "github.com/trezcool/kazi/tests"
)

func Test_reviewApi_create(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	adminToken := getToken(t, app, adminUsr)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusSubmitted, adminUsr.ID, &instUsr.ID, 100)
	sub := testutil.CreateSubmission(t, app.subRepo, tsk.ID, instUsr.ID, submission.StatusPending, 1)

	payload := func(subID, status, comment string) []byte {
		m := map[string]string{"submission_id": subID, "status": status}
		if comment != "" {
			m["comment"] = comment
		}
		return marchallObj(t, m)
	}

	tests := []httpTest{
		{name: "auth required", body: payload(sub.ID, "approved", ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", token: getToken(t, app, instUsr), body: payload(sub.ID, "approved", ""),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid verdict", token: adminToken, body: payload(sub.ID, "maybe", ""),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"status": "status must be one of [approved rejected revision_required]"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/reviews", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("approval cascades and locks the task", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/reviews", adminToken, payload(sub.ID, "approved", "solid work"))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create code = %d, body %s", rec.Code, rec.Body.String())
		}

		var rev review.Review
		if err := json.Unmarshal(rec.Body.Bytes(), &rev); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if rev.Status != review.StatusApproved || rev.ReviewerID != adminUsr.ID || rev.Comment == nil || *rev.Comment != "solid work" {
			t.Errorf("create returned %+v", rev)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/tasks/"+tsk.ID, adminToken)
		app.server.ServeHTTP(rec, req)
		var got task.Task
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if got.Status != task.StatusCompleted || !got.IsLocked {
			t.Errorf("task after approval = %+v, want completed and locked", got)
		}
	})

	t.Run("first verdict wins", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/reviews", adminToken, payload(sub.ID, "rejected", ""))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("second verdict code = %d, want %d; body %s", rec.Code, http.StatusConflict, rec.Body.String())
		}
	})
}

func Test_reviewApi_quick(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	adminToken := getToken(t, app, adminUsr)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusSubmitted, adminUsr.ID, &instUsr.ID, 100)
	sub := testutil.CreateSubmission(t, app.subRepo, tsk.ID, instUsr.ID, submission.StatusPending, 1)

	body := marchallObj(t, map[string]string{"submission_id": sub.ID, "status": "revision_required"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/reviews/quick", adminToken, body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("quick review code = %d, body %s", rec.Code, rec.Body.String())
	}

	var rev review.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &rev); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if rev.Status != review.StatusRevisionRequired || rev.Comment != nil {
		t.Errorf("quick review returned %+v", rev)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/tasks/"+tsk.ID, adminToken)
	app.server.ServeHTTP(rec, req)
	var got task.Task
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != task.StatusRevisionRequired || got.IsLocked {
		t.Errorf("task after quick review = %+v, want revision_required and unlocked", got)
	}
}

func Test_reviewApi_query(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	adminToken := getToken(t, app, adminUsr)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusSubmitted, adminUsr.ID, &instUsr.ID, 100)
	sub := testutil.CreateSubmission(t, app.subRepo, tsk.ID, instUsr.ID, submission.StatusPending, 1)

	body := marchallObj(t, map[string]string{"submission_id": sub.ID, "status": "approved"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/reviews", adminToken, body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seeding review failed: %d %s", rec.Code, rec.Body.String())
	}

	tests := []httpTest{
		{name: "auth required", path: "/v1/reviews", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/reviews", token: getToken(t, app, instUsr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("filter by submission", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reviews?submission_id="+sub.ID, adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("query code = %d, body %s", rec.Code, rec.Body.String())
		}
		var reviews []review.Review
		if err := json.Unmarshal(rec.Body.Bytes(), &reviews); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(reviews) != 1 || reviews[0].SubmissionID != sub.ID {
			t.Errorf("query got %+v, want the seeded review", reviews)
		}
	})
}
