package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/payment"
	"github.com/trezcool/kazi/core/task"
	testutil "github.com/trezcool/kazi/tests"
)

func Test_taskApi_create(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	adminToken := getToken(t, app, adminUsr)

	tests := []httpTest{
		{name: "auth required", body: marchallObj(t, map[string]string{"title": "Grade exams"}), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", token: getToken(t, app, instUsr), body: marchallObj(t, map[string]string{"title": "Grade exams"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "title required", token: adminToken, body: []byte("{}"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "invalid priority", token: adminToken, body: marchallObj(t, map[string]interface{}{"title": "Grade exams", "priority": "urgent"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"priority": "priority must be one of [low medium high]"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/tasks", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("assigned task opens a ledger entry", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"title":       "Grade exams",
			"amount":      120.0,
			"assigned_to": instUsr.ID,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/tasks", adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create code = %d, body %s", rec.Code, rec.Body.String())
		}

		var tsk task.Task
		if err := json.Unmarshal(rec.Body.Bytes(), &tsk); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if tsk.Status != task.StatusPending || tsk.Priority != task.PriorityMedium || tsk.CreatedBy != adminUsr.ID {
			t.Errorf("create returned %+v", tsk)
		}

		pmts, err := app.payRepo.QueryPayments(context.Background(), &payment.QueryFilter{TaskID: tsk.ID}, nil)
		if err != nil {
			t.Fatalf("querying payments: %v", err)
		}
		if len(pmts) != 1 || pmts[0].Status != payment.StatusUnpaid || pmts[0].Amount != 120 || pmts[0].InstructorID != instUsr.ID {
			t.Errorf("ledger entries = %+v, want one unpaid entry of 120", pmts)
		}
	})
}

func Test_taskApi_queryAndRetrieve(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	otherUsr := testutil.CreateUser(t, app.usrRepo, "John Doe", "john@test.cd", "s3cret", core.RoleInstructor, true)

	mine := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusPending, adminUsr.ID, &instUsr.ID, 100)
	foreign := testutil.CreateTask(t, app.taskRepo, "Prepare slides", task.StatusPending, adminUsr.ID, &otherUsr.ID, 80)
	testutil.CreateTask(t, app.taskRepo, "Update syllabus", task.StatusPending, adminUsr.ID, nil, 0)

	adminToken := getToken(t, app, adminUsr)
	instToken := getToken(t, app, instUsr)

	listLen := func(t *testing.T, token, path string) int {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("query code = %d, body %s", rec.Code, rec.Body.String())
		}
		var tasks []task.Task
		if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		return len(tasks)
	}

	t.Run("admin sees everything", func(t *testing.T) {
		if n := listLen(t, adminToken, "/v1/tasks"); n != 3 {
			t.Errorf("admin query got %d tasks, want 3", n)
		}
	})

	t.Run("instructor sees own assignments only", func(t *testing.T) {
		if n := listLen(t, instToken, "/v1/tasks"); n != 1 {
			t.Errorf("instructor query got %d tasks, want 1", n)
		}
	})

	t.Run("search filter", func(t *testing.T) {
		if n := listLen(t, adminToken, "/v1/tasks?search=syllabus"); n != 1 {
			t.Errorf("filtered query got %d tasks, want 1", n)
		}
	})

	tests := []httpTest{
		{name: "auth required", path: "/v1/tasks/" + mine.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "own assignment", path: "/v1/tasks/" + mine.ID, token: instToken, wantCode: http.StatusOK, wantData: marchallObj(t, mine)},
		{
			name: "foreign assignment hidden", path: "/v1/tasks/" + foreign.ID, token: instToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "admin reads any", path: "/v1/tasks/" + foreign.ID, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, foreign)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_taskApi_update(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	adminToken := getToken(t, app, adminUsr)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusPending, adminUsr.ID, &instUsr.ID, 100)
	locked := testutil.CreateTask(t, app.taskRepo, "Archived", task.StatusPending, adminUsr.ID, &instUsr.ID, 50)
	testutil.LockTask(t, app.taskRepo, locked.ID)

	t.Run("ok", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"title": "Grade final exams", "priority": "high"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/tasks/"+tsk.ID, adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("update code = %d, body %s", rec.Code, rec.Body.String())
		}
		var got task.Task
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if got.Title != "Grade final exams" || got.Priority != task.PriorityHigh {
			t.Errorf("update returned %+v", got)
		}
	})

	t.Run("locked task rejects edits", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"title": "Nope"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/tasks/"+locked.ID, adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("update on locked task code = %d, want %d; body %s", rec.Code, http.StatusConflict, rec.Body.String())
		}
	})

	t.Run("instructor cannot update", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"title": "Mine now"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/tasks/"+tsk.ID, getToken(t, app, instUsr), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("instructor update code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})
}

func Test_taskApi_start(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	instToken := getToken(t, app, instUsr)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusPending, adminUsr.ID, &instUsr.ID, 100)

	t.Run("admin cannot start", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, "/v1/tasks/"+tsk.ID+"/start", getToken(t, app, adminUsr))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("admin start code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("assignee starts once", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, "/v1/tasks/"+tsk.ID+"/start", instToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("start code = %d, body %s", rec.Code, rec.Body.String())
		}
		var got task.Task
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if got.Status != task.StatusInProgress {
			t.Errorf("start left status %q, want %q", got.Status, task.StatusInProgress)
		}

		// a second start is a state conflict
		req, rec = newAuthRequest(http.MethodPatch, "/v1/tasks/"+tsk.ID+"/start", instToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("second start code = %d, want %d", rec.Code, http.StatusConflict)
		}
	})
}

func Test_taskApi_destroy(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	adminToken := getToken(t, app, adminUsr)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusPending, adminUsr.ID, nil, 0)

	req, rec := newAuthRequest(http.MethodDelete, "/v1/tasks/"+tsk.ID, adminToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete code = %d, body %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/tasks/"+tsk.ID, adminToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("retrieve after delete code = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
