package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/core/task"
	testutil "github.com/trezcool/kazi/tests"
)

func Test_submissionApi_create(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	instToken := getToken(t, app, instUsr)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusInProgress, adminUsr.ID, &instUsr.ID, 100)

	payload := func(taskID, url, linkType string) []byte {
		return marchallObj(t, map[string]string{"task_id": taskID, "submission_url": url, "link_type": linkType})
	}

	tests := []httpTest{
		{name: "auth required", body: payload(tsk.ID, "https://github.com/acme/work", "github"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "instructor required", token: getToken(t, app, adminUsr), body: payload(tsk.ID, "https://github.com/acme/work", "github"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "link or file required", token: instToken, body: payload(tsk.ID, "", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"submission_url": "provide either a submission link or a file, not both",
				"file":           "provide either a submission link or a file, not both",
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/submissions", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("link submission", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/submissions", instToken, payload(tsk.ID, "https://github.com/acme/work", "github"))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create code = %d, body %s", rec.Code, rec.Body.String())
		}

		var sub submission.Submission
		if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if sub.RevisionNumber != 1 || sub.Status != submission.StatusPending || sub.LinkType != submission.LinkTypeGithub {
			t.Errorf("create returned %+v", sub)
		}

		// the task follows the submission
		req, rec = newAuthRequest(http.MethodGet, "/v1/tasks/"+tsk.ID, instToken)
		app.server.ServeHTTP(rec, req)
		var got task.Task
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if got.Status != task.StatusSubmitted {
			t.Errorf("task status = %q, want %q", got.Status, task.StatusSubmitted)
		}
	})

	t.Run("resubmission bumps the revision", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/submissions", instToken, payload(tsk.ID, "https://github.com/acme/work", "github"))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create code = %d, body %s", rec.Code, rec.Body.String())
		}
		var sub submission.Submission
		_ = json.Unmarshal(rec.Body.Bytes(), &sub)
		if sub.RevisionNumber != 2 {
			t.Errorf("revision = %d, want 2", sub.RevisionNumber)
		}
	})
}

func Test_submissionApi_createFile(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	instToken := getToken(t, app, instUsr)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusInProgress, adminUsr.ID, &instUsr.ID, 100)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("task_id", tsk.ID); err != nil {
		t.Fatalf("writing form field: %v", err)
	}
	fw, err := mw.CreateFormFile("file", "report.pdf")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err = fw.Write([]byte("%PDF-1.4 fake report")); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/submissions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+instToken)
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %d, body %s", rec.Code, rec.Body.String())
	}
	var sub submission.Submission
	if err = json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if sub.LinkType != submission.LinkTypeFileUpload || sub.FileURL == nil {
		t.Errorf("create returned %+v, want a stored file URL", sub)
	}
	if sub.FileURL != nil && !app.store.Has(*sub.FileURL) {
		t.Errorf("artifact %q not found in storage", *sub.FileURL)
	}
}

func Test_submissionApi_queryAndRetrieve(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	otherUsr := testutil.CreateUser(t, app.usrRepo, "John Doe", "john@test.cd", "s3cret", core.RoleInstructor, true)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusInProgress, adminUsr.ID, &instUsr.ID, 100)
	otherTsk := testutil.CreateTask(t, app.taskRepo, "Prepare slides", task.StatusInProgress, adminUsr.ID, &otherUsr.ID, 80)

	mine := testutil.CreateSubmission(t, app.subRepo, tsk.ID, instUsr.ID, submission.StatusPending, 1)
	foreign := testutil.CreateSubmission(t, app.subRepo, otherTsk.ID, otherUsr.ID, submission.StatusPending, 1)

	adminToken := getToken(t, app, adminUsr)
	instToken := getToken(t, app, instUsr)

	tests := []httpTest{
		{name: "auth required", method: http.MethodGet, path: "/v1/submissions", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin sees everything", method: http.MethodGet, path: "/v1/submissions", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, foreign, mine)},
		{name: "instructor sees own only", method: http.MethodGet, path: "/v1/submissions", token: instToken, wantCode: http.StatusOK, wantData: marchallList(t, mine)},
		{name: "own submission", method: http.MethodGet, path: "/v1/submissions/" + mine.ID, token: instToken, wantCode: http.StatusOK, wantData: marchallObj(t, mine)},
		{
			name: "foreign submission hidden", method: http.MethodGet, path: "/v1/submissions/" + foreign.ID, token: instToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
