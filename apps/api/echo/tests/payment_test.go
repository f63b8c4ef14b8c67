package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/payment"
	"github.com/trezcool/kazi/core/task"
	testutil "github.com/trezcool/kazi/tests"
)

func Test_paymentApi_query(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	otherUsr := testutil.CreateUser(t, app.usrRepo, "John Doe", "john@test.cd", "s3cret", core.RoleInstructor, true)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusCompleted, adminUsr.ID, &instUsr.ID, 100)
	otherTsk := testutil.CreateTask(t, app.taskRepo, "Prepare slides", task.StatusCompleted, adminUsr.ID, &otherUsr.ID, 80)

	mine := testutil.CreatePayment(t, app.payRepo, tsk.ID, instUsr.ID, payment.StatusUnpaid, 100)
	foreign := testutil.CreatePayment(t, app.payRepo, otherTsk.ID, otherUsr.ID, payment.StatusUnpaid, 80)

	adminToken := getToken(t, app, adminUsr)
	instToken := getToken(t, app, instUsr)

	tests := []httpTest{
		{name: "auth required", path: "/v1/payments", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin sees everything", path: "/v1/payments", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, foreign, mine)},
		{name: "instructor sees own only", path: "/v1/payments", token: instToken, wantCode: http.StatusOK, wantData: marchallList(t, mine)},
		{
			name: "instructor filter override is ignored", path: "/v1/payments?instructor_id=" + otherUsr.ID, token: instToken,
			wantCode: http.StatusOK, wantData: marchallList(t, mine),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_paymentApi_summary(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusCompleted, adminUsr.ID, &instUsr.ID, 100)
	otherTsk := testutil.CreateTask(t, app.taskRepo, "Prepare slides", task.StatusCompleted, adminUsr.ID, &instUsr.ID, 80)

	testutil.CreatePayment(t, app.payRepo, tsk.ID, instUsr.ID, payment.StatusUnpaid, 100)
	testutil.CreatePayment(t, app.payRepo, otherTsk.ID, instUsr.ID, payment.StatusPaid, 80)

	tt := httpTest{
		name: "totals", path: "/v1/payments/summary", token: getToken(t, app, adminUsr),
		wantCode: http.StatusOK,
		wantData: marchallObj(t, payment.Summary{TotalPayable: 180, TotalPaid: 80, TotalDue: 100, PendingCount: 1}),
	}
	req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_paymentApi_markPaid(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	adminToken := getToken(t, app, adminUsr)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusCompleted, adminUsr.ID, &instUsr.ID, 100)
	pmt := testutil.CreatePayment(t, app.payRepo, tsk.ID, instUsr.ID, payment.StatusUnpaid, 100)

	t.Run("instructor cannot settle", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, "/v1/payments/"+pmt.ID+"/paid", getToken(t, app, instUsr), []byte("{}"))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("instructor settle code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("settles once", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"notes": "wired 2026-08"})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/payments/"+pmt.ID+"/paid", adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("settle code = %d, body %s", rec.Code, rec.Body.String())
		}

		var got payment.Payment
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Status != payment.StatusPaid || got.PaidAt == nil || got.Notes == nil || *got.Notes != "wired 2026-08" {
			t.Errorf("settle returned %+v", got)
		}

		// a second settlement is a state conflict
		req, rec = newAuthRequest(http.MethodPatch, "/v1/payments/"+pmt.ID+"/paid", adminToken, []byte("{}"))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("second settle code = %d, want %d", rec.Code, http.StatusConflict)
		}
	})

	t.Run("unknown entry", func(t *testing.T) {
		tt := httpTest{
			name: "unknown entry", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}
		req, rec := newAuthRequest(http.MethodPatch, "/v1/payments/9f3c2a54-6f77-4a07-8e3e-000000000000/paid", adminToken, []byte("{}"))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_paymentApi_markManyPaid(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	adminToken := getToken(t, app, adminUsr)

	tsk := testutil.CreateTask(t, app.taskRepo, "Grade exams", task.StatusCompleted, adminUsr.ID, &instUsr.ID, 100)
	otherTsk := testutil.CreateTask(t, app.taskRepo, "Prepare slides", task.StatusCompleted, adminUsr.ID, &instUsr.ID, 80)

	p1 := testutil.CreatePayment(t, app.payRepo, tsk.ID, instUsr.ID, payment.StatusUnpaid, 100)
	p2 := testutil.CreatePayment(t, app.payRepo, otherTsk.ID, instUsr.ID, payment.StatusPaid, 80)

	t.Run("ids required", func(t *testing.T) {
		tt := httpTest{
			name: "ids required", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"ids": "this field is required"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments/mark-paid", adminToken, []byte("{}"))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("partial success", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"ids": []string{p1.ID, p2.ID}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments/mark-paid", adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("mark-paid code = %d, body %s", rec.Code, rec.Body.String())
		}

		var results []payment.Result
		if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("mark-paid returned %d results, want 2", len(results))
		}
		if results[0].ID != p1.ID || results[0].Error != "" {
			t.Errorf("first result = %+v, want success", results[0])
		}
		if results[1].ID != p2.ID || results[1].Error == "" {
			t.Errorf("second result = %+v, want an already-paid error", results[1])
		}
	})
}
