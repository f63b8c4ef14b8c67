package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
	testutil "github.com/trezcool/kazi/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	testutil.CreateUser(t, app.usrRepo, "Idle", "idle@test.cd", "s3cret", core.RoleInstructor, false)

	tests := []httpTest{
		{
			name: "empty body", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", body: marchallObj(t, map[string]string{"email": "who@test.cd", "password": "s3cret"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, map[string]string{"email": "jane@test.cd", "password": "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, map[string]string{"email": "idle@test.cd", "password": "s3cret"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "JANE@test.cd", "password": "s3cret"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("login code = %d, body %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Token == "" {
			t.Error("login returned an empty token")
		}

		// the fresh token opens authed endpoints
		req, rec = newAuthRequest(http.MethodPost, "/v1/users/token-refresh", resp.Token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("token-refresh code = %d, body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_userApi_registerInstructor(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	adminToken := getToken(t, app, adminUsr)

	payload := func(email, pwd, confirm string) []byte {
		return marchallObj(t, map[string]string{
			"email": email, "full_name": "New Instructor", "password": pwd, "password_confirm": confirm,
		})
	}

	tests := []httpTest{
		{name: "auth required", body: payload("new@test.cd", "Sup3rSecret", "Sup3rSecret"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", token: getToken(t, app, instUsr), body: payload("new@test.cd", "Sup3rSecret", "Sup3rSecret"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "password mismatch", token: adminToken, body: payload("new@test.cd", "Sup3rSecret", "other"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "duplicate email", token: adminToken, body: payload("jane@test.cd", "Sup3rSecret", "Sup3rSecret"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/instructors", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/instructors", adminToken, payload("new@test.cd", "Sup3rSecret", "Sup3rSecret"))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("register code = %d, body %s", rec.Code, rec.Body.String())
		}

		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if usr.Role != core.RoleInstructor || !usr.MustChangePassword || !usr.IsActive {
			t.Errorf("register returned %+v", usr)
		}
	})
}

func Test_userApi_instructorAdmin(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	adminToken := getToken(t, app, adminUsr)

	t.Run("query lists instructors only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/instructors", adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("query code = %d, body %s", rec.Code, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(users) != 1 || users[0].ID != instUsr.ID {
			t.Errorf("query got %+v, want only the instructor", users)
		}
	})

	t.Run("deactivate", func(t *testing.T) {
		body := marchallObj(t, map[string]bool{"is_active": false})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/users/instructors/"+instUsr.ID+"/active", adminToken, body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("setActive code = %d, body %s", rec.Code, rec.Body.String())
		}
		var usr user.User
		_ = json.Unmarshal(rec.Body.Bytes(), &usr)
		if usr.IsActive {
			t.Error("setActive left the account active")
		}
	})

	t.Run("self-delete forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/instructors/"+adminUsr.ID, adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("self-delete code = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("soft delete hides the account", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/instructors/"+instUsr.ID, adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete code = %d, body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/users/instructors", adminToken)
		app.server.ServeHTTP(rec, req)
		var users []user.User
		_ = json.Unmarshal(rec.Body.Bytes(), &users)
		if len(users) != 0 {
			t.Errorf("query still lists %d instructors after delete", len(users))
		}
	})
}

func Test_userApi_updateProfile(t *testing.T) {
	app := setup(t)

	instUsr := testutil.CreateUser(t, app.usrRepo, "Jane Doe", "jane@test.cd", "s3cret", core.RoleInstructor, true)
	token := getToken(t, app, instUsr)

	body := marchallObj(t, map[string]string{"full_name": "Jane D.", "phone": "+243 99 000 0000"})
	req, rec := newAuthRequest(http.MethodPut, "/v1/users/me", token, body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("updateProfile code = %d, body %s", rec.Code, rec.Body.String())
	}

	var usr user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if usr.FullName != "Jane D." || usr.Phone != "+243 99 000 0000" {
		t.Errorf("updateProfile got %+v", usr)
	}
}

func Test_userApi_changePassword(t *testing.T) {
	app := setup(t)

	adminUsr := testutil.CreateUser(t, app.usrRepo, "Boss", "boss@test.cd", "s3cret", core.RoleAdmin, true)
	adminToken := getToken(t, app, adminUsr)

	// provision an instructor so MustChangePassword starts raised
	regBody := marchallObj(t, map[string]string{
		"email": "jane@test.cd", "full_name": "Jane Doe",
		"password": "Sup3rSecret", "password_confirm": "Sup3rSecret",
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/users/instructors", adminToken, regBody)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seeding instructor failed: %d %s", rec.Code, rec.Body.String())
	}
	var instUsr user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &instUsr); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	instUsr, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{ID: instUsr.ID})
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	token := getToken(t, app, instUsr)

	payload := func(old, new_, confirm string) []byte {
		return marchallObj(t, map[string]string{
			"old_password": old, "new_password": new_, "new_password_confirm": confirm,
		})
	}

	tests := []httpTest{
		{name: "auth required", body: payload("Sup3rSecret", "N3wSecret", "N3wSecret"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "confirmation mismatch", token: token, body: payload("Sup3rSecret", "N3wSecret", "other"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"new_password_confirm": "new_password_confirm must be equal to NewPassword"}),
		},
		{
			name: "policy applies to the new password", token: token, body: payload("Sup3rSecret", "weak", "weak"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"new_password": "password must contain at least 8 characters"}),
		},
		{
			name: "wrong current password", token: token, body: payload("nope", "N3wSecret", "N3wSecret"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"old_password": "wrong password"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, "/v1/users/me/password", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok clears must_change_password", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/me/password", token, payload("Sup3rSecret", "N3wSecret", "N3wSecret"))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("changePassword code = %d, body %s", rec.Code, rec.Body.String())
		}
		var got user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.MustChangePassword {
			t.Error("changePassword left must_change_password raised")
		}

		// the new password logs in
		body := marchallObj(t, map[string]string{"email": "jane@test.cd", "password": "N3wSecret"})
		req, rec = newRequest(http.MethodPost, "/v1/users/login", body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("login with the new password code = %d, body %s", rec.Code, rec.Body.String())
		}
	})
}
