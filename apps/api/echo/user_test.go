package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/beasiswa/apps/api/echo"
	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/core/user"
	emailsvc "github.com/trezcool/beasiswa/services/email"
	"github.com/trezcool/beasiswa/testutil"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	usr, _ := app.createUser(t, "Ani Student", "ani@kampus.ac.id", user.RoleUser)
	naughty, _ := app.createUser(t, "Dodi Banned", "dodi@kampus.ac.id", user.RoleUser)
	naughty.IsActive = false
	_, err := app.usrRepo.UpdateUser(ctx, naughty)
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{"email":"nobody@kampus.ac.id","password":"whatever"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{"email":"ani@kampus.ac.id","password":"wrong"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     marshalObj(t, echoapi.LoginRequest{Email: naughty.Email, Password: testutil.Password}),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	// emails are matched case-insensitively
	rec := app.do(http.MethodPost, "/v1/users/login", "", marshalObj(t, echoapi.LoginRequest{Email: " ANI@kampus.ac.id ", Password: testutil.Password}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, usr.ID, resp.User.ID)
	assert.True(t, resp.User.LastLogin.Valid)

	rec = app.do(http.MethodGet, "/v1/profile", resp.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile user.User
	decode(t, rec, &profile)
	assert.Equal(t, "Ani Student", profile.FullName)
}

func Test_userApi_authentication(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	usr, token := app.createUser(t, "Ani Student", "ani@kampus.ac.id", user.RoleUser)
	gone, goneToken := app.createUser(t, "Gone Student", "gone@kampus.ac.id", user.RoleUser)
	require.NoError(t, app.usrRepo.DeleteUser(ctx, gone.ID))

	runHTTPTests(t, app, []httpTest{
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/v1/profile",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		},
		{
			name:     "garbage token",
			method:   http.MethodGet,
			path:     "/v1/profile",
			token:    "not-a-jwt",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "deleted user",
			method:   http.MethodGet,
			path:     "/v1/profile",
			token:    goneToken,
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name:     "student on admin route",
			method:   http.MethodGet,
			path:     "/v1/admin/users",
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
	})

	// deactivation applies to issued tokens
	usr.IsActive = false
	_, err := app.usrRepo.UpdateUser(ctx, usr)
	require.NoError(t, err)
	rec := app.do(http.MethodGet, "/v1/profile", token)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})}, rec)
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	usr, token := app.createUser(t, "Ani Student", "ani@kampus.ac.id", user.RoleUser)

	rec := app.do(http.MethodPost, "/v1/users/token-refresh", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Nil(t, resp.User)

	stale := echoapi.GetUserClaims(usr, app.conf, time.Now().Add(-app.conf.Server.JWTRefreshExpirationDelta-time.Minute).Unix())
	staleToken, err := echoapi.GenerateToken(stale, app.conf)
	require.NoError(t, err)
	rec = app.do(http.MethodPost, "/v1/users/token-refresh", staleToken)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "refresh has expired"})}, rec)
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)
	app.createUser(t, "Ani Student", "ani@kampus.ac.id", user.RoleUser)

	newUser := func(email string, admin bool) user.NewUser {
		return user.NewUser{
			FullName:        "Rina Wijaya",
			Email:           email,
			Password:        testutil.Password,
			PasswordConfirm: testutil.Password,
			Campus:          "Depok",
			RegisterAsAdmin: admin,
		}
	}
	mismatch := newUser("rina@kampus.ac.id", false)
	mismatch.PasswordConfirm = "Other$ecret9"

	runHTTPTests(t, app, []httpTest{
		{
			name:     "duplicate email",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			body:     marshalObj(t, newUser("ANI@kampus.ac.id", false)),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"a user with this email already exists"}`),
		},
		{
			name:     "password mismatch",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			body:     marshalObj(t, mismatch),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password_confirm":"password_confirm does not match"}`),
		},
		{
			name:     "weak password",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			body:     []byte(`{"full_name":"Rina","email":"rina@kampus.ac.id","password":"12345678","password_confirm":"12345678"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password":"password cannot be entirely numeric"}`),
		},
	})

	// admin signup is off: the role is ignored
	rec := app.do(http.MethodPost, "/v1/users/register", "", marshalObj(t, newUser("rina@kampus.ac.id", true)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	assert.Equal(t, "rina@kampus.ac.id", usr.Email)
	assert.Equal(t, user.RoleUser, usr.Role)
	assert.True(t, usr.IsActive)
}

func Test_userApi_profile(t *testing.T) {
	app := setup(t)
	usr, token := app.createUser(t, "Ani Student", "ani@kampus.ac.id", user.RoleUser)

	// a blank full name is kept
	rec := app.do(http.MethodPut, "/v1/profile", token, []byte(`{"full_name":"  ","campus":"Bogor","skills":"Go, SQL"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated user.User
	decode(t, rec, &updated)
	assert.Equal(t, usr.FullName, updated.FullName)
	assert.Equal(t, "Bogor", updated.Campus)
	assert.Equal(t, "Go, SQL", updated.Skills)

	rec = app.serve(newMultipartRequest(t, http.MethodPut, "/v1/profile/photo", token, nil, formFile{field: "photo", filename: "me.gif", data: []byte("GIF89a")}))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: []byte(`{"photo":"file type not allowed; allowed types: jpg, jpeg, png"}`),
	}, rec)

	rec = app.serve(newMultipartRequest(t, http.MethodPut, "/v1/profile/photo", token, nil, formFile{field: "photo", filename: "me.png", data: []byte("png-data")}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &updated)
	assert.Equal(t, fmt.Sprintf("profiles/user_%d.png", usr.ID), updated.ProfilePhoto)

	rec = app.do(http.MethodGet, "/v1/profile/photo", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-data", rec.Body.String())
	etag := rec.Header().Get("ETag")
	assert.Equal(t, `"`+core.Checksum([]byte("png-data"))+`"`, etag)

	req := newAuthRequest(http.MethodGet, "/v1/profile/photo", token)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, app.serve(req).Code)
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)
	usr, _ := app.createUser(t, "Ani Student", "ani@kampus.ac.id", user.RoleUser)
	success := marshalObj(t, echoapi.SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	// unknown emails are not disclosed
	rec := app.do(http.MethodPost, "/v1/users/password-reset", "", []byte(`{"email":"nobody@kampus.ac.id"}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: success}, rec)
	_, sent := emailsvc.LastSentMessage()
	assert.False(t, sent)

	rec = app.do(http.MethodPost, "/v1/users/password-reset", "", []byte(`{"email":"ani@kampus.ac.id"}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: success}, rec)
	msg, sent := emailsvc.LastSentMessage()
	require.True(t, sent)
	assert.Equal(t, "Password Reset", msg.Subject)
	assert.Equal(t, usr.Email, msg.To[0].Address)

	uid, token := user.MakeResetToken(usr, app.conf)
	newPwd := "N3w-Passphrase!"
	body := marshalObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd})

	rec = app.do(http.MethodPost, "/v1/users/password-reset-confirm", "", body)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marshalObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
	}, rec)

	// the token is spent once the password changed
	rec = app.do(http.MethodPost, "/v1/users/password-reset-confirm", "", body)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"token":"invalid or expired token"}`)}, rec)

	rec = app.do(http.MethodPost, "/v1/users/login", "", marshalObj(t, echoapi.LoginRequest{Email: usr.Email, Password: newPwd}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_rateLimit(t *testing.T) {
	app := setup(t, func(conf *core.Config) {
		conf.RateLimit.Auth = 2
		conf.RateLimit.Window = time.Minute
	})
	body := []byte(`{"email":"nobody@kampus.ac.id","password":"whatever"}`)

	for i := 0; i < 2; i++ {
		rec := app.do(http.MethodPost, "/v1/users/login", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, fmt.Sprint(1-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := app.do(http.MethodPost, "/v1/users/login", "", body)
	checkCodeAndData(t, httpTest{wantCode: http.StatusTooManyRequests, wantData: marshalObj(t, httpErr{Error: "too many requests"})}, rec)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other routes have their own counters
	rec = app.do(http.MethodPost, "/v1/users/password-reset", "", []byte(`{"email":"nobody@kampus.ac.id"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_admin(t *testing.T) {
	app := setup(t)
	admin, adminToken := app.createUser(t, "Citra Admin", "citra@kampus.ac.id", user.RoleAdmin)
	student, studentToken := app.createUser(t, "Ani Student", "ani@kampus.ac.id", user.RoleUser)
	other, _ := app.createUser(t, "Budi Student", "budi@kampus.ac.id", user.RoleUser)

	// some activity for the logs
	require.Equal(t, http.StatusNoContent, app.do(http.MethodPost, "/v1/users/logout", studentToken).Code)

	rec := app.do(http.MethodGet, "/v1/admin/users?search=student&ordering=full_name", adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var users []user.UserWithActivity
	decode(t, rec, &users)
	require.Len(t, users, 2)
	assert.Equal(t, student.ID, users[0].ID)
	assert.True(t, users[0].LastActive.Valid)
	assert.Equal(t, other.ID, users[1].ID)
	assert.False(t, users[1].LastActive.Valid)

	rec = app.do(http.MethodGet, fmt.Sprintf("/v1/admin/users/%d", student.ID), adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail echoapi.UserDetailResponse
	decode(t, rec, &detail)
	assert.Equal(t, student.Email, detail.User.Email)
	assert.True(t, detail.LastActive.Valid)
	require.Len(t, detail.Logs, 1)
	assert.Equal(t, "logout", detail.Logs[0].Action)

	rec = app.do(http.MethodPut, fmt.Sprintf("/v1/admin/users/%d", student.ID), adminToken, []byte(`{"role":"admin","is_active":false}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated user.User
	decode(t, rec, &updated)
	assert.Equal(t, user.RoleAdmin, updated.Role)
	assert.False(t, updated.IsActive)
	assert.Equal(t, student.FullName, updated.FullName)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "email taken",
			method:   http.MethodPut,
			path:     fmt.Sprintf("/v1/admin/users/%d", other.ID),
			body:     []byte(`{"email":"citra@kampus.ac.id"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"a user with this email already exists"}`),
		},
		{
			name:     "demote self",
			method:   http.MethodPut,
			path:     fmt.Sprintf("/v1/admin/users/%d", admin.ID),
			body:     []byte(`{"role":"user"}`),
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "you cannot remove your own admin rights or deactivate yourself"}),
		},
		{
			name:     "delete self",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/v1/admin/users/%d", admin.ID),
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "you cannot delete your own account"}),
		},
		{
			name:     "delete other",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/v1/admin/users/%d", other.ID),
			token:    adminToken,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "deleted user not found",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/v1/admin/users/%d", other.ID),
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "user not found"}),
		},
		{
			name:     "malformed id",
			method:   http.MethodGet,
			path:     "/v1/admin/users/abc",
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "not found"}),
		},
	})

	rec = app.do(http.MethodGet, fmt.Sprintf("/v1/admin/users/%d/logs", admin.ID), adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []map[string]interface{}
	decode(t, rec, &logs)
	require.NotEmpty(t, logs)
	assert.Equal(t, "admin_delete_user", logs[0]["action"])
}
