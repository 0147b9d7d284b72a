package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/ccnmtl/videoanalytics/apps/api/echo"
	"github.com/ccnmtl/videoanalytics/core/user"
	emailsvc "github.com/ccnmtl/videoanalytics/services/email"
	testutil "github.com/ccnmtl/videoanalytics/tests"
)

func Test_userApi_login(t *testing.T) {
	env, app := setup(t)
	testutil.LoadHierarchies(t, env)

	pwd := "F8yW2qLp!zR"
	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", pwd, user.ControlGroup, false)
	bob := testutil.CreateUser(t, env.UserRepo, "bob", "bob@test.edu", pwd, user.DiagnosticGroup, false)
	done := testutil.CreateUser(t, env.UserRepo, "done", "done@test.edu", pwd, user.DiagnosticGroup, false)
	done.IsActive = false
	_, err := env.UserRepo.UpdateUser(context.Background(), done)
	require.NoError(t, err)

	type extraTest struct{ next string }
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "nobody", Password: pwd}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: alice.Username, Password: "wrong"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Username: done.Username, Password: pwd}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "next defaults to the first page", wantCode: http.StatusOK,
			body:  marchallObj(t, echoapi.LoginRequest{Username: "ALICE", Password: pwd}),
			extra: extraTest{next: "/pages/a/welcome/"},
		},
		{
			name: "login with email", wantCode: http.StatusOK,
			body:  marchallObj(t, echoapi.LoginRequest{Username: bob.Email, Password: pwd}),
			extra: extraTest{next: "/pages/b/pretest/"},
		},
		{
			name: "explicit next", wantCode: http.StatusOK,
			body:  marchallObj(t, echoapi.LoginRequest{Username: bob.Username, Password: pwd, Next: "/pages/videos/"}),
			extra: extraTest{next: "/pages/videos/"},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			extra, ok := tt.extra.(extraTest)
			if !ok {
				checkCodeAndData(t, tt, rec)
				return
			}
			require.Equal(t, tt.wantCode, rec.Code)
			var resp echoapi.LoginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, extra.next, resp.Next)
		})
	}

	t.Run("last login is saved", func(t *testing.T) {
		usr, err := env.UserSvc.GetByID(context.Background(), alice.ID)
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	env, app := setup(t)

	naughty := testutil.CreateUser(t, env.UserRepo, "ndog", "ndog@test.edu", "", user.ControlGroup, false)
	naughty.IsActive = false
	_, err := env.UserRepo.UpdateUser(context.Background(), naughty)
	require.NoError(t, err)
	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    env.Conf.AppName,
			Subject:   strconv.FormatInt(alice.ID, 10),
			ExpiresAt: now.Add(env.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * env.Conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		UserID:       alice.ID,
		Username:     alice.Username,
	}
	unrefreshableToken, err := echoapi.GenerateToken(env.Conf, unrefreshableClaims)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, env, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, env, alice), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code)
				var respData echoapi.LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respData))
				assert.NotEmpty(t, respData.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	env, app := setup(t)

	path := func(search, ordering string, excludeAdmins bool) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if excludeAdmins {
			v.Add("exclude_admins", "true")
		}
		return "/v1/users?" + v.Encode()
	}

	staff := testutil.CreateUser(t, env.UserRepo, "staff", "staff@test.edu", "", "", true)
	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)
	bob := testutil.CreateUser(t, env.UserRepo, "bob", "bob@test.edu", "", user.DiagnosticGroup, false)
	carol := testutil.CreateUser(t, env.UserRepo, "carol", "carol@other.org", "", user.DiagnosticGroup, false)

	staffToken := getToken(t, env, staff)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", path: "/v1/users", token: getToken(t, env, alice), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: path("", "id", false), token: staffToken, wantData: marchallList(t, staff, alice, bob, carol)},
		{name: "search (unknown)", path: path("lol", "", false), token: staffToken, wantData: marchallList(t)},
		{name: "search=TEST.EDU", path: path("TEST.EDU", "username", false), token: staffToken, wantData: marchallList(t, alice, bob, staff)},
		{name: "exclude admins", path: path("", "-username", true), token: staffToken, wantData: marchallList(t, carol, bob, alice)},
		{name: "unknown ordering is ignored", path: path("", "password,id", true), token: staffToken, wantData: marchallList(t, alice, bob, carol)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_create(t *testing.T) {
	env, app := setup(t)

	staff := testutil.CreateUser(t, env.UserRepo, "staff", "staff@test.edu", "", "", true)
	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)
	staffToken := getToken(t, env, staff)
	pwd := "F8yW2qLp!zR"

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", token: getToken(t, env, alice), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: staffToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username":         "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{
			name: "invalid values", token: staffToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{Username: "d@ve", Password: "short", PasswordConfirm: "short", ResearchGroup: "z"}),
			wantData: marchallObj(t, map[string]string{
				"username":       "only letters, digits, periods and underscores are allowed",
				"password":       "password must contain at least 8 characters",
				"research_group": "research group must be one of: a, b",
			}),
		},
		{
			name: "username taken", token: staffToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Username: "ALICE", Password: pwd, PasswordConfirm: pwd}),
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "created", token: staffToken, wantCode: http.StatusCreated,
			body: marchallObj(t, user.NewUser{Username: " Dave ", Email: "dave@test.edu", Password: pwd, PasswordConfirm: pwd, ResearchGroup: "B"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users"

		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == nil {
				body = []byte("{}")
			}
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	ctx := context.Background()
	dave, err := env.UserSvc.GetByUsername(ctx, "dave")
	require.NoError(t, err)
	assert.True(t, dave.IsActive)
	assert.False(t, dave.IsStaff)
	assert.NoError(t, dave.CheckPassword(pwd))

	profile, err := env.UserSvc.Profile(ctx, dave)
	require.NoError(t, err)
	assert.Equal(t, user.DiagnosticGroup, profile.ResearchGroup)
}

func Test_userApi_updateProfile(t *testing.T) {
	env, app := setup(t)

	staff := testutil.CreateUser(t, env.UserRepo, "staff", "staff@test.edu", "", "", true)
	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)
	staffToken := getToken(t, env, staff)
	path := "/v1/users/" + strconv.FormatInt(alice.ID, 10) + "/profile"

	tests := []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", path: path, token: getToken(t, env, alice), wantCode: http.StatusForbidden,
			body: marchallObj(t, user.UpdateProfile{ResearchGroup: "b"}), wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown user", path: "/v1/users/999/profile", token: staffToken, wantCode: http.StatusNotFound,
			body: marchallObj(t, user.UpdateProfile{ResearchGroup: "b"}), wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "invalid group", path: path, token: staffToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.UpdateProfile{ResearchGroup: "z"}),
			wantData: marchallObj(t, map[string]string{"research_group": "research group must be one of: a, b"}),
		},
		{name: "group updated", path: path, token: staffToken, wantCode: http.StatusOK, body: marchallObj(t, user.UpdateProfile{ResearchGroup: " B "})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	profile, err := env.UserSvc.Profile(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, user.DiagnosticGroup, profile.ResearchGroup)
}

func Test_userApi_resetPassword(t *testing.T) {
	env, app := setup(t)

	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})
	linkRegex := regexp.MustCompile(`/password-reset-confirm\?uid=.+&token=.+`)

	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: false,
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "Alice@Test.edu"}),
			wantData: successData, extra: true,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ClearSentMessages()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			sent, ok := tt.extra.(bool)
			if !ok {
				return
			}
			msg, found := emailsvc.LastSentMessage()
			if !sent {
				assert.False(t, found)
				return
			}
			require.True(t, found)
			assert.Equal(t, alice.Email, msg.To[0].Address)
			assert.True(t, strings.Contains(msg.TextContent, alice.Username))
			assert.Regexp(t, linkRegex, msg.TextContent)
		})
	}

	t.Run("confirm", func(t *testing.T) {
		msg, found := emailsvc.LastSentMessage()
		require.True(t, found)
		data := msg.TemplateData.(map[string]string)

		newPwd := "Gh7!kq2Xw9vZ"
		confirmTests := []httpTest{
			{
				name: "invalid token", wantCode: http.StatusBadRequest,
				body: marchallObj(t, user.ResetUserPassword{
					UID: data["UID"], Token: "1-abc", Password: newPwd, PasswordConfirm: newPwd,
				}),
				wantData: marchallObj(t, map[string]string{"token": "invalid token"}),
			},
			{
				name: "password mismatch", wantCode: http.StatusBadRequest,
				body: marchallObj(t, user.ResetUserPassword{
					UID: data["UID"], Token: data["Token"], Password: newPwd, PasswordConfirm: newPwd + "x",
				}),
			},
			{
				name: "password reset", wantCode: http.StatusOK,
				body: marchallObj(t, user.ResetUserPassword{
					UID: data["UID"], Token: data["Token"], Password: newPwd, PasswordConfirm: newPwd,
				}),
				wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
			},
		}
		for _, tt := range confirmTests {
			req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		}

		req, rec := newRequest(http.MethodPost, "/v1/users/login", marchallObj(t, echoapi.LoginRequest{Username: "alice", Password: newPwd}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
