package user_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccnmtl/videoanalytics/core"
	"github.com/ccnmtl/videoanalytics/core/user"
	emailsvc "github.com/ccnmtl/videoanalytics/services/email"
	testutil "github.com/ccnmtl/videoanalytics/tests"
)

func TestService_Participants(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	testutil.CreateUser(t, env.UserRepo, "staff", "staff@test.edu", "", "", true)
	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)
	bob := testutil.CreateUser(t, env.UserRepo, "bob", "bob@test.edu", "", user.DiagnosticGroup, false)

	super := user.User{Username: "root", IsActive: true, IsSuperuser: true}
	_, err := env.UserRepo.CreateUser(ctx, super)
	require.NoError(t, err)

	users, err := env.UserSvc.Participants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []user.User{alice, bob}, users)
}

func TestService_Profile(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	bob := testutil.CreateUser(t, env.UserRepo, "bob", "bob@test.edu", "", user.DiagnosticGroup, false)
	orphan, err := env.UserRepo.CreateUser(ctx, user.User{Username: "orphan", IsActive: true})
	require.NoError(t, err)

	t.Run("saved profile", func(t *testing.T) {
		profile, err := env.UserSvc.Profile(ctx, bob)
		require.NoError(t, err)
		assert.NotZero(t, profile.ID)
		assert.Equal(t, bob.ID, profile.UserID)
		assert.Equal(t, user.DiagnosticGroup, profile.DefaultHierarchy())
		assert.False(t, profile.InControlGroup())
	})

	t.Run("missing profile defaults to the control group", func(t *testing.T) {
		profile, err := env.UserSvc.Profile(ctx, orphan)
		require.NoError(t, err)
		assert.Zero(t, profile.ID)
		assert.True(t, profile.InControlGroup())
	})

	t.Run("set research group creates the missing profile", func(t *testing.T) {
		profile, err := env.UserSvc.SetResearchGroup(ctx, orphan, user.DiagnosticGroup)
		require.NoError(t, err)
		assert.NotZero(t, profile.ID)

		profile, err = env.UserSvc.Profile(ctx, orphan)
		require.NoError(t, err)
		assert.Equal(t, user.DiagnosticGroup, profile.ResearchGroup)
	})

	t.Run("set research group updates the saved profile", func(t *testing.T) {
		before, err := env.UserSvc.Profile(ctx, bob)
		require.NoError(t, err)

		after, err := env.UserSvc.SetResearchGroup(ctx, bob, user.ControlGroup)
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.True(t, after.InControlGroup())
	})
}

func TestNewProfile(t *testing.T) {
	usr := user.User{ID: 7}
	assert.Equal(t, user.DiagnosticGroup, user.NewProfile(usr, user.DiagnosticGroup).ResearchGroup)
	assert.Equal(t, user.ControlGroup, user.NewProfile(usr, "").ResearchGroup)
	assert.Equal(t, user.ControlGroup, user.NewProfile(usr, "z").ResearchGroup)
	assert.Equal(t, int64(7), user.NewProfile(usr, "").UserID)
}

func TestService_Import(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "old-password", user.ControlGroup, false)

	csvData := strings.Join([]string{
		"alice,n3w-Passw0rd,b",
		" Dave ,s3cret-Pwd, A ",
		"eve,pwd",
		",pwd,a",
		"fr@nk,pwd,a",
		"gina,,a",
		"hank,pwd,c",
	}, "\n")

	var out bytes.Buffer
	res, err := env.UserSvc.Import(ctx, strings.NewReader(csvData), &out)
	require.NoError(t, err)
	assert.Equal(t, user.ImportResult{Created: 1, Updated: 1, Skipped: 5}, res)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"line 3: skipped: expected 3 columns (username, password, group), got 2",
		"line 4: skipped: missing username",
		`line 5: skipped: invalid username "fr@nk"`,
		"line 6: skipped: missing password",
		`line 7: skipped: invalid research group "c"`,
	}, lines)

	t.Run("existing user is updated", func(t *testing.T) {
		usr, err := env.UserSvc.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("n3w-Passw0rd"))
		assert.Equal(t, alice.Email, usr.Email)

		profile, err := env.UserSvc.Profile(ctx, usr)
		require.NoError(t, err)
		assert.Equal(t, user.DiagnosticGroup, profile.ResearchGroup)
	})

	t.Run("new user is created", func(t *testing.T) {
		usr, err := env.UserSvc.GetByUsername(ctx, "dave")
		require.NoError(t, err)
		assert.True(t, usr.IsActive)
		assert.False(t, usr.IsStaff)
		assert.NoError(t, usr.CheckPassword("s3cret-Pwd"))

		profile, err := env.UserSvc.Profile(ctx, usr)
		require.NoError(t, err)
		assert.NotZero(t, profile.ID)
		assert.Equal(t, user.ControlGroup, profile.ResearchGroup)
	})
}

func TestService_CheckUniqueness(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)

	tests := []struct {
		name      string
		uname     string
		email     string
		excl      []user.User
		wantField string
	}{
		{name: "unique", uname: "bob", email: "bob@test.edu"},
		{name: "username taken", uname: "alice", email: "bob@test.edu", wantField: "username"},
		{name: "email taken", uname: "bob", email: "alice@test.edu", wantField: "email"},
		{name: "excluded user", uname: "alice", email: "alice@test.edu", excl: []user.User{alice}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.UserSvc.CheckUniqueness(ctx, tt.uname, tt.email, tt.excl...)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}
}

func TestService_ResetPassword(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	emailsvc.ClearSentMessages()

	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "old-password", user.ControlGroup, false)

	t.Run("unknown email", func(t *testing.T) {
		err := env.UserSvc.RequestPasswordReset(ctx, "nobody@test.edu")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
		_, sent := emailsvc.LastSentMessage()
		assert.False(t, sent)
	})

	require.NoError(t, env.UserSvc.RequestPasswordReset(ctx, " ALICE@test.edu "))
	msg, sent := emailsvc.LastSentMessage()
	require.True(t, sent)
	assert.Equal(t, "alice@test.edu", msg.To[0].Address)
	data, ok := msg.TemplateData.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "alice", data["Username"])
	assert.Equal(t, user.EncodeUID(alice), data["UID"])

	newPwd := "n3w-Passw0rd"
	tests := []struct {
		name    string
		data    user.ResetUserPassword
		wantErr bool
	}{
		{name: "invalid uid", data: user.ResetUserPassword{UID: "???", Token: data["Token"], Password: newPwd}, wantErr: true},
		{name: "unknown user", data: user.ResetUserPassword{UID: user.EncodeUID(user.User{ID: 999}), Token: data["Token"], Password: newPwd}, wantErr: true},
		{name: "invalid token", data: user.ResetUserPassword{UID: data["UID"], Token: "abc-123", Password: newPwd}, wantErr: true},
		{name: "valid", data: user.ResetUserPassword{UID: data["UID"], Token: data["Token"], Password: newPwd}},
		{name: "token is single use", data: user.ResetUserPassword{UID: data["UID"], Token: data["Token"], Password: "another-Pwd1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.UserSvc.ResetPassword(ctx, tt.data)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, "token", vErr.Fields[0].Field)
		})
	}

	usr, err := env.UserSvc.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword(newPwd))
}
