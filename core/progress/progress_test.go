package progress_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccnmtl/videoanalytics/core/pagetree"
	"github.com/ccnmtl/videoanalytics/core/progress"
	"github.com/ccnmtl/videoanalytics/core/user"
	inmemdb "github.com/ccnmtl/videoanalytics/storage/database/inmem"
	testutil "github.com/ccnmtl/videoanalytics/tests"
)

var est = time.FixedZone("EST", -5*60*60)

func saveVisit(t *testing.T, env *testutil.Env, usr user.User, tree *pagetree.Tree, path, status string, first, last time.Time) {
	t.Helper()
	n, ok := tree.NodeByPath(path)
	require.True(t, ok, path)
	_, err := inmemdb.NewPageTreeRepository(env.DB).SaveVisit(context.Background(), pagetree.Visit{
		UserID:     usr.ID,
		SectionID:  n.ID,
		Status:     status,
		FirstVisit: first,
		LastVisit:  last,
	})
	require.NoError(t, err)
}

func TestService_locations(t *testing.T) {
	env := testutil.NewEnv()
	svc := progress.NewService(env.UserSvc, env.PageTree, env.Quizzes, est)
	ctx := context.Background()
	a := testutil.LoadHierarchy(t, env, testutil.HierarchyA)

	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)
	bob := testutil.CreateUser(t, env.UserRepo, "bob", "bob@test.edu", "", user.DiagnosticGroup, false)

	t.Run("nothing visited", func(t *testing.T) {
		pct, err := svc.PercentComplete(ctx, alice)
		require.NoError(t, err)
		assert.Zero(t, pct)

		loc, err := svc.LastLocation(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, a.Root(), loc)

		url, err := svc.LastLocationURL(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "/pages/a/welcome/", url)

		first, err := svc.FirstAccessFormatted(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, first)
	})

	t.Run("hierarchy not loaded", func(t *testing.T) {
		tree, err := svc.DefaultHierarchy(ctx, bob)
		require.NoError(t, err)
		assert.Nil(t, tree)

		pct, err := svc.PercentComplete(ctx, bob)
		require.NoError(t, err)
		assert.Zero(t, pct)

		url, err := svc.LastLocationURL(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, url)
	})

	t1 := time.Date(2021, time.March, 1, 15, 4, 5, 0, time.UTC)
	t2 := t1.Add(26 * time.Hour)
	saveVisit(t, env, alice, a, "welcome", pagetree.StatusComplete, t1, t2)
	saveVisit(t, env, alice, a, "watch", pagetree.StatusIncomplete, t1.Add(time.Hour), t1.Add(time.Hour))

	t.Run("visited", func(t *testing.T) {
		pct, err := svc.PercentComplete(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, 66, pct)

		loc, err := svc.LastLocation(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "welcome", loc.Path)

		url, err := svc.LastLocationURL(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "/pages/a/welcome/", url)

		root, err := svc.DefaultLocation(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, a.Root(), root)
	})

	t.Run("access dates", func(t *testing.T) {
		first, err := svc.FirstAccessFormatted(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "Mar 01, 2021 10:04:05", first)

		last, err := svc.LastAccessFormatted(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "Mar 02, 2021 12:04:05", last)
	})
}

// flatHierarchy is a YAML hierarchy document with n sections right under the root.
func flatHierarchy(name string, n int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "name: %s\nbase_url: /pages/%s/\nroot:\n  label: Root\n", name, name)
	if n > 0 {
		sb.WriteString("  children:\n")
	}
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "    - label: Section %d\n      slug: s%d\n", i, i)
	}
	return sb.String()
}

func TestService_PercentComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("no sections", func(t *testing.T) {
		env := testutil.NewEnv()
		testutil.LoadHierarchy(t, env, flatHierarchy("a", 0))
		alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)

		pct, err := env.Progress.PercentComplete(ctx, alice)
		require.NoError(t, err)
		assert.Zero(t, pct)

		url, err := env.Progress.LastLocationURL(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, "/pages/a/", url)
	})

	tests := []struct {
		sections int
		visited  int
		want     int
	}{
		{sections: 3, visited: 1, want: 33},
		{sections: 3, visited: 2, want: 66},
		{sections: 3, visited: 3, want: 100},
		{sections: 100, visited: 29, want: 29},
		{sections: 100, visited: 57, want: 57},
		{sections: 100, visited: 58, want: 58},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.visited, tt.sections), func(t *testing.T) {
			env := testutil.NewEnv()
			tree := testutil.LoadHierarchy(t, env, flatHierarchy("a", tt.sections))
			alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)

			for i := 1; i <= tt.visited; i++ {
				n, ok := tree.NodeByPath(fmt.Sprintf("s%d", i))
				require.True(t, ok)
				_, err := env.PageTree.RecordVisit(ctx, alice.ID, n, true)
				require.NoError(t, err)
			}

			pct, err := env.Progress.PercentComplete(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pct)
		})
	}
}

func TestService_CheckAccess(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	a, b, videos := testutil.LoadHierarchies(t, env)

	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)
	bob := testutil.CreateUser(t, env.UserRepo, "bob", "bob@test.edu", "", user.DiagnosticGroup, false)
	staff := testutil.CreateUser(t, env.UserRepo, "staff", "staff@test.edu", "", "", true)

	node := func(tree *pagetree.Tree, path string) *pagetree.Node {
		n, ok := tree.NodeByPath(path)
		require.True(t, ok, path)
		return n
	}

	tests := []struct {
		name    string
		usr     user.User
		tree    *pagetree.Tree
		path    string
		wantURL string
	}{
		{name: "root", usr: alice, tree: a, path: "", wantURL: ""},
		{name: "first section", usr: alice, tree: a, path: "welcome", wantURL: ""},
		{name: "locked section", usr: alice, tree: a, path: "goodbye", wantURL: "/pages/a/welcome/"},
		{name: "other research group", usr: alice, tree: b, path: "pretest", wantURL: "/pages/a/welcome/"},
		{name: "control group sees the videos", usr: alice, tree: videos, path: "lecture", wantURL: ""},
		{name: "videos before any quiz", usr: bob, tree: videos, path: "lecture", wantURL: "/pages/b/pretest/"},
		{name: "staff bypass groups", usr: staff, tree: b, path: "pretest", wantURL: ""},
		{name: "staff still go through the gate", usr: staff, tree: b, path: "watch", wantURL: "/pages/b/pretest/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := env.Progress.CheckAccess(ctx, tt.usr, tt.tree, node(tt.tree, tt.path))
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
		})
	}

	t.Run("videos after a quiz", func(t *testing.T) {
		pb := testutil.Find(t, b, "pretest", "quiz")
		_, err := env.Quizzes.Submit(ctx, pb.ContentID, bob.ID, nil)
		require.NoError(t, err)

		url, err := env.Progress.CheckAccess(ctx, bob, videos, node(videos, "lecture"))
		require.NoError(t, err)
		assert.Empty(t, url)
	})
}
