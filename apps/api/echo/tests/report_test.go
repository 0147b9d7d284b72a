package tests

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccnmtl/videoanalytics/core/block"
	"github.com/ccnmtl/videoanalytics/core/report"
	"github.com/ccnmtl/videoanalytics/core/user"
	"github.com/ccnmtl/videoanalytics/core/video"
	testutil "github.com/ccnmtl/videoanalytics/tests"
)

func readCSV(t *testing.T, r io.Reader) [][]string {
	t.Helper()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	require.NoError(t, err)
	return rows
}

func Test_reportApi_download(t *testing.T) {
	env, app := setup(t)
	_, b, _ := testutil.LoadHierarchies(t, env)
	ctx := context.Background()

	staff := testutil.CreateUser(t, env.UserRepo, "staff", "staff@test.edu", "", "", true)
	alice := testutil.CreateUser(t, env.UserRepo, "alice", "alice@test.edu", "", user.ControlGroup, false)
	bob := testutil.CreateUser(t, env.UserRepo, "bob", "bob@test.edu", "", user.DiagnosticGroup, false)
	staffToken := getToken(t, env, staff)

	_, err := env.Videos.Track(ctx, alice.ID, video.TrackRequest{VideoID: "vid-a", VideoDuration: 200, SecondsViewed: 50})
	require.NoError(t, err)

	pb := testutil.Find(t, b, "pretest", block.QuizKind)
	q, err := env.Quizzes.Quiz(ctx, pb.ContentID)
	require.NoError(t, err)
	require.Len(t, q.Questions, 3)
	_, err = env.Quizzes.Submit(ctx, q.ID, bob.ID, map[int64][]string{
		q.Questions[0].ID: {"yes"}, // correct
		q.Questions[1].ID: {"yes"},
		q.Questions[2].ID: {"yes"}, // correct
	})
	require.NoError(t, err)

	wantKey := [][]string{
		report.MetadataHeader,
		{"", "participant_id", "profile", "string", "Participant Id"},
		{"", "research_group", "profile", "string", "Research Group"},
		{"", "percent_complete", "profile", "percent", "% of hierarchy completed"},
		{"", "first_access", "profile", "date string", "first access date"},
		{"", "last_access", "profile", "date string", "last access date"},
		{"a", "vid-a", "YouTube Video", "percent viewed", "Control Video"},
		{"", "thermodynamics", "Aggregate Quiz Score", "# correct", ""},
		{"", "reaction_classes", "Aggregate Quiz Score", "# correct", ""},
		{"", "redox_chemistry", "Aggregate Quiz Score", "# correct", ""},
		{"", "mechanisms", "Aggregate Quiz Score", "# correct", ""},
		{"", "paper_figures", "Aggregate Quiz Score", "# correct", ""},
		{"b", "vid-b", "YouTube Video", "percent viewed", "Diagnostic Video"},
		{"videos", "vid-lecture", "YouTube Video", "percent viewed", "Lecture"},
	}
	wantValues := [][]string{
		{
			"participant_id", "research_group", "percent_complete", "first_access", "last_access",
			"vid-a", "thermodynamics", "reaction_classes", "redox_chemistry", "mechanisms", "paper_figures",
			"vid-b", "vid-lecture",
		},
		{"alice", "a", "0", "", "", "25.0% (50 seconds)", "-", "-", "-", "-", "-", "0", "0"},
		{"bob", "b", "0", "", "", "0", "1", "", "1", "", "", "0", "0"},
	}

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/report")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("participants are sent home", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/report", getToken(t, env, alice))
		app.ServeHTTP(rec, req)
		checkRedirect(t, rec, "/")
	})

	t.Run("unknown type", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/report?type=all", staffToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"type": "must be one of: key, values"}),
		}, rec)
	})

	t.Run("key", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/report?type=key", staffToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, "attachment; filename="+report.KeyFilename, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, wantKey, readCSV(t, rec.Body))
	})

	t.Run("values", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/report?type=values", staffToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "attachment; filename="+report.ValuesFilename, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, wantValues, readCSV(t, rec.Body))
	})

	t.Run("archive", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/report", staffToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
		assert.Equal(t, "attachment; filename="+env.Conf.ReportName+".zip", rec.Header().Get("Content-Disposition"))

		body := rec.Body.Bytes()
		zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
		require.NoError(t, err)
		require.Len(t, zr.File, 2)

		want := map[string][][]string{report.KeyFilename: wantKey, report.ValuesFilename: wantValues}
		for _, f := range zr.File {
			rc, err := f.Open()
			require.NoError(t, err)
			assert.Equal(t, want[f.Name], readCSV(t, rc), f.Name)
			_ = rc.Close()
		}
	})
}
