package sqlxrepos

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccnmtl/videoanalytics/core"
	"github.com/ccnmtl/videoanalytics/core/user"
)

func Test_checkConn(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name         string
		err          error
		wantShutdown bool
		wantErr      error
	}{
		{name: "no error"},
		{name: "no rows", err: sql.ErrNoRows, wantErr: sql.ErrNoRows},
		{name: "other error", err: errBoom, wantErr: errBoom},
		{name: "connection done", err: errors.Wrap(sql.ErrConnDone, "committing"), wantShutdown: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkConn(tt.err)
			if tt.wantShutdown {
				assert.True(t, core.IsShutdown(err), "got %v", err)
				return
			}
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func Test_closedDB(t *testing.T) {
	db, err := sqlx.Open("postgres", "postgres://videoanalytics@localhost/videoanalytics?sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ctx := context.Background()
	var n int
	err = get(ctx, db, &n, psql.Select("1"))
	assert.True(t, core.IsShutdown(err), "get: %v", err)

	_, err = NewUserRepository(db).GetUser(ctx, user.GetFilter{ID: 1})
	assert.True(t, core.IsShutdown(err), "repository: %v", err)

	err = withTx(ctx, db, func(*sqlx.Tx) error { return nil })
	assert.True(t, core.IsShutdown(err), "withTx: %v", err)
}
