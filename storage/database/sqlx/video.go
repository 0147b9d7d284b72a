package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core/video"
)

const viewColumns = "id, user_id AS userid, video_id AS videoid, video_duration AS videoduration, seconds_viewed AS secondsviewed"

type videoRepository struct {
	db *sqlx.DB
}

var _ video.Repository = (*videoRepository)(nil) // interface compliance check

func NewVideoRepository(db *sqlx.DB) *videoRepository {
	return &videoRepository{db: db}
}

// AddViewTime upserts in one statement so concurrent reports of a same view all add up.
func (repo *videoRepository) AddViewTime(ctx context.Context, userID int64, videoID string, duration, seconds int) (video.View, error) {
	q := psql.Insert("user_video_views").
		Columns("user_id", "video_id", "video_duration", "seconds_viewed").
		Values(userID, videoID, duration, seconds).
		Suffix("ON CONFLICT (user_id, video_id) DO UPDATE SET " +
			"video_duration = EXCLUDED.video_duration, " +
			"seconds_viewed = user_video_views.seconds_viewed + EXCLUDED.seconds_viewed " +
			"RETURNING " + viewColumns)

	var v video.View
	if err := get(ctx, repo.db, &v, q); err != nil {
		return video.View{}, errors.Wrap(err, "adding view time")
	}
	return v, nil
}

func (repo *videoRepository) GetView(ctx context.Context, userID int64, videoID string) (video.View, error) {
	q := psql.Select(viewColumns).From("user_video_views").Where(sq.Eq{"user_id": userID, "video_id": videoID})

	var v video.View
	if err := get(ctx, repo.db, &v, q); err != nil {
		return video.View{}, trapNoRows(err, video.ErrViewNotFound, "finding view")
	}
	return v, nil
}
