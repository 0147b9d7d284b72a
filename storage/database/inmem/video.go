package inmemdb

import (
	"context"

	"github.com/ccnmtl/videoanalytics/core/video"
)

type videoRepository struct {
	db *DB
}

var _ video.Repository = (*videoRepository)(nil) // interface compliance check

func NewVideoRepository(db *DB) *videoRepository {
	return &videoRepository{db: db}
}

func (repo *videoRepository) AddViewTime(_ context.Context, userID int64, videoID string, duration, seconds int) (video.View, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := viewKey{userID, videoID}
	v, ok := repo.db.views[key]
	if !ok {
		v = &video.View{ID: repo.db.nextID("views"), UserID: userID, VideoID: videoID}
		repo.db.views[key] = v
	}
	v.VideoDuration = duration
	v.SecondsViewed += seconds
	return *v, nil
}

func (repo *videoRepository) GetView(_ context.Context, userID int64, videoID string) (video.View, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if v, ok := repo.db.views[viewKey{userID, videoID}]; ok {
		return *v, nil
	}
	return video.View{}, video.ErrViewNotFound
}
