package video

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

const (
	msgInvalidVideoID       = "Invalid video id"
	msgInvalidVideoDuration = "Invalid video duration"
)

var ErrViewNotFound = errors.New("video view not found")

// View accumulates the time a user spent watching a video.
type View struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"user_id"`
	VideoID       string `json:"video_id"`
	VideoDuration int    `json:"video_duration"` // seconds
	SecondsViewed int    `json:"seconds_viewed"`
}

// PercentViewed may exceed 100 when the video was watched more than once. 0 when the duration is unknown.
func (v View) PercentViewed() float64 {
	if v.VideoDuration == 0 {
		return 0
	}
	return float64(v.SecondsViewed) / float64(v.VideoDuration) * 100
}

type (
	TrackRequest struct {
		VideoID       string `json:"video_id" form:"video_id"`
		VideoDuration int    `json:"video_duration" form:"video_duration"`
		SecondsViewed int    `json:"seconds_viewed" form:"seconds_viewed"`
	}

	TrackResult struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg,omitempty"`
	}

	Repository interface {
		// AddViewTime creates the (userID, videoID) view if needed, overwrites its duration
		// and adds seconds to its viewed time.
		AddViewTime(ctx context.Context, userID int64, videoID string, duration, seconds int) (View, error)
		GetView(ctx context.Context, userID int64, videoID string) (View, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Track records seconds of video watched by a user. Invalid requests are reported in the result.
func (svc *Service) Track(ctx context.Context, userID int64, req TrackRequest) (TrackResult, error) {
	switch {
	case strings.TrimSpace(req.VideoID) == "":
		return TrackResult{Msg: msgInvalidVideoID}, nil
	case req.VideoDuration < 1:
		return TrackResult{Msg: msgInvalidVideoDuration}, nil
	}

	seconds := req.SecondsViewed
	if seconds < 0 {
		seconds = 0 // viewed time never decreases
	}
	if _, err := svc.repo.AddViewTime(ctx, userID, req.VideoID, req.VideoDuration, seconds); err != nil {
		return TrackResult{}, errors.Wrap(err, "adding view time")
	}
	return TrackResult{Success: true}, nil
}

// View returns the user's view of a video. ok is false when the user never watched it.
func (svc *Service) View(ctx context.Context, userID int64, videoID string) (v View, ok bool, err error) {
	v, err = svc.repo.GetView(ctx, userID, videoID)
	if err != nil {
		if errors.Cause(err) == ErrViewNotFound {
			return View{}, false, nil
		}
		return View{}, false, errors.Wrap(err, "getting view")
	}
	return v, true, nil
}
