package video_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccnmtl/videoanalytics/core/video"
	inmemdb "github.com/ccnmtl/videoanalytics/storage/database/inmem"
)

func TestView_PercentViewed(t *testing.T) {
	tests := []struct {
		name string
		view video.View
		want float64
	}{
		{name: "unknown duration", view: video.View{SecondsViewed: 30}},
		{name: "partial", view: video.View{VideoDuration: 200, SecondsViewed: 50}, want: 25},
		{name: "watched twice", view: video.View{VideoDuration: 100, SecondsViewed: 200}, want: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.view.PercentViewed(), 0.001)
		})
	}
}

func TestService_Track(t *testing.T) {
	svc := video.NewService(inmemdb.NewVideoRepository(inmemdb.Open()))
	ctx := context.Background()
	const userID = 1

	tests := []struct {
		name        string
		req         video.TrackRequest
		want        video.TrackResult
		wantSeconds int
		wantDur     int
	}{
		{name: "missing id", req: video.TrackRequest{VideoDuration: 100}, want: video.TrackResult{Msg: "Invalid video id"}},
		{name: "blank id", req: video.TrackRequest{VideoID: "  ", VideoDuration: 100}, want: video.TrackResult{Msg: "Invalid video id"}},
		{name: "no duration", req: video.TrackRequest{VideoID: "vid"}, want: video.TrackResult{Msg: "Invalid video duration"}},
		{
			name: "first view", req: video.TrackRequest{VideoID: "vid", VideoDuration: 100, SecondsViewed: 10},
			want: video.TrackResult{Success: true}, wantSeconds: 10, wantDur: 100,
		},
		{
			name: "seconds add up", req: video.TrackRequest{VideoID: "vid", VideoDuration: 120, SecondsViewed: 15},
			want: video.TrackResult{Success: true}, wantSeconds: 25, wantDur: 120,
		},
		{
			name: "negative seconds are ignored", req: video.TrackRequest{VideoID: "vid", VideoDuration: 120, SecondsViewed: -40},
			want: video.TrackResult{Success: true}, wantSeconds: 25, wantDur: 120,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Track(ctx, userID, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
			if !tt.want.Success {
				return
			}

			v, ok, err := svc.View(ctx, userID, "vid")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.wantSeconds, v.SecondsViewed)
			assert.Equal(t, tt.wantDur, v.VideoDuration)
		})
	}

	t.Run("ids are stored as sent", func(t *testing.T) {
		res, err := svc.Track(ctx, userID, video.TrackRequest{VideoID: " vid ", VideoDuration: 100, SecondsViewed: 5})
		require.NoError(t, err)
		assert.True(t, res.Success)

		v, ok, err := svc.View(ctx, userID, " vid ")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 5, v.SecondsViewed)

		v, ok, err = svc.View(ctx, userID, "vid")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 25, v.SecondsViewed)
	})

	t.Run("never watched", func(t *testing.T) {
		_, ok, err := svc.View(ctx, 2, "vid")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
