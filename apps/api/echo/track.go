package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core/user"
	"github.com/ccnmtl/videoanalytics/core/video"
)

type videoTracker interface {
	Track(ctx context.Context, userID int64, req video.TrackRequest) (video.TrackResult, error)
}

type trackApi struct {
	users  user.ServiceInterface
	videos videoTracker
}

func registerTrackAPI(e *echo.Echo, jwt echo.MiddlewareFunc, users user.ServiceInterface, videos videoTracker) {
	api := trackApi{users: users, videos: videos}
	e.POST("/track", api.track, jwt)
}

// track accepts form or JSON bodies.
func (api *trackApi) track(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data video.TrackRequest
	if err = ctx.Bind(&data); err != nil {
		// non numeric duration or seconds
		return ctx.JSON(http.StatusOK, video.TrackResult{Msg: "Invalid video duration"})
	}

	res, err := api.videos.Track(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "tracking video")
	}
	return ctx.JSON(http.StatusOK, res)
}
