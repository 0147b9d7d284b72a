package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core/user"
)

type homeApi struct {
	jwt      jwtAuth
	users    user.ServiceInterface
	progress locationResolver
	splash   string
}

func registerHomeAPI(e *echo.Echo, ja jwtAuth, users user.ServiceInterface, progress locationResolver, appName string) {
	api := homeApi{jwt: ja, users: users, progress: progress, splash: "Welcome to " + appName + "!"}
	e.GET("/", api.home)
}

// home sends authenticated users back where they left off. Anonymous users get the splash text.
func (api *homeApi) home(ctx echo.Context) error {
	claims, ok := api.jwt.parseRequest(ctx.Request())
	if !ok {
		return ctx.String(http.StatusOK, api.splash)
	}

	reqCtx := ctx.Request().Context()
	usr, err := api.users.GetByID(reqCtx, claims.UserID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return ctx.String(http.StatusOK, api.splash)
		}
		return errors.Wrap(err, "finding user by ID")
	}

	url, err := api.progress.LastLocationURL(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "getting last location")
	}
	if url == "" { // no hierarchy for the user's group yet
		return ctx.String(http.StatusOK, api.splash)
	}
	return ctx.Redirect(http.StatusFound, url)
}
