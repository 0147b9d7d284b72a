package echoapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core"
	"github.com/ccnmtl/videoanalytics/core/pagetree"
	"github.com/ccnmtl/videoanalytics/core/report"
)

const (
	reportTypeKey    = "key"
	reportTypeValues = "values"
)

type treesLoader interface {
	Trees(ctx context.Context) ([]*pagetree.Tree, error)
}

type reportApi struct {
	trees    treesLoader
	report   *report.Report
	filename string
}

func registerReportAPI(e *echo.Echo, jwt echo.MiddlewareFunc, trees treesLoader, rep *report.Report, name string) {
	api := reportApi{trees: trees, report: rep, filename: name}
	e.GET("/report", api.download, jwt, staffRedirectMiddleware())
}

// download streams the key or values file of every hierarchy. Without a type, both files are zipped.
func (api *reportApi) download(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	typ := ctx.QueryParam("type")
	switch typ {
	case "", reportTypeKey, reportTypeValues:
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "type", Error: "must be one of: key, values"})
	}

	trees, err := api.trees.Trees(reqCtx)
	if err != nil {
		return errors.Wrap(err, "loading hierarchies")
	}

	var key, values *report.Rows
	if typ != reportTypeValues {
		if key, err = api.report.Metadata(reqCtx, trees); err != nil {
			return errors.Wrap(err, "building report metadata")
		}
	}
	if typ != reportTypeKey {
		if values, err = api.report.Values(reqCtx, trees); err != nil {
			return errors.Wrap(err, "building report values")
		}
	}

	res := ctx.Response()
	switch typ {
	case reportTypeKey:
		setAttachment(res, "text/csv; charset=utf-8", report.KeyFilename)
		return errors.Wrap(report.WriteCSV(res, key), "streaming report key")
	case reportTypeValues:
		setAttachment(res, "text/csv; charset=utf-8", report.ValuesFilename)
		return errors.Wrap(report.WriteCSV(res, values), "streaming report values")
	}
	setAttachment(res, "application/zip", api.filename+".zip")
	archive := report.WriteZip(res, report.CSVFile(report.KeyFilename, key), report.CSVFile(report.ValuesFilename, values))
	return errors.Wrap(archive, "streaming report archive")
}

func setAttachment(res *echo.Response, contentType, filename string) {
	res.Header().Set(echo.HeaderContentType, contentType)
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	res.WriteHeader(http.StatusOK)
}
