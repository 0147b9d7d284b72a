package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core"
	"github.com/ccnmtl/videoanalytics/core/block"
	"github.com/ccnmtl/videoanalytics/core/pagetree"
	"github.com/ccnmtl/videoanalytics/core/progress"
	"github.com/ccnmtl/videoanalytics/core/quiz"
	"github.com/ccnmtl/videoanalytics/core/user"
)

type pagesApi struct {
	users    user.ServiceInterface
	trees    *pagetree.Service
	blocks   *block.Service
	quizzes  *quiz.Service
	progress *progress.Service
}

func registerPagesAPI(e *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := pagesApi{
		users:    deps.UserSvc,
		trees:    deps.PageTree,
		blocks:   deps.Blocks,
		quizzes:  deps.Quizzes,
		progress: deps.Progress,
	}

	pg := e.Group("/pages/:hierarchy", jwt)
	pg.GET("", api.show)
	pg.GET("/*", api.show)
	pg.POST("", api.submit)
	pg.POST("/*", api.submit)

	e.PUT("/v1/blocks/:kind/:id", api.editBlock, jwt, adminMiddleware())
}

type (
	SectionResponse struct {
		ID    int64  `json:"id"`
		Label string `json:"label"`
		Path  string `json:"path"`
		Depth int    `json:"depth"`
		URL   string `json:"url"`
	}

	BlockResponse struct {
		Kind        string                 `json:"kind"`
		Label       string                 `json:"label"`
		CSSExtra    string                 `json:"css_extra"`
		NeedsSubmit bool                   `json:"needs_submit"`
		Submitted   bool                   `json:"submitted,omitempty"`
		Content     interface{}            `json:"content"`
		Responses   quiz.Responses         `json:"responses,omitempty"`
		Summary     []quiz.CategorySummary `json:"summary,omitempty"`
	}

	PageResponse struct {
		Hierarchy string          `json:"hierarchy"`
		Section   SectionResponse `json:"section"`
		Blocks    []BlockResponse `json:"blocks"`
		Complete  bool            `json:"complete"`
		PrevURL   string          `json:"prev_url,omitempty"`
		NextURL   string          `json:"next_url,omitempty"`
	}

	// SubmitRequest maps quiz IDs to their answers, themselves mapping question IDs to the submitted values.
	SubmitRequest struct {
		Answers map[int64]map[int64][]string `json:"answers"`
	}

	SubmitResponse struct {
		Complete bool   `json:"complete"`
		Next     string `json:"next,omitempty"`
	}
)

// section resolves the hierarchy & section of the request and checks the user may access them.
// redirect is set when access is denied.
func (api *pagesApi) section(ctx echo.Context) (usr user.User, tree *pagetree.Tree, n *pagetree.Node, redirect string, err error) {
	reqCtx := ctx.Request().Context()
	if usr, err = getContextUser(ctx, api.users); err != nil {
		return usr, nil, nil, "", errors.Wrap(err, "getting context user")
	}

	tree, err = api.trees.Tree(reqCtx, ctx.Param("hierarchy"))
	if err != nil {
		if errors.Cause(err) == pagetree.ErrHierarchyNotFound {
			return usr, nil, nil, "", errHttpNotFound
		}
		return usr, nil, nil, "", errors.Wrap(err, "loading hierarchy")
	}
	n, ok := tree.NodeByPath(ctx.Param("*"))
	if !ok {
		return usr, nil, nil, "", errHttpNotFound
	}

	redirect, err = api.progress.CheckAccess(reqCtx, usr, tree, n)
	if err != nil {
		return usr, nil, nil, "", errors.Wrap(err, "checking access")
	}
	return usr, tree, n, redirect, nil
}

// submitted reports whether every block of n needing a submission was submitted by the user.
func (api *pagesApi) submitted(ctx echo.Context, usr user.User, n *pagetree.Node) (bool, error) {
	for _, pb := range n.Blocks {
		if block.Kind(pb.Kind) != block.QuizKind {
			continue
		}
		q, err := api.quizzes.Quiz(ctx.Request().Context(), pb.ContentID)
		if err != nil {
			return false, errors.Wrapf(err, "getting quiz %d", pb.ContentID)
		}
		if !q.NeedsSubmit() {
			continue
		}
		ok, err := api.quizzes.Submitted(ctx.Request().Context(), q.ID, usr.ID)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// show returns a section & records the user's visit. Sections without anything to submit are completed right away.
func (api *pagesApi) show(ctx echo.Context) error {
	usr, tree, n, redirect, err := api.section(ctx)
	if err != nil {
		return err
	}
	if redirect != "" {
		return ctx.Redirect(http.StatusFound, redirect)
	}

	complete, err := api.submitted(ctx, usr, n)
	if err != nil {
		return errors.Wrap(err, "checking submissions")
	}
	if _, err = api.trees.RecordVisit(ctx.Request().Context(), usr.ID, n, complete); err != nil {
		return errors.Wrap(err, "recording visit")
	}

	page, err := api.render(ctx, usr, tree, n)
	if err != nil {
		return err
	}
	page.Complete = complete
	return ctx.JSON(http.StatusOK, page)
}

func (api *pagesApi) render(ctx echo.Context, usr user.User, tree *pagetree.Tree, n *pagetree.Node) (PageResponse, error) {
	reqCtx := ctx.Request().Context()
	page := PageResponse{
		Hierarchy: tree.Name,
		Section: SectionResponse{
			ID:    n.ID,
			Label: n.Label,
			Path:  n.Path,
			Depth: n.Depth,
			URL:   tree.URL(n),
		},
		Blocks: make([]BlockResponse, 0, len(n.Blocks)),
	}
	if prev := tree.Previous(n); prev != nil {
		page.PrevURL = tree.URL(prev)
	}
	if next := tree.Next(n); next != nil {
		page.NextURL = tree.URL(next)
	}

	for _, pb := range n.Blocks {
		br := BlockResponse{Kind: pb.Kind, Label: pb.Label, CSSExtra: pb.CSSExtra}
		switch block.Kind(pb.Kind) {
		case block.QuizKind:
			q, err := api.quizzes.Quiz(reqCtx, pb.ContentID)
			if err != nil {
				return page, errors.Wrapf(err, "getting quiz %d", pb.ContentID)
			}
			if br.Responses, err = api.quizzes.UserResponses(reqCtx, q.ID, usr.ID); err != nil {
				return page, err
			}
			if br.Submitted, err = api.quizzes.Submitted(reqCtx, q.ID, usr.ID); err != nil {
				return page, err
			}
			br.Content, br.NeedsSubmit = q, q.NeedsSubmit()
		case block.QuizSummaryKind:
			b, err := api.blocks.QuizSummary(reqCtx, pb.ContentID)
			if err != nil {
				return page, errors.Wrapf(err, "getting quiz summary block %d", pb.ContentID)
			}
			if br.Summary, err = api.summary(ctx, usr, tree, b.QuizClass); err != nil {
				return page, err
			}
			br.Content = b
		default:
			b, err := api.blocks.Get(reqCtx, block.Kind(pb.Kind), pb.ContentID)
			if err != nil {
				return page, errors.Wrapf(err, "getting %s block %d", pb.Kind, pb.ContentID)
			}
			br.Content, br.NeedsSubmit = b, b.NeedsSubmit()
		}
		page.Blocks = append(page.Blocks, br)
	}
	return page, nil
}

// summary scores the user on the quizzes of tree classed quizClass.
func (api *pagesApi) summary(ctx echo.Context, usr user.User, tree *pagetree.Tree, quizClass string) ([]quiz.CategorySummary, error) {
	var ids []int64
	for _, n := range tree.Nodes() {
		for _, pb := range n.Blocks {
			if block.Kind(pb.Kind) == block.QuizKind && pb.HasClass(quizClass) {
				ids = append(ids, pb.ContentID)
			}
		}
	}
	reqCtx := ctx.Request().Context()
	quizzes, err := api.quizzes.Quizzes(reqCtx, ids)
	if err != nil {
		return nil, err
	}
	responses, err := api.quizzes.ResponsesFor(reqCtx, quizzes, usr.ID)
	if err != nil {
		return nil, err
	}
	return quiz.SummaryByCategory(quizzes, responses), nil
}

// submit saves the user's answers to the quizzes of a section & completes the visit once all are submitted.
func (api *pagesApi) submit(ctx echo.Context) error {
	usr, tree, n, redirect, err := api.section(ctx)
	if err != nil {
		return err
	}
	if redirect != "" {
		return ctx.Redirect(http.StatusFound, redirect)
	}

	var data SubmitRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}

	onPage := make(map[int64]bool)
	for _, pb := range n.Blocks {
		if block.Kind(pb.Kind) == block.QuizKind {
			onPage[pb.ContentID] = true
		}
	}
	for quizID := range data.Answers {
		if !onPage[quizID] {
			return core.NewValidationError(nil, core.FieldError{Field: "answers", Error: "quiz not found on this page"})
		}
	}

	reqCtx := ctx.Request().Context()
	for _, pb := range n.Blocks {
		answers, ok := data.Answers[pb.ContentID]
		if block.Kind(pb.Kind) != block.QuizKind || !ok {
			continue
		}
		if _, err = api.quizzes.Submit(reqCtx, pb.ContentID, usr.ID, answers); err != nil {
			return errors.Wrapf(err, "submitting quiz %d", pb.ContentID)
		}
	}

	complete, err := api.submitted(ctx, usr, n)
	if err != nil {
		return errors.Wrap(err, "checking submissions")
	}
	if _, err = api.trees.RecordVisit(reqCtx, usr.ID, n, complete); err != nil {
		return errors.Wrap(err, "recording visit")
	}

	res := SubmitResponse{Complete: complete}
	if next := tree.Next(n); next != nil && complete {
		res.Next = tree.URL(next)
	}
	return ctx.JSON(http.StatusOK, res)
}

// editBlock lets staff change the content of a block.
func (api *pagesApi) editBlock(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	vals := make(map[string]string)
	if err = json.NewDecoder(ctx.Request().Body).Decode(&vals); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid block values").SetInternal(err)
	}

	kind := block.Kind(strings.ToLower(ctx.Param("kind")))
	b, err := api.blocks.Edit(ctx.Request().Context(), kind, id, vals)
	if err != nil {
		if errors.Cause(err) == block.ErrNotFound || errors.Cause(err) == block.ErrUnknownKind {
			return errHttpNotFound
		}
		return errors.Wrap(err, "editing block")
	}
	return ctx.JSON(http.StatusOK, b)
}
