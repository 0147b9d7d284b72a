// Package progress computes where participants stand in their hierarchy and who may access which page.
package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core/pagetree"
	"github.com/ccnmtl/videoanalytics/core/user"
)

// VideosHierarchy is the hierarchy experimental group members may only reach after submitting a quiz.
const VideosHierarchy = "videos"

const accessLayout = "Jan 02, 2006 15:04:05"

type (
	ProfileGetter interface {
		Profile(ctx context.Context, usr user.User) (user.Profile, error)
	}

	SubmissionChecker interface {
		HasSubmission(ctx context.Context, userID int64) (bool, error)
	}

	TreeLoader interface {
		Tree(ctx context.Context, name string) (*pagetree.Tree, error)
		Visits(ctx context.Context, userID, hierarchyID int64) ([]pagetree.Visit, error)
	}

	Service struct {
		profiles    ProfileGetter
		trees       TreeLoader
		submissions SubmissionChecker
		loc         *time.Location
	}
)

func NewService(profiles ProfileGetter, trees TreeLoader, submissions SubmissionChecker, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{profiles: profiles, trees: trees, submissions: submissions, loc: loc}
}

// DefaultHierarchy loads the hierarchy of the user's research group. nil when it does not exist.
func (svc *Service) DefaultHierarchy(ctx context.Context, usr user.User) (*pagetree.Tree, error) {
	profile, err := svc.profiles.Profile(ctx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "getting profile")
	}
	tree, err := svc.trees.Tree(ctx, profile.DefaultHierarchy())
	if err != nil {
		if errors.Cause(err) == pagetree.ErrHierarchyNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "loading default hierarchy")
	}
	return tree, nil
}

// DefaultLocation is the root of the user's hierarchy.
func (svc *Service) DefaultLocation(ctx context.Context, usr user.User) (*pagetree.Node, error) {
	tree, err := svc.DefaultHierarchy(ctx, usr)
	if err != nil || tree == nil {
		return nil, err
	}
	return tree.Root(), nil
}

func (svc *Service) visits(ctx context.Context, usr user.User, tree *pagetree.Tree) ([]pagetree.Visit, error) {
	visits, err := svc.trees.Visits(ctx, usr.ID, tree.ID)
	return visits, errors.Wrap(err, "getting visits")
}

func (svc *Service) percentComplete(tree *pagetree.Tree, visits []pagetree.Visit) int {
	pages := len(tree.Descendants())
	if pages == 0 {
		return 0
	}
	var visited int
	for _, v := range visits {
		if n, ok := tree.Node(v.SectionID); ok && n.Parent != nil {
			visited++
		}
	}
	return visited * 100 / pages
}

// PercentComplete is the share of the sections of the user's hierarchy visited, truncated. 0 without sections.
func (svc *Service) PercentComplete(ctx context.Context, usr user.User) (int, error) {
	tree, err := svc.DefaultHierarchy(ctx, usr)
	if err != nil || tree == nil {
		return 0, err
	}
	visits, err := svc.visits(ctx, usr, tree)
	if err != nil {
		return 0, err
	}
	return svc.percentComplete(tree, visits), nil
}

func lastLocation(tree *pagetree.Tree, visits []pagetree.Visit) *pagetree.Node {
	var (
		last  *pagetree.Node
		lastT time.Time
	)
	for _, v := range visits {
		n, ok := tree.Node(v.SectionID)
		if !ok {
			continue
		}
		if last == nil || v.LastVisit.After(lastT) {
			last, lastT = n, v.LastVisit
		}
	}
	if last == nil {
		return tree.Root()
	}
	return last
}

// LastLocation is the most recently visited section of the user's hierarchy, or its root.
func (svc *Service) LastLocation(ctx context.Context, usr user.User) (*pagetree.Node, error) {
	tree, err := svc.DefaultHierarchy(ctx, usr)
	if err != nil || tree == nil {
		return nil, err
	}
	visits, err := svc.visits(ctx, usr, tree)
	if err != nil {
		return nil, err
	}
	return lastLocation(tree, visits), nil
}

// LastLocationURL is where a returning user resumes: the first page when nothing was visited yet,
// the last visited page otherwise. Empty when the user's hierarchy does not exist.
func (svc *Service) LastLocationURL(ctx context.Context, usr user.User) (string, error) {
	tree, err := svc.DefaultHierarchy(ctx, usr)
	if err != nil || tree == nil {
		return "", err
	}
	visits, err := svc.visits(ctx, usr, tree)
	if err != nil {
		return "", err
	}
	if svc.percentComplete(tree, visits) == 0 {
		return tree.URL(tree.FirstChild()), nil
	}
	return tree.URL(lastLocation(tree, visits)), nil
}

// FirstAccessFormatted is the earliest visit of the user to any section. Empty when none.
func (svc *Service) FirstAccessFormatted(ctx context.Context, usr user.User) (string, error) {
	visits, err := svc.trees.Visits(ctx, usr.ID, 0)
	if err != nil {
		return "", errors.Wrap(err, "getting visits")
	}
	var first time.Time
	for _, v := range visits {
		if !v.FirstVisit.IsZero() && (first.IsZero() || v.FirstVisit.Before(first)) {
			first = v.FirstVisit
		}
	}
	return svc.format(first), nil
}

// LastAccessFormatted is the latest visit of the user to any section. Empty when none.
func (svc *Service) LastAccessFormatted(ctx context.Context, usr user.User) (string, error) {
	visits, err := svc.trees.Visits(ctx, usr.ID, 0)
	if err != nil {
		return "", errors.Wrap(err, "getting visits")
	}
	var last time.Time
	for _, v := range visits {
		if v.LastVisit.After(last) {
			last = v.LastVisit
		}
	}
	return svc.format(last), nil
}

func (svc *Service) format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(svc.loc).Format(accessLayout)
}

// CheckAccess decides whether usr may see section n of tree. It returns the URL to redirect to
// when access is denied, or "" when granted.
//
// Non admins are sent back to their last location when the tree belongs to another research group,
// or when it is the videos hierarchy and they are in the experimental group without any quiz submitted.
// Everyone is sent to the first incomplete section preceding n.
func (svc *Service) CheckAccess(ctx context.Context, usr user.User, tree *pagetree.Tree, n *pagetree.Node) (string, error) {
	if !usr.IsAdmin() {
		profile, err := svc.profiles.Profile(ctx, usr)
		if err != nil {
			return "", errors.Wrap(err, "getting profile")
		}

		denied := user.IsResearchGroup(tree.Name) && tree.Name != profile.ResearchGroup
		if !denied && tree.Name == VideosHierarchy && profile.ResearchGroup == user.DiagnosticGroup {
			submitted, err := svc.submissions.HasSubmission(ctx, usr.ID)
			if err != nil {
				return "", err
			}
			denied = !submitted
		}
		if denied {
			url, err := svc.LastLocationURL(ctx, usr)
			if err != nil {
				return "", err
			}
			if url == "" {
				url = "/"
			}
			return url, nil
		}
	}

	visits, err := svc.visits(ctx, usr, tree)
	if err != nil {
		return "", err
	}
	if ok, first := tree.GateCheck(n, pagetree.IndexVisits(visits)); !ok {
		return tree.URL(first), nil
	}
	return "", nil
}
