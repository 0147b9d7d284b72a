package pagetree

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrHierarchyNotFound = errors.New("hierarchy not found")
	ErrHierarchyExists   = errors.New("a hierarchy with this name already exists")
	ErrVisitNotFound     = errors.New("visit not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateHierarchy(ctx context.Context, h Hierarchy) (Hierarchy, error)
		GetHierarchy(ctx context.Context, name string) (Hierarchy, error)
		// QueryHierarchies returns all hierarchies ordered by ID.
		QueryHierarchies(ctx context.Context) ([]Hierarchy, error)
		// DeleteHierarchy deletes a hierarchy with its sections, blocks and visits.
		DeleteHierarchy(ctx context.Context, id int64) error

		CreateSection(ctx context.Context, s Section) (Section, error)
		QuerySections(ctx context.Context, hierarchyID int64) ([]Section, error)

		CreatePageBlock(ctx context.Context, pb PageBlock) (PageBlock, error)
		// QueryPageBlocks returns the blocks of every section of a hierarchy.
		QueryPageBlocks(ctx context.Context, hierarchyID int64) ([]PageBlock, error)

		GetVisit(ctx context.Context, userID, sectionID int64) (Visit, error)
		// SaveVisit creates or updates the visit of (Visit.UserID, Visit.SectionID).
		SaveVisit(ctx context.Context, v Visit) (Visit, error)
		QueryVisits(ctx context.Context, filter VisitFilter) ([]Visit, error)
	}

	// ContentStore creates and describes the content a PageBlock points to.
	ContentStore interface {
		CreateContent(ctx context.Context, kind string, data map[string]interface{}) (int64, error)
		ContentAsDict(ctx context.Context, kind string, id int64) (map[string]interface{}, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) build(ctx context.Context, h Hierarchy) (*Tree, error) {
	sections, err := svc.repo.QuerySections(ctx, h.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	blocks, err := svc.repo.QueryPageBlocks(ctx, h.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying page blocks")
	}
	tree, err := BuildTree(h, sections, blocks)
	return tree, errors.Wrapf(err, "building tree of %q", h.Name)
}

// Tree loads the hierarchy called name.
func (svc *Service) Tree(ctx context.Context, name string) (*Tree, error) {
	h, err := svc.repo.GetHierarchy(ctx, name)
	if err != nil {
		return nil, err
	}
	return svc.build(ctx, h)
}

// Trees loads every hierarchy, ordered by ID.
func (svc *Service) Trees(ctx context.Context) ([]*Tree, error) {
	hierarchies, err := svc.repo.QueryHierarchies(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying hierarchies")
	}
	trees := make([]*Tree, 0, len(hierarchies))
	for _, h := range hierarchies {
		tree, err := svc.build(ctx, h)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

// Visits returns the visits of a user. hierarchyID 0 means all hierarchies.
func (svc *Service) Visits(ctx context.Context, userID, hierarchyID int64) ([]Visit, error) {
	visits, err := svc.repo.QueryVisits(ctx, VisitFilter{UserID: userID, HierarchyID: hierarchyID})
	return visits, errors.Wrap(err, "querying visits")
}

// RecordVisit marks n as visited by the user. A completed visit stays completed.
func (svc *Service) RecordVisit(ctx context.Context, userID int64, n *Node, complete bool) (Visit, error) {
	now := nowFunc().UTC()
	v, err := svc.repo.GetVisit(ctx, userID, n.ID)
	switch {
	case err == nil:
	case errors.Cause(err) == ErrVisitNotFound:
		v = Visit{UserID: userID, SectionID: n.ID, Status: StatusIncomplete, FirstVisit: now}
	default:
		return Visit{}, errors.Wrap(err, "getting visit")
	}

	v.LastVisit = now
	if complete {
		v.Status = StatusComplete
	}
	v, err = svc.repo.SaveVisit(ctx, v)
	return v, errors.Wrap(err, "saving visit")
}
