package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ccnmtl/videoanalytics/core/pagetree"
)

var (
	sectionColumns   = []string{"id", "hierarchy_id", "parent_id", "label", "slug", "position"}
	pageBlockColumns = []string{"id", "section_id", "position", "label", "css_extra", "kind", "content_id"}
	visitColumns     = []string{"v.user_id", "v.section_id", "v.status", "v.first_visit", "v.last_visit"}
)

type (
	sectionRow struct {
		ID          int64      `db:"id"`
		HierarchyID int64      `db:"hierarchy_id"`
		ParentID    null.Int64 `db:"parent_id"`
		Label       string     `db:"label"`
		Slug        string     `db:"slug"`
		Position    int        `db:"position"`
	}

	visitRow struct {
		UserID     int64     `db:"user_id"`
		SectionID  int64     `db:"section_id"`
		Status     string    `db:"status"`
		FirstVisit time.Time `db:"first_visit"`
		LastVisit  time.Time `db:"last_visit"`
	}
)

func (r sectionRow) section() pagetree.Section {
	return pagetree.Section{
		ID:          r.ID,
		HierarchyID: r.HierarchyID,
		ParentID:    r.ParentID.Int64,
		Label:       r.Label,
		Slug:        r.Slug,
		Position:    r.Position,
	}
}

func (r visitRow) visit() pagetree.Visit {
	return pagetree.Visit{
		UserID:     r.UserID,
		SectionID:  r.SectionID,
		Status:     r.Status,
		FirstVisit: r.FirstVisit.UTC(),
		LastVisit:  r.LastVisit.UTC(),
	}
}

type pageTreeRepository struct {
	db *sqlx.DB
}

var _ pagetree.Repository = (*pageTreeRepository)(nil) // interface compliance check

func NewPageTreeRepository(db *sqlx.DB) *pageTreeRepository {
	return &pageTreeRepository{db: db}
}

func (repo *pageTreeRepository) CreateHierarchy(ctx context.Context, h pagetree.Hierarchy) (pagetree.Hierarchy, error) {
	q := psql.Insert("hierarchies").Columns("name", "base_url").Values(h.Name, h.BaseURL).Suffix("RETURNING id")
	if err := get(ctx, repo.db, &h.ID, q); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return pagetree.Hierarchy{}, pagetree.ErrHierarchyExists
		}
		return pagetree.Hierarchy{}, errors.Wrap(err, "inserting hierarchy")
	}
	return h, nil
}

func (repo *pageTreeRepository) GetHierarchy(ctx context.Context, name string) (pagetree.Hierarchy, error) {
	var h pagetree.Hierarchy
	q := psql.Select("id", "name", "base_url AS baseurl").From("hierarchies").Where(sq.Eq{"name": name})
	if err := get(ctx, repo.db, &h, q); err != nil {
		return pagetree.Hierarchy{}, trapNoRows(err, pagetree.ErrHierarchyNotFound, "finding hierarchy")
	}
	return h, nil
}

func (repo *pageTreeRepository) QueryHierarchies(ctx context.Context) ([]pagetree.Hierarchy, error) {
	var hs []pagetree.Hierarchy
	q := psql.Select("id", "name", "base_url AS baseurl").From("hierarchies").OrderBy("id")
	if err := selectAll(ctx, repo.db, &hs, q); err != nil {
		return nil, errors.Wrap(err, "querying hierarchies")
	}
	return hs, nil
}

func (repo *pageTreeRepository) DeleteHierarchy(ctx context.Context, id int64) error {
	// sections, page blocks & visits cascade
	if _, err := exec(ctx, repo.db, psql.Delete("hierarchies").Where(sq.Eq{"id": id})); err != nil {
		return errors.Wrap(err, "deleting hierarchy")
	}
	return nil
}

func (repo *pageTreeRepository) CreateSection(ctx context.Context, s pagetree.Section) (pagetree.Section, error) {
	q := psql.Insert("sections").
		Columns(sectionColumns[1:]...).
		Values(s.HierarchyID, null.NewInt64(s.ParentID, s.ParentID != 0), s.Label, s.Slug, s.Position).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &s.ID, q); err != nil {
		return pagetree.Section{}, errors.Wrap(err, "inserting section")
	}
	return s, nil
}

func (repo *pageTreeRepository) QuerySections(ctx context.Context, hierarchyID int64) ([]pagetree.Section, error) {
	var rows []sectionRow
	q := psql.Select(sectionColumns...).From("sections").Where(sq.Eq{"hierarchy_id": hierarchyID}).OrderBy("id")
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	sections := make([]pagetree.Section, 0, len(rows))
	for _, r := range rows {
		sections = append(sections, r.section())
	}
	return sections, nil
}

func (repo *pageTreeRepository) CreatePageBlock(ctx context.Context, pb pagetree.PageBlock) (pagetree.PageBlock, error) {
	q := psql.Insert("page_blocks").
		Columns(pageBlockColumns[1:]...).
		Values(pb.SectionID, pb.Position, pb.Label, pb.CSSExtra, pb.Kind, pb.ContentID).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &pb.ID, q); err != nil {
		return pagetree.PageBlock{}, errors.Wrap(err, "inserting page block")
	}
	return pb, nil
}

func (repo *pageTreeRepository) QueryPageBlocks(ctx context.Context, hierarchyID int64) ([]pagetree.PageBlock, error) {
	var pbs []pagetree.PageBlock
	q := psql.Select("pb.id", "pb.section_id AS sectionid", "pb.position", "pb.label", "pb.css_extra AS cssextra",
		"pb.kind", "pb.content_id AS contentid").
		From("page_blocks pb").
		Join("sections s ON s.id = pb.section_id").
		Where(sq.Eq{"s.hierarchy_id": hierarchyID}).
		OrderBy("pb.section_id", "pb.position", "pb.id")
	if err := selectAll(ctx, repo.db, &pbs, q); err != nil {
		return nil, errors.Wrap(err, "querying page blocks")
	}
	return pbs, nil
}

func (repo *pageTreeRepository) GetVisit(ctx context.Context, userID, sectionID int64) (pagetree.Visit, error) {
	var r visitRow
	q := psql.Select(visitColumns...).From("user_page_visits v").
		Where(sq.Eq{"v.user_id": userID, "v.section_id": sectionID})
	if err := get(ctx, repo.db, &r, q); err != nil {
		return pagetree.Visit{}, trapNoRows(err, pagetree.ErrVisitNotFound, "finding visit")
	}
	return r.visit(), nil
}

func (repo *pageTreeRepository) SaveVisit(ctx context.Context, v pagetree.Visit) (pagetree.Visit, error) {
	q := psql.Insert("user_page_visits").
		Columns("user_id", "section_id", "status", "first_visit", "last_visit").
		Values(v.UserID, v.SectionID, v.Status, v.FirstVisit.UTC(), v.LastVisit.UTC()).
		Suffix("ON CONFLICT (user_id, section_id) DO UPDATE SET status = EXCLUDED.status, last_visit = EXCLUDED.last_visit")
	if _, err := exec(ctx, repo.db, q); err != nil {
		return pagetree.Visit{}, errors.Wrap(err, "saving visit")
	}
	return v, nil
}

func (repo *pageTreeRepository) QueryVisits(ctx context.Context, filter pagetree.VisitFilter) ([]pagetree.Visit, error) {
	q := psql.Select(visitColumns...).From("user_page_visits v")
	if filter.UserID != 0 {
		q = q.Where(sq.Eq{"v.user_id": filter.UserID})
	}
	if filter.HierarchyID != 0 {
		q = q.Join("sections s ON s.id = v.section_id").Where(sq.Eq{"s.hierarchy_id": filter.HierarchyID})
	}

	var rows []visitRow
	if err := selectAll(ctx, repo.db, &rows, q.OrderBy("v.first_visit", "v.section_id")); err != nil {
		return nil, errors.Wrap(err, "querying visits")
	}
	visits := make([]pagetree.Visit, 0, len(rows))
	for _, r := range rows {
		visits = append(visits, r.visit())
	}
	return visits, nil
}
