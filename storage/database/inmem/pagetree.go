package inmemdb

import (
	"context"
	"sort"

	"github.com/ccnmtl/videoanalytics/core/pagetree"
)

type pageTreeRepository struct {
	db *DB
}

var _ pagetree.Repository = (*pageTreeRepository)(nil) // interface compliance check

func NewPageTreeRepository(db *DB) *pageTreeRepository {
	return &pageTreeRepository{db: db}
}

func (repo *pageTreeRepository) CreateHierarchy(_ context.Context, h pagetree.Hierarchy) (pagetree.Hierarchy, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.hierarchies {
		if existing.Name == h.Name {
			return pagetree.Hierarchy{}, pagetree.ErrHierarchyExists
		}
	}
	h.ID = repo.db.nextID("hierarchies")
	repo.db.hierarchies[h.ID] = &h
	return h, nil
}

func (repo *pageTreeRepository) GetHierarchy(_ context.Context, name string) (pagetree.Hierarchy, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, h := range repo.db.hierarchies {
		if h.Name == name {
			return *h, nil
		}
	}
	return pagetree.Hierarchy{}, pagetree.ErrHierarchyNotFound
}

func (repo *pageTreeRepository) QueryHierarchies(_ context.Context) ([]pagetree.Hierarchy, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	hs := make([]pagetree.Hierarchy, 0, len(repo.db.hierarchies))
	for _, h := range repo.db.hierarchies {
		hs = append(hs, *h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].ID < hs[j].ID })
	return hs, nil
}

func (repo *pageTreeRepository) DeleteHierarchy(_ context.Context, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.hierarchies, id)
	for sid, s := range repo.db.sections {
		if s.HierarchyID != id {
			continue
		}
		delete(repo.db.sections, sid)
		for pid, pb := range repo.db.pageBlocks {
			if pb.SectionID == sid {
				delete(repo.db.pageBlocks, pid)
			}
		}
		for key := range repo.db.visits {
			if key.sectionID == sid {
				delete(repo.db.visits, key)
			}
		}
	}
	return nil
}

func (repo *pageTreeRepository) CreateSection(_ context.Context, s pagetree.Section) (pagetree.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = repo.db.nextID("sections")
	repo.db.sections[s.ID] = &s
	return s, nil
}

func (repo *pageTreeRepository) QuerySections(_ context.Context, hierarchyID int64) ([]pagetree.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sections []pagetree.Section
	for _, s := range repo.db.sections {
		if s.HierarchyID == hierarchyID {
			sections = append(sections, *s)
		}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].ID < sections[j].ID })
	return sections, nil
}

func (repo *pageTreeRepository) CreatePageBlock(_ context.Context, pb pagetree.PageBlock) (pagetree.PageBlock, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pb.ID = repo.db.nextID("page_blocks")
	repo.db.pageBlocks[pb.ID] = &pb
	return pb, nil
}

func (repo *pageTreeRepository) QueryPageBlocks(_ context.Context, hierarchyID int64) ([]pagetree.PageBlock, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var pbs []pagetree.PageBlock
	for _, pb := range repo.db.pageBlocks {
		if s, ok := repo.db.sections[pb.SectionID]; ok && s.HierarchyID == hierarchyID {
			pbs = append(pbs, *pb)
		}
	}
	sort.Slice(pbs, func(i, j int) bool { return pbs[i].ID < pbs[j].ID })
	return pbs, nil
}

func (repo *pageTreeRepository) GetVisit(_ context.Context, userID, sectionID int64) (pagetree.Visit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if v, ok := repo.db.visits[visitKey{userID, sectionID}]; ok {
		return *v, nil
	}
	return pagetree.Visit{}, pagetree.ErrVisitNotFound
}

func (repo *pageTreeRepository) SaveVisit(_ context.Context, v pagetree.Visit) (pagetree.Visit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := visitKey{v.UserID, v.SectionID}
	if existing, ok := repo.db.visits[key]; ok {
		v.FirstVisit = existing.FirstVisit
	}
	repo.db.visits[key] = &v
	return v, nil
}

func (repo *pageTreeRepository) QueryVisits(_ context.Context, filter pagetree.VisitFilter) ([]pagetree.Visit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var visits []pagetree.Visit
	for _, v := range repo.db.visits {
		if filter.UserID != 0 && v.UserID != filter.UserID {
			continue
		}
		if filter.HierarchyID != 0 {
			if s, ok := repo.db.sections[v.SectionID]; !ok || s.HierarchyID != filter.HierarchyID {
				continue
			}
		}
		visits = append(visits, *v)
	}
	sort.Slice(visits, func(i, j int) bool {
		if !visits[i].FirstVisit.Equal(visits[j].FirstVisit) {
			return visits[i].FirstVisit.Before(visits[j].FirstVisit)
		}
		return visits[i].SectionID < visits[j].SectionID
	})
	return visits, nil
}
