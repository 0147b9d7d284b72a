package pagetree

import (
	"strings"
	"time"
)

// Visit statuses
const (
	StatusIncomplete = "incomplete"
	StatusComplete   = "complete"
)

type Hierarchy struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
}

type Section struct {
	ID          int64  `json:"id"`
	HierarchyID int64  `json:"hierarchy_id"`
	ParentID    int64  `json:"parent_id,omitempty"` // 0 for the root
	Label       string `json:"label"`
	Slug        string `json:"slug"`
	Position    int    `json:"position"`
}

func (s Section) IsRoot() bool { return s.ParentID == 0 }

// PageBlock places a content block on a Section.
type PageBlock struct {
	ID        int64  `json:"id"`
	SectionID int64  `json:"section_id"`
	Position  int    `json:"position"`
	Label     string `json:"label"`
	CSSExtra  string `json:"css_extra"`
	Kind      string `json:"kind"`
	ContentID int64  `json:"content_id"`
}

// HasClass reports whether the block's css classes contain cls.
func (pb PageBlock) HasClass(cls string) bool {
	return strings.Contains(pb.CSSExtra, cls)
}

// Visit records a user reaching (and maybe completing) a Section.
type Visit struct {
	UserID     int64     `json:"user_id"`
	SectionID  int64     `json:"section_id"`
	Status     string    `json:"status"`
	FirstVisit time.Time `json:"first_visit"` // UTC
	LastVisit  time.Time `json:"last_visit"`  // UTC
}

func (v Visit) IsComplete() bool { return v.Status == StatusComplete }

// VisitFilter selects visits. Zero fields are ignored.
type VisitFilter struct {
	UserID      int64
	HierarchyID int64
}
