// Package inmemdb implements the repositories in memory. Used by tests & the "test" environment.
package inmemdb

import (
	"sync"

	"github.com/ccnmtl/videoanalytics/core/block"
	"github.com/ccnmtl/videoanalytics/core/pagetree"
	"github.com/ccnmtl/videoanalytics/core/quiz"
	"github.com/ccnmtl/videoanalytics/core/user"
	"github.com/ccnmtl/videoanalytics/core/video"
)

type visitKey struct{ userID, sectionID int64 }

type viewKey struct {
	userID  int64
	videoID string
}

// DB holds every table behind a single lock.
type DB struct {
	sync.RWMutex
	seq map[string]int64

	users    map[int64]*user.User
	profiles map[int64]*user.Profile // by user ID

	hierarchies map[int64]*pagetree.Hierarchy
	sections    map[int64]*pagetree.Section
	pageBlocks  map[int64]*pagetree.PageBlock
	visits      map[visitKey]*pagetree.Visit

	blocks map[block.Kind]map[int64]block.Block

	quizzes     map[int64]*quiz.Quiz
	submissions map[int64]*quiz.Submission
	responses   map[int64][]quiz.Response // by submission ID

	views map[viewKey]*video.View
}

func Open() *DB {
	return &DB{
		seq:         make(map[string]int64),
		users:       make(map[int64]*user.User),
		profiles:    make(map[int64]*user.Profile),
		hierarchies: make(map[int64]*pagetree.Hierarchy),
		sections:    make(map[int64]*pagetree.Section),
		pageBlocks:  make(map[int64]*pagetree.PageBlock),
		visits:      make(map[visitKey]*pagetree.Visit),
		blocks:      make(map[block.Kind]map[int64]block.Block),
		quizzes:     make(map[int64]*quiz.Quiz),
		submissions: make(map[int64]*quiz.Submission),
		responses:   make(map[int64][]quiz.Response),
		views:       make(map[viewKey]*video.View),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int64 {
	db.seq[table]++
	return db.seq[table]
}
