package inmemdb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core/block"
)

type blockRepository struct {
	db *DB
}

var _ block.Repository = (*blockRepository)(nil) // interface compliance check

func NewBlockRepository(db *DB) *blockRepository {
	return &blockRepository{db: db}
}

// clone copies b so callers never share stored blocks.
func clone(b block.Block) block.Block {
	switch b := b.(type) {
	case *block.TextBlock:
		c := *b
		return &c
	case *block.HTMLBlock:
		c := *b
		return &c
	case *block.QuizSummaryBlock:
		c := *b
		return &c
	case *block.YouTubeBlock:
		c := *b
		return &c
	}
	return b
}

func setBlockID(b block.Block, id int64) {
	switch b := b.(type) {
	case *block.TextBlock:
		b.ID = id
	case *block.HTMLBlock:
		b.ID = id
	case *block.QuizSummaryBlock:
		b.ID = id
	case *block.YouTubeBlock:
		b.ID = id
	}
}

func (repo *blockRepository) CreateBlock(_ context.Context, b block.Block) (block.Block, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	switch b.Kind() {
	case block.TextKind, block.HTMLKind, block.QuizSummaryKind, block.YouTubeKind:
	default:
		return nil, errors.Wrap(block.ErrUnknownKind, string(b.Kind()))
	}

	setBlockID(b, repo.db.nextID(string(b.Kind())+"_blocks"))
	table, ok := repo.db.blocks[b.Kind()]
	if !ok {
		table = make(map[int64]block.Block)
		repo.db.blocks[b.Kind()] = table
	}
	table[b.BlockID()] = clone(b)
	return b, nil
}

func (repo *blockRepository) GetBlock(_ context.Context, kind block.Kind, id int64) (block.Block, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.blocks[kind][id]; ok {
		return clone(b), nil
	}
	return nil, block.ErrNotFound
}

func (repo *blockRepository) UpdateBlock(_ context.Context, b block.Block) (block.Block, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.blocks[b.Kind()][b.BlockID()]; !ok {
		return nil, block.ErrNotFound
	}
	repo.db.blocks[b.Kind()][b.BlockID()] = clone(b)
	return b, nil
}
