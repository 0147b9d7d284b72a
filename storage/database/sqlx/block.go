package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core/block"
)

// blockTable describes where a block kind is stored.
type blockTable struct {
	name    string
	columns []string // without id
	values  func(b block.Block) []interface{}
	scan    func() (dest block.Block, ptrs []interface{})
}

var blockTables = map[block.Kind]blockTable{
	block.TextKind: {
		name:    "text_blocks",
		columns: []string{"body"},
		values:  func(b block.Block) []interface{} { return []interface{}{b.(*block.TextBlock).Body} },
		scan: func() (block.Block, []interface{}) {
			b := new(block.TextBlock)
			return b, []interface{}{&b.ID, &b.Body}
		},
	},
	block.HTMLKind: {
		name:    "html_blocks",
		columns: []string{"html"},
		values:  func(b block.Block) []interface{} { return []interface{}{b.(*block.HTMLBlock).HTML} },
		scan: func() (block.Block, []interface{}) {
			b := new(block.HTMLBlock)
			return b, []interface{}{&b.ID, &b.HTML}
		},
	},
	block.QuizSummaryKind: {
		name:    "quiz_summary_blocks",
		columns: []string{"quiz_class"},
		values:  func(b block.Block) []interface{} { return []interface{}{b.(*block.QuizSummaryBlock).QuizClass} },
		scan: func() (block.Block, []interface{}) {
			b := new(block.QuizSummaryBlock)
			return b, []interface{}{&b.ID, &b.QuizClass}
		},
	},
	block.YouTubeKind: {
		name:    "youtube_blocks",
		columns: []string{"video_id", "title"},
		values: func(b block.Block) []interface{} {
			yt := b.(*block.YouTubeBlock)
			return []interface{}{yt.VideoID, yt.Title}
		},
		scan: func() (block.Block, []interface{}) {
			b := new(block.YouTubeBlock)
			return b, []interface{}{&b.ID, &b.VideoID, &b.Title}
		},
	},
}

func tableOf(kind block.Kind) (blockTable, error) {
	t, ok := blockTables[kind]
	if !ok {
		return blockTable{}, errors.Wrap(block.ErrUnknownKind, string(kind))
	}
	return t, nil
}

// setID sets the ID of a block created by one of the blockTables.
func setID(b block.Block, id int64) {
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

type blockRepository struct {
	db *sqlx.DB
}

var _ block.Repository = (*blockRepository)(nil) // interface compliance check

func NewBlockRepository(db *sqlx.DB) *blockRepository {
	return &blockRepository{db: db}
}

func (repo *blockRepository) CreateBlock(ctx context.Context, b block.Block) (block.Block, error) {
	t, err := tableOf(b.Kind())
	if err != nil {
		return nil, err
	}
	var id int64
	q := psql.Insert(t.name).Columns(t.columns...).Values(t.values(b)...).Suffix("RETURNING id")
	if err = get(ctx, repo.db, &id, q); err != nil {
		return nil, errors.Wrapf(err, "inserting %s block", b.Kind())
	}
	setID(b, id)
	return b, nil
}

func (repo *blockRepository) GetBlock(ctx context.Context, kind block.Kind, id int64) (block.Block, error) {
	t, err := tableOf(kind)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select(append([]string{"id"}, t.columns...)...).
		From(t.name).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	b, ptrs := t.scan()
	if err = checkConn(repo.db.QueryRowxContext(ctx, query, args...).Scan(ptrs...)); err != nil {
		return nil, trapNoRows(err, block.ErrNotFound, "finding block")
	}
	return b, nil
}

func (repo *blockRepository) UpdateBlock(ctx context.Context, b block.Block) (block.Block, error) {
	t, err := tableOf(b.Kind())
	if err != nil {
		return nil, err
	}
	q := psql.Update(t.name).Where(sq.Eq{"id": b.BlockID()})
	for i, v := range t.values(b) {
		q = q.Set(t.columns[i], v)
	}

	res, err := exec(ctx, repo.db, q)
	if err != nil {
		return nil, errors.Wrapf(err, "updating %s block", b.Kind())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, block.ErrNotFound
	}
	return b, nil
}
