// Package report builds the research report: a key file describing every column
// and a values file with one row per participant.
package report

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core/block"
	"github.com/ccnmtl/videoanalytics/core/pagetree"
	"github.com/ccnmtl/videoanalytics/core/quiz"
	"github.com/ccnmtl/videoanalytics/core/user"
	"github.com/ccnmtl/videoanalytics/core/video"
)

// Kind is a block kind able to contribute columns to the report.
type Kind int

const (
	QuizSummaryKind Kind = iota + 1
	VideoKind
)

// DefaultKinds are the reportable kinds, in the order their columns are looked up.
var DefaultKinds = []Kind{QuizSummaryKind, VideoKind}

func (k Kind) blockKind() block.Kind {
	switch k {
	case QuizSummaryKind:
		return block.QuizSummaryKind
	case VideoKind:
		return block.YouTubeKind
	}
	return ""
}

// Reportable is a reportable block found in a hierarchy. Exactly one of QuizSummary and YouTube is set, per Kind.
type Reportable struct {
	Kind        Kind
	Hierarchy   string
	QuizSummary *block.QuizSummaryBlock
	YouTube     *block.YouTubeBlock
}

// MetadataHeader is the first row of the key file.
var MetadataHeader = []string{"hierarchy", "itemIdentifier", "exercise type", "itemType", "itemText", "answerIdentifier", "answerText"}

type (
	ParticipantLister interface {
		Participants(ctx context.Context) ([]user.User, error)
	}
	ProfileGetter interface {
		Profile(ctx context.Context, usr user.User) (user.Profile, error)
	}
	ProgressReader interface {
		PercentComplete(ctx context.Context, usr user.User) (int, error)
		FirstAccessFormatted(ctx context.Context, usr user.User) (string, error)
		LastAccessFormatted(ctx context.Context, usr user.User) (string, error)
	}
	TreeLoader interface {
		Tree(ctx context.Context, name string) (*pagetree.Tree, error)
	}
	BlockGetter interface {
		QuizSummary(ctx context.Context, id int64) (block.QuizSummaryBlock, error)
		YouTube(ctx context.Context, id int64) (block.YouTubeBlock, error)
	}
	QuizReader interface {
		HasSubmission(ctx context.Context, userID int64) (bool, error)
		Quizzes(ctx context.Context, ids []int64) ([]quiz.Quiz, error)
		ResponsesFor(ctx context.Context, quizzes []quiz.Quiz, userID int64) (quiz.Responses, error)
	}
	ViewGetter interface {
		View(ctx context.Context, userID int64, videoID string) (video.View, bool, error)
	}

	Deps struct {
		Users    ParticipantLister
		Profiles ProfileGetter
		Progress ProgressReader
		Trees    TreeLoader
		Blocks   BlockGetter
		Quizzes  QuizReader
		Views    ViewGetter
	}

	Report struct {
		kinds []Kind
		deps  Deps
	}
)

// New returns a Report over the blocks of kinds.
func New(deps Deps, kinds ...Kind) *Report {
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}
	return &Report{kinds: kinds, deps: deps}
}

func (r *Report) reports(k Kind) bool {
	for _, kind := range r.kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Reportables lists the reportable blocks of hierarchies: hierarchies in order, sections depth first,
// blocks by position.
func (r *Report) Reportables(ctx context.Context, hierarchies []*pagetree.Tree) ([]Reportable, error) {
	var rs []Reportable
	for _, tree := range hierarchies {
		for _, n := range tree.Nodes() {
			for _, pb := range n.Blocks {
				switch {
				case block.Kind(pb.Kind) == QuizSummaryKind.blockKind() && r.reports(QuizSummaryKind):
					b, err := r.deps.Blocks.QuizSummary(ctx, pb.ContentID)
					if err != nil {
						return nil, errors.Wrapf(err, "getting quiz summary block %d", pb.ContentID)
					}
					rs = append(rs, Reportable{Kind: QuizSummaryKind, Hierarchy: tree.Name, QuizSummary: &b})
				case block.Kind(pb.Kind) == VideoKind.blockKind() && r.reports(VideoKind):
					b, err := r.deps.Blocks.YouTube(ctx, pb.ContentID)
					if err != nil {
						return nil, errors.Wrapf(err, "getting youtube block %d", pb.ContentID)
					}
					rs = append(rs, Reportable{Kind: VideoKind, Hierarchy: tree.Name, YouTube: &b})
				}
			}
		}
	}
	return rs, nil
}

// Columns returns the columns of a reportable block.
func (r *Report) Columns(rep Reportable) []Column {
	switch rep.Kind {
	case QuizSummaryKind:
		cols := make([]Column, 0, len(QuizTopics))
		for _, topic := range QuizTopics {
			cols = append(cols, quizSummaryColumn{topic: topic, r: r})
		}
		return cols
	case VideoKind:
		return []Column{youTubeColumn{hierarchy: rep.Hierarchy, video: *rep.YouTube, views: r.deps.Views}}
	}
	return nil
}

// AllColumns returns the standalone profile columns followed by the columns of every reportable block.
func (r *Report) AllColumns(ctx context.Context, hierarchies []*pagetree.Tree) ([]Column, error) {
	reportables, err := r.Reportables(ctx, hierarchies)
	if err != nil {
		return nil, err
	}
	cols := r.standaloneColumns()
	for _, rep := range reportables {
		cols = append(cols, r.Columns(rep)...)
	}
	return cols, nil
}

// Rows is a lazy sequence of CSV rows. Next returns io.EOF once exhausted, and keeps returning it.
// A failed Rows keeps returning its error.
type Rows struct {
	next func() ([]string, error)
	err  error
}

func (rows *Rows) Next() ([]string, error) {
	if rows.err != nil {
		return nil, rows.err
	}
	row, err := rows.next()
	if err != nil {
		rows.err = err
	}
	return row, err
}

// Metadata streams the key file: header, blank separator, then a row per column.
func (r *Report) Metadata(ctx context.Context, hierarchies []*pagetree.Tree) (*Rows, error) {
	cols, err := r.AllColumns(ctx, hierarchies)
	if err != nil {
		return nil, err
	}

	i := -2
	return &Rows{next: func() ([]string, error) {
		defer func() { i++ }()
		switch {
		case i == -2:
			return append([]string{}, MetadataHeader...), nil
		case i == -1:
			return []string{""}, nil
		case i < len(cols):
			return cols[i].Metadata(), nil
		}
		return nil, io.EOF
	}}, nil
}

// Values streams the values file: a header of column identifiers then a row per participant, ordered by ID.
func (r *Report) Values(ctx context.Context, hierarchies []*pagetree.Tree) (*Rows, error) {
	cols, err := r.AllColumns(ctx, hierarchies)
	if err != nil {
		return nil, err
	}
	users, err := r.deps.Users.Participants(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing participants")
	}

	i := -1
	return &Rows{next: func() ([]string, error) {
		defer func() { i++ }()
		if i == -1 {
			header := make([]string, 0, len(cols))
			for _, c := range cols {
				header = append(header, c.Identifier())
			}
			return header, nil
		}
		if i >= len(users) {
			return nil, io.EOF
		}

		usr := users[i]
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			v, err := c.UserValue(ctx, usr)
			if err != nil {
				return nil, errors.Wrapf(err, "%s value of user %d", c.Identifier(), usr.ID)
			}
			row = append(row, fmt.Sprint(v))
		}
		return row, nil
	}}, nil
}
