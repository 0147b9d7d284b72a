// Package block holds the content shown on pages: text, html, quiz summaries and videos.
// Quizzes live in the quiz package and are reached through QuizStore.
package block

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind discriminates block contents.
type Kind string

const (
	TextKind        Kind = "text"
	HTMLKind        Kind = "html"
	QuizKind        Kind = "quiz"
	QuizSummaryKind Kind = "quiz_summary"
	YouTubeKind     Kind = "youtube"
)

var (
	ErrNotFound    = errors.New("block not found")
	ErrUnknownKind = errors.New("unknown block kind")
)

// Block is the content of a PageBlock.
type Block interface {
	Kind() Kind
	BlockID() int64
	// NeedsSubmit reports whether the block has to be submitted to complete its page.
	NeedsSubmit() bool
	AsDict() map[string]interface{}
	// Edit updates the block from submitted values. Missing keys are left untouched.
	Edit(vals map[string]string)
}

type TextBlock struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

func (b TextBlock) Kind() Kind        { return TextKind }
func (b TextBlock) BlockID() int64    { return b.ID }
func (b TextBlock) NeedsSubmit() bool { return false }
func (b TextBlock) AsDict() map[string]interface{} {
	return map[string]interface{}{"body": b.Body}
}
func (b *TextBlock) Edit(vals map[string]string) {
	if v, ok := vals["body"]; ok {
		b.Body = v
	}
}

type HTMLBlock struct {
	ID   int64  `json:"id"`
	HTML string `json:"html"`
}

func (b HTMLBlock) Kind() Kind        { return HTMLKind }
func (b HTMLBlock) BlockID() int64    { return b.ID }
func (b HTMLBlock) NeedsSubmit() bool { return false }
func (b HTMLBlock) AsDict() map[string]interface{} {
	return map[string]interface{}{"html": b.HTML}
}
func (b *HTMLBlock) Edit(vals map[string]string) {
	if v, ok := vals["html"]; ok {
		b.HTML = v
	}
}

// QuizSummaryBlock shows a user's scores on the quizzes tagged with QuizClass.
type QuizSummaryBlock struct {
	ID        int64  `json:"id"`
	QuizClass string `json:"quiz_class"`
}

func (b QuizSummaryBlock) Kind() Kind        { return QuizSummaryKind }
func (b QuizSummaryBlock) BlockID() int64    { return b.ID }
func (b QuizSummaryBlock) NeedsSubmit() bool { return false }
func (b QuizSummaryBlock) Unlocked() bool    { return true }
func (b QuizSummaryBlock) AsDict() map[string]interface{} {
	return map[string]interface{}{"quiz_class": b.QuizClass}
}
func (b *QuizSummaryBlock) Edit(vals map[string]string) {
	if v, ok := vals["quiz_class"]; ok {
		b.QuizClass = strings.TrimSpace(v)
	}
}

// YouTubeBlock embeds a tracked YouTube video.
type YouTubeBlock struct {
	ID      int64  `json:"id"`
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
}

func (b YouTubeBlock) Kind() Kind        { return YouTubeKind }
func (b YouTubeBlock) BlockID() int64    { return b.ID }
func (b YouTubeBlock) NeedsSubmit() bool { return false }
func (b YouTubeBlock) Unlocked() bool    { return true }
func (b YouTubeBlock) AsDict() map[string]interface{} {
	return map[string]interface{}{"video_id": b.VideoID, "title": b.Title}
}
func (b *YouTubeBlock) Edit(vals map[string]string) {
	if v, ok := vals["video_id"]; ok {
		b.VideoID = strings.TrimSpace(v)
	}
	if v, ok := vals["title"]; ok {
		b.Title = v
	}
}

// FromDict builds an unsaved block of kind from its dict form.
func FromDict(kind Kind, d map[string]interface{}) (Block, error) {
	vals := make(map[string]string, len(d))
	for k, v := range d {
		if v != nil {
			vals[k] = fmt.Sprint(v)
		}
	}

	var b Block
	switch kind {
	case TextKind:
		b = new(TextBlock)
	case HTMLKind:
		b = new(HTMLBlock)
	case QuizSummaryKind:
		b = new(QuizSummaryBlock)
	case YouTubeKind:
		b = new(YouTubeBlock)
	default:
		return nil, errors.Wrap(ErrUnknownKind, string(kind))
	}
	b.Edit(vals)
	return b, nil
}

type (
	Repository interface {
		// CreateBlock saves b and returns it with its ID set.
		CreateBlock(ctx context.Context, b Block) (Block, error)
		GetBlock(ctx context.Context, kind Kind, id int64) (Block, error)
		UpdateBlock(ctx context.Context, b Block) (Block, error)
	}

	// QuizStore creates and describes quizzes from their dict form.
	QuizStore interface {
		CreateQuizFromDict(ctx context.Context, d map[string]interface{}) (int64, error)
		QuizAsDict(ctx context.Context, id int64) (map[string]interface{}, error)
	}

	Service struct {
		repo    Repository
		quizzes QuizStore
	}
)

func NewService(repo Repository, quizzes QuizStore) *Service {
	return &Service{repo: repo, quizzes: quizzes}
}

func (svc *Service) Get(ctx context.Context, kind Kind, id int64) (Block, error) {
	return svc.repo.GetBlock(ctx, kind, id)
}

func (svc *Service) QuizSummary(ctx context.Context, id int64) (QuizSummaryBlock, error) {
	b, err := svc.repo.GetBlock(ctx, QuizSummaryKind, id)
	if err != nil {
		return QuizSummaryBlock{}, err
	}
	return *b.(*QuizSummaryBlock), nil
}

func (svc *Service) YouTube(ctx context.Context, id int64) (YouTubeBlock, error) {
	b, err := svc.repo.GetBlock(ctx, YouTubeKind, id)
	if err != nil {
		return YouTubeBlock{}, err
	}
	return *b.(*YouTubeBlock), nil
}

// Edit applies vals to a saved block.
func (svc *Service) Edit(ctx context.Context, kind Kind, id int64, vals map[string]string) (Block, error) {
	b, err := svc.repo.GetBlock(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	b.Edit(vals)
	return svc.repo.UpdateBlock(ctx, b)
}

// CreateContent implements pagetree.ContentStore.
func (svc *Service) CreateContent(ctx context.Context, kind string, data map[string]interface{}) (int64, error) {
	if Kind(kind) == QuizKind {
		return svc.quizzes.CreateQuizFromDict(ctx, data)
	}
	b, err := FromDict(Kind(kind), data)
	if err != nil {
		return 0, err
	}
	if b, err = svc.repo.CreateBlock(ctx, b); err != nil {
		return 0, errors.Wrapf(err, "creating %s block", kind)
	}
	return b.BlockID(), nil
}

// ContentAsDict implements pagetree.ContentStore.
func (svc *Service) ContentAsDict(ctx context.Context, kind string, id int64) (map[string]interface{}, error) {
	if Kind(kind) == QuizKind {
		return svc.quizzes.QuizAsDict(ctx, id)
	}
	b, err := svc.repo.GetBlock(ctx, Kind(kind), id)
	if err != nil {
		return nil, err
	}
	return b.AsDict(), nil
}
