package report

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ccnmtl/videoanalytics/core/block"
	"github.com/ccnmtl/videoanalytics/core/pagetree"
	"github.com/ccnmtl/videoanalytics/core/quiz"
	"github.com/ccnmtl/videoanalytics/core/user"
)

// Column is one column of the report: its key row and a value per user.
type Column interface {
	Identifier() string
	// Metadata is (hierarchy, identifier, item type, value type, display text).
	Metadata() []string
	// UserValue never fails on missing data, only on storage errors.
	UserValue(ctx context.Context, usr user.User) (interface{}, error)
}

// QuizTopics are the question categories summarized by a quiz summary block.
var QuizTopics = []string{"thermodynamics", "reaction_classes", "redox_chemistry", "mechanisms", "paper_figures"}

// AssessmentClass tags the quiz blocks that count towards the quiz summary scores.
const AssessmentClass = "assessment"

// standaloneColumn reports a profile attribute.
type standaloneColumn struct {
	id, valueType, text string
	value               func(ctx context.Context, usr user.User) (interface{}, error)
}

func (c standaloneColumn) Identifier() string { return c.id }
func (c standaloneColumn) Metadata() []string {
	return []string{"", c.id, "profile", c.valueType, c.text}
}
func (c standaloneColumn) UserValue(ctx context.Context, usr user.User) (interface{}, error) {
	return c.value(ctx, usr)
}

func (r *Report) standaloneColumns() []Column {
	return []Column{
		standaloneColumn{
			id: "participant_id", valueType: "string", text: "Participant Id",
			value: func(_ context.Context, usr user.User) (interface{}, error) { return usr.Username, nil },
		},
		standaloneColumn{
			id: "research_group", valueType: "string", text: "Research Group",
			value: func(ctx context.Context, usr user.User) (interface{}, error) {
				p, err := r.deps.Profiles.Profile(ctx, usr)
				return p.ResearchGroup, err
			},
		},
		standaloneColumn{
			id: "percent_complete", valueType: "percent", text: "% of hierarchy completed",
			value: func(ctx context.Context, usr user.User) (interface{}, error) {
				return r.deps.Progress.PercentComplete(ctx, usr)
			},
		},
		standaloneColumn{
			id: "first_access", valueType: "date string", text: "first access date",
			value: func(ctx context.Context, usr user.User) (interface{}, error) {
				return r.deps.Progress.FirstAccessFormatted(ctx, usr)
			},
		},
		standaloneColumn{
			id: "last_access", valueType: "date string", text: "last access date",
			value: func(ctx context.Context, usr user.User) (interface{}, error) {
				return r.deps.Progress.LastAccessFormatted(ctx, usr)
			},
		},
	}
}

// youTubeColumn reports how much of a video each user watched.
type youTubeColumn struct {
	hierarchy string
	video     block.YouTubeBlock
	views     ViewGetter
}

func (c youTubeColumn) Identifier() string { return c.video.VideoID }
func (c youTubeColumn) Metadata() []string {
	return []string{c.hierarchy, c.video.VideoID, "YouTube Video", "percent viewed", c.video.Title}
}

// UserValue is 0 for users who never played the video, eg: "25.0% (50 seconds)" otherwise.
func (c youTubeColumn) UserValue(ctx context.Context, usr user.User) (interface{}, error) {
	v, ok, err := c.views.View(ctx, usr.ID, c.video.VideoID)
	if err != nil || !ok {
		return 0, err
	}
	return fmt.Sprintf("%.1f%% (%d seconds)", v.PercentViewed(), v.SecondsViewed), nil
}

// quizSummaryColumn reports a user's number of correct assessment answers on a topic.
type quizSummaryColumn struct {
	topic string
	r     *Report
}

func (c quizSummaryColumn) Identifier() string { return c.topic }
func (c quizSummaryColumn) Metadata() []string {
	return []string{"", c.topic, "Aggregate Quiz Score", "# correct", ""}
}

// UserValue is "-" for the control group, "" without any submission or question on the topic.
func (c quizSummaryColumn) UserValue(ctx context.Context, usr user.User) (interface{}, error) {
	profile, err := c.r.deps.Profiles.Profile(ctx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "getting profile")
	}
	if profile.InControlGroup() {
		return "-", nil
	}

	submitted, err := c.r.deps.Quizzes.HasSubmission(ctx, usr.ID)
	if err != nil || !submitted {
		return "", err
	}

	scores, err := c.r.assessmentScores(ctx, usr, profile)
	if err != nil {
		return nil, err
	}
	if score, ok := scores[c.topic]; ok {
		return score, nil
	}
	return "", nil
}

// assessmentScores scores the user on the assessment quizzes of their hierarchy.
func (r *Report) assessmentScores(ctx context.Context, usr user.User, profile user.Profile) (map[string]int, error) {
	tree, err := r.deps.Trees.Tree(ctx, profile.DefaultHierarchy())
	if err != nil {
		if errors.Cause(err) == pagetree.ErrHierarchyNotFound {
			return map[string]int{}, nil
		}
		return nil, errors.Wrap(err, "loading hierarchy")
	}

	var ids []int64
	for _, n := range tree.Nodes() {
		for _, pb := range n.Blocks {
			if block.Kind(pb.Kind) == block.QuizKind && pb.HasClass(AssessmentClass) {
				ids = append(ids, pb.ContentID)
			}
		}
	}
	quizzes, err := r.deps.Quizzes.Quizzes(ctx, ids)
	if err != nil {
		return nil, err
	}
	responses, err := r.deps.Quizzes.ResponsesFor(ctx, quizzes, usr.ID)
	if err != nil {
		return nil, err
	}
	return quiz.ScoreByCategory(quizzes, responses), nil
}
