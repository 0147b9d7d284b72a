package user

import "time"

// Research groups. Each group is also the name of the hierarchy its members work through.
const (
	ControlGroup    = "a"
	DiagnosticGroup = "b"
)

var ResearchGroups = []string{ControlGroup, DiagnosticGroup}

// Profile holds the research data attached to a User. There is exactly one per User.
type Profile struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	ResearchGroup string    `json:"research_group"`
	CreatedAt     time.Time `json:"created_at"`  // UTC
	ModifiedAt    time.Time `json:"modified_at"` // UTC
}

// NewProfile builds the Profile of a freshly created User.
// Every call site creating a User must persist the result along with it.
func NewProfile(usr User, group string) Profile {
	if !IsResearchGroup(group) {
		group = ControlGroup
	}
	now := nowFunc().UTC()
	return Profile{
		UserID:        usr.ID,
		ResearchGroup: group,
		CreatedAt:     now,
		ModifiedAt:    now,
	}
}

// DefaultHierarchy is the name of the hierarchy the profile's owner works through.
func (p Profile) DefaultHierarchy() string {
	return p.ResearchGroup
}

func (p Profile) InControlGroup() bool {
	return p.DefaultHierarchy() == ControlGroup
}

// IsResearchGroup reports whether g is a known research group.
func IsResearchGroup(g string) bool {
	for _, rg := range ResearchGroups {
		if g == rg {
			return true
		}
	}
	return false
}
