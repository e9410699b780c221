package jobs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks a request that lacks required search fields.
var ErrValidation = errors.New("validation failed")

// Preferences narrows a search.
type Preferences struct {
	Roles      []string `json:"roles" mapstructure:"roles"`
	Locations  []string `json:"locations" mapstructure:"locations"`
	Experience string   `json:"experience" mapstructure:"experience"`
}

// UserProfile is the transient input of a single search.
type UserProfile struct {
	Skills      []string    `json:"skills" mapstructure:"skills"`
	Preferences Preferences `json:"preferences" mapstructure:"preferences"`
}

// NewProfile builds a profile from comma separated form values.
func NewProfile(skills, roles, locations, experience string) UserProfile {
	return UserProfile{
		Skills: SplitList(skills),
		Preferences: Preferences{
			Roles:      SplitList(roles),
			Locations:  SplitList(locations),
			Experience: strings.TrimSpace(experience),
		},
	}
}

// Clean trims every entry and drops the empty ones.
func (p UserProfile) Clean() UserProfile {
	return UserProfile{
		Skills: cleanList(p.Skills),
		Preferences: Preferences{
			Roles:      cleanList(p.Preferences.Roles),
			Locations:  cleanList(p.Preferences.Locations),
			Experience: strings.TrimSpace(p.Preferences.Experience),
		},
	}
}

// Validate requires skills, roles and locations.
func (p UserProfile) Validate() error {
	var missing []string
	if len(cleanList(p.Skills)) == 0 {
		missing = append(missing, "skills")
	}
	if len(cleanList(p.Preferences.Roles)) == 0 {
		missing = append(missing, "roles")
	}
	if len(cleanList(p.Preferences.Locations)) == 0 {
		missing = append(missing, "locations")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// WantsRemote reports whether any requested location denotes remote work.
func (p UserProfile) WantsRemote() bool {
	for _, loc := range p.Preferences.Locations {
		if IsRemoteText(loc) {
			return true
		}
	}
	return false
}

// SplitList splits a comma separated value, trimming entries and dropping
// empty ones.
func SplitList(value string) []string {
	return cleanList(strings.Split(value, ","))
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
