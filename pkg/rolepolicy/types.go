package rolepolicy

import (
	"slices"
	"time"
)

// Level is how strongly a role is pushed towards MFA.
type Level string

const (
	LevelOptional    Level = "optional"
	LevelRecommended Level = "recommended"
	LevelRequired    Level = "required"
)

// DefaultGracePeriod is how long a new account in a required role may work without MFA.
const DefaultGracePeriod = 24 * time.Hour

// Policy maps roles to enforcement levels.
type Policy struct {
	RequiredRoles    []string
	RecommendedRoles []string
	GracePeriod      time.Duration
}

func (p Policy) Validate() error {
	if p.GracePeriod < 0 {
		return ErrNegativeGrace
	}
	return nil
}

// compiled is the lookup form of a Policy. It is never mutated after construction.
type compiled struct {
	levels      map[string]Level
	gracePeriod time.Duration
	policy      Policy
}

func compile(p Policy) *compiled {
	c := &compiled{
		levels:      make(map[string]Level, len(p.RequiredRoles)+len(p.RecommendedRoles)),
		gracePeriod: p.GracePeriod,
		policy: Policy{
			RequiredRoles:    slices.Clone(p.RequiredRoles),
			RecommendedRoles: slices.Clone(p.RecommendedRoles),
			GracePeriod:      p.GracePeriod,
		},
	}
	for _, role := range p.RecommendedRoles {
		c.levels[role] = LevelRecommended
	}
	// required wins when a role is listed twice
	for _, role := range p.RequiredRoles {
		c.levels[role] = LevelRequired
	}
	return c
}
