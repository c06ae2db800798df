package rolepolicy

import (
	"context"
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source provides policy data.
type Source interface {
	Load(ctx context.Context) (Policy, error)
}

// StaticSource serves a fixed policy, typically built from environment configuration.
type StaticSource Policy

func (s StaticSource) Load(ctx context.Context) (Policy, error) {
	return Policy(s), nil
}

// FileSource reads the policy from a YAML file on every Load:
//
//	grace_period_hours: 24
//	required_roles: [Admin, Bereichsleiter]
//	recommended_roles: [Standortleiter]
type FileSource struct {
	Path string
}

type policyFile struct {
	GracePeriodHours *int     `yaml:"grace_period_hours"`
	RequiredRoles    []string `yaml:"required_roles"`
	RecommendedRoles []string `yaml:"recommended_roles"`
}

func (s FileSource) Load(ctx context.Context) (Policy, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Policy{}, errors.Join(ErrFailedToReadPolicy, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a policy document. A missing grace period takes the default.
func ParseYAML(data []byte) (Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Policy{}, errors.Join(ErrInvalidPolicyFile, err)
	}

	p := Policy{
		RequiredRoles:    f.RequiredRoles,
		RecommendedRoles: f.RecommendedRoles,
		GracePeriod:      DefaultGracePeriod,
	}
	if f.GracePeriodHours != nil {
		p.GracePeriod = time.Duration(*f.GracePeriodHours) * time.Hour
	}
	if err := p.Validate(); err != nil {
		return Policy{}, errors.Join(ErrInvalidPolicyFile, err)
	}
	return p, nil
}
