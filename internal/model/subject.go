package model

import "fmt"

// SubjectKind distinguishes per-child feeds from the town/district feed
type SubjectKind string

const (
	SubjectChild SubjectKind = "child"
	SubjectTown  SubjectKind = "town"
)

// Subject is one mail feed processed per run: a child or the town
type Subject struct {
	Kind  SubjectKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Name  string      `json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Grade string      `json:"grade,omitempty" yaml:"grade,omitempty" mapstructure:"grade" validate:"required_if=Kind child"`
	Label string      `json:"gmail_label" yaml:"gmail_label" mapstructure:"gmail_label" validate:"required"`
	Emoji string      `json:"emoji,omitempty" yaml:"emoji,omitempty" mapstructure:"emoji"`
}

// IsTown reports whether the subject is the town-wide feed
func (s Subject) IsTown() bool {
	return s.Kind == SubjectTown
}

// DisplayName is used in log lines and chat headers
func (s Subject) DisplayName() string {
	if s.IsTown() {
		return s.Name
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.Grade)
}

// TitlePrefix is prepended to event titles in invites and digests
func (s Subject) TitlePrefix() string {
	return s.Name + ": "
}
