package repository

import (
	"context"

	"github.com/Zachkp/folio/internal/model"
)

// Snapshot is every collection read at once, for backups and exports.
type Snapshot struct {
	Projects    []model.Project        `json:"projects" yaml:"projects"`
	Posts       []model.BlogPost       `json:"posts" yaml:"posts"`
	Experiences []model.WorkExperience `json:"experiences" yaml:"experiences"`
	Skills      []model.Skill          `json:"skills" yaml:"skills"`
	Contact     *model.ContactInfo     `json:"contactInfo,omitempty" yaml:"contactInfo,omitempty"`
	Profile     *model.ProfileData     `json:"profileContent,omitempty" yaml:"profileContent,omitempty"`
}

func (r *Repositories) Snapshot(ctx context.Context) (*Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Projects, err = r.Projects.List(ctx); err != nil {
		return nil, err
	}
	if snap.Posts, err = r.Posts.List(ctx); err != nil {
		return nil, err
	}
	if snap.Experiences, err = r.Experiences.List(ctx); err != nil {
		return nil, err
	}
	if snap.Skills, err = r.Skills.List(ctx); err != nil {
		return nil, err
	}

	contact, found, err := r.Contact.Get(ctx)
	if err != nil {
		return nil, err
	}
	if found {
		snap.Contact = &contact
	}
	profile, found, err := r.Profile.Get(ctx)
	if err != nil {
		return nil, err
	}
	if found {
		snap.Profile = &profile
	}
	return &snap, nil
}
