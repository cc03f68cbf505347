package repository

import (
	"github.com/Zachkp/folio/internal/model"
	"github.com/Zachkp/folio/internal/store"
)

// Repositories bundles the accessor for every content kind. It is built
// once by the composition root and handed to the admin managers and the
// public pages.
type Repositories struct {
	Projects    *Repository[model.Project]
	Posts       *Repository[model.BlogPost]
	Experiences *Repository[model.WorkExperience]
	Skills      *Repository[model.Skill]
	Contact     *Singleton[model.ContactInfo]
	Profile     *Singleton[model.ProfileData]
}

func NewRepositories(s store.Store) *Repositories {
	return &Repositories{
		// Ongoing projects first, then most recently finished.
		Projects: New[model.Project](s, model.ProjectsCollection,
			store.Desc("isPresent"), store.Desc("finishDate"), store.Desc("startDate")),
		Posts: New[model.BlogPost](s, model.PostsCollection,
			store.Desc("date")),
		Experiences: New[model.WorkExperience](s, model.ExperiencesCollection,
			store.Desc("startDate")),
		Skills: New[model.Skill](s, model.SkillsCollection,
			store.Asc("category"), store.Asc("name")),
		Contact: NewSingleton[model.ContactInfo](s, model.ContactCollection),
		Profile: NewSingleton[model.ProfileData](s, model.ProfileCollection),
	}
}
