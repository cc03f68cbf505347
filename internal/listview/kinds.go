package listview

import "github.com/Zachkp/folio/internal/model"

// Projects search title and description and facet on technologies.
var Projects = Accessors[model.Project]{
	Text:   func(p model.Project) []string { return []string{p.Title, p.Description} },
	Facets: func(p model.Project) []string { return p.Technologies },
}

// Posts search title and content and facet on tags.
var Posts = Accessors[model.BlogPost]{
	Text:   func(b model.BlogPost) []string { return []string{b.Title, b.Content} },
	Facets: func(b model.BlogPost) []string { return b.Tags },
}

// Experiences search company, position and description lines and facet on
// technologies.
var Experiences = Accessors[model.WorkExperience]{
	Text: func(w model.WorkExperience) []string {
		return append([]string{w.Company, w.Position}, w.Description...)
	},
	Facets: func(w model.WorkExperience) []string { return w.Technologies },
}

// Skills search the name and facet on category.
var Skills = Accessors[model.Skill]{
	Text:   func(s model.Skill) []string { return []string{s.Name} },
	Facets: func(s model.Skill) []string { return []string{s.Category} },
}
