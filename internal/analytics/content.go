package analytics

import (
	"context"
	"sort"

	"github.com/Zachkp/folio/internal/model"
	"github.com/Zachkp/folio/internal/repository"
)

type TechCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ContentStats is the content overview on the admin dashboard.
type ContentStats struct {
	Projects    int `json:"projects"`
	Posts       int `json:"posts"`
	Experiences int `json:"experiences"`
	Skills      int `json:"skills"`

	RecentPosts     []model.BlogPost `json:"recent_posts"`
	RecentProjects  []model.Project  `json:"recent_projects"`
	TopTechnologies []TechCount      `json:"top_technologies"`
}

const (
	recentLimit = 3
	topTechs    = 5
)

// Content reads every collection and summarizes it.
func Content(ctx context.Context, repos *repository.Repositories) (*ContentStats, error) {
	projects, err := repos.Projects.List(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := repos.Posts.List(ctx)
	if err != nil {
		return nil, err
	}
	experiences, err := repos.Experiences.List(ctx)
	if err != nil {
		return nil, err
	}
	skills, err := repos.Skills.List(ctx)
	if err != nil {
		return nil, err
	}

	var techs [][]string
	for _, p := range projects {
		techs = append(techs, p.Technologies)
	}
	for _, w := range experiences {
		techs = append(techs, w.Technologies)
	}

	return &ContentStats{
		Projects:        len(projects),
		Posts:           len(posts),
		Experiences:     len(experiences),
		Skills:          len(skills),
		RecentPosts:     posts[:min(recentLimit, len(posts))],
		RecentProjects:  projects[:min(recentLimit, len(projects))],
		TopTechnologies: TopTechnologies(techs, topTechs),
	}, nil
}

// TopTechnologies counts each literal technology name and returns the n
// most used, ties broken by name.
func TopTechnologies(lists [][]string, n int) []TechCount {
	counts := make(map[string]int)
	for _, list := range lists {
		for _, t := range list {
			if t != "" {
				counts[t]++
			}
		}
	}
	out := make([]TechCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, TechCount{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
