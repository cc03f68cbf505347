package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func (p Project) EntityID() string { return p.ID }
func (p Project) WithID(id string) Project { p.ID = id; return p }
func (p Project) AssetURL() string { return p.ImageURL }
func (p Project) WithAssetURL(u string) Project { p.ImageURL = u; return p }
func (b BlogPost) EntityID() string { return b.ID }
func (b BlogPost) WithID(id string) BlogPost { b.ID = id; return b }
func (b BlogPost) AssetURL() string { return b.ImageURL }
func (b BlogPost) WithAssetURL(u string) BlogPost { b.ImageURL = u; return b }

func (w WorkExperience) EntityID() string { return w.ID }
func (w WorkExperience) WithID(id string) WorkExperience { w.ID = id; return w }
func (w WorkExperience) AssetURL() string { return "" }
func (w WorkExperience) WithAssetURL(string) WorkExperience { return w }
func (s Skill) EntityID() string { return s.ID }
func (s Skill) WithID(id string) Skill { s.ID = id; return s }
func (s Skill) AssetURL() string { return "" }
func (s Skill) WithAssetURL(string) Skill { return s }

// Ongoing reports whether a job has no end date yet.
func (w WorkExperience) Ongoing() bool {
	return w.EndDate == "" || strings.EqualFold(w.EndDate, Present)
}

// DisplayFinish is the finish date as shown on the site. Ongoing projects
// ignore whatever finish date was stored.
func (p Project) DisplayFinish() string {
	if p.IsPresent {
		return Present
	}
	return p.FinishDate
}

// SkillCategories are the category keys offered by the admin form, in
// display order. The set is open: skills may carry other keys.
var SkillCategories = []string{"frontend", "backend", "devops", "genAi", "other"}

var categoryLabels = map[string]string{
	"frontend": "Frontend Development",
	"backend":  "Backend Development",
	"devops":   "DevOps & Infrastructure",
	"genAi":    "Generative AI",
	"other":    "Other",
}

// CategoryLabel returns the heading for a skill category key.
func CategoryLabel(key string) string {
	if label, ok := categoryLabels[key]; ok {
		return label
	}
	return cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(key))
}

// SkillGroup is one category of skills on the public page.
type SkillGroup struct {
	Key    string
	Label  string
	Skills []Skill
}

// GroupSkills groups skills by category. Known categories come first in
// SkillCategories order, unknown ones follow in order of first appearance.
func GroupSkills(skills []Skill) []SkillGroup {
	byKey := make(map[string]*SkillGroup)
	var order []string
	for _, s := range skills {
		g, ok := byKey[s.Category]
		if !ok {
			g = &SkillGroup{Key: s.Category, Label: CategoryLabel(s.Category)}
			byKey[s.Category] = g
			order = append(order, s.Category)
		}
		g.Skills = append(g.Skills, s)
	}

	groups := make([]SkillGroup, 0, len(order))
	for _, key := range SkillCategories {
		if g, ok := byKey[key]; ok {
			groups = append(groups, *g)
			delete(byKey, key)
		}
	}
	for _, key := range order {
		if g, ok := byKey[key]; ok {
			groups = append(groups, *g)
		}
	}
	return groups
}
