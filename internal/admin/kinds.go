package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/Zachkp/folio/internal/model"
)

func ProjectKind() *Kind[model.Project] {
	return &Kind[model.Project]{
		Name:       model.ProjectsCollection,
		Singular:   "project",
		Title:      "Projects",
		ImageField: "imageUrl",
		Fields: []Field{
			{Name: "title", Label: "Title", Type: Text, Required: true},
			{Name: "description", Label: "Description", Type: TextArea, Required: true, Rows: 4},
			{Name: "technologies", Label: "Technologies", Type: Text, Required: true, Help: "Comma separated, e.g. Go, React"},
			{Name: "imageUrl", Label: "Image URL", Type: Text, Help: "Or upload an image below"},
			{Name: "demoUrl", Label: "Demo URL", Type: URL},
			{Name: "githubUrl", Label: "GitHub URL", Type: URL},
			{Name: "startDate", Label: "Start date", Type: Date, Required: true},
			{Name: "finishDate", Label: "Finish date", Type: Date, Required: true, RequiredUnless: "isPresent"},
			{Name: "isPresent", Label: "Ongoing", Type: Checkbox},
		},
		Blank: func() Form { return Form{} },
		ToForm: func(p model.Project) Form {
			f := Form{
				"title":        p.Title,
				"description":  p.Description,
				"technologies": JoinList(p.Technologies, CommaSep),
				"imageUrl":     p.ImageURL,
				"demoUrl":      p.DemoURL,
				"githubUrl":    p.GithubURL,
				"startDate":    p.StartDate,
				"finishDate":   p.FinishDate,
			}
			setChecked(f, "isPresent", p.IsPresent)
			return f
		},
		FromForm: func(f Form) (model.Project, error) {
			p := model.Project{
				Title:        strings.TrimSpace(f["title"]),
				Description:  strings.TrimSpace(f["description"]),
				Technologies: SplitList(f["technologies"], CommaSep),
				ImageURL:     strings.TrimSpace(f["imageUrl"]),
				DemoURL:      strings.TrimSpace(f["demoUrl"]),
				GithubURL:    strings.TrimSpace(f["githubUrl"]),
				StartDate:    strings.TrimSpace(f["startDate"]),
				IsPresent:    f.Checked("isPresent"),
			}
			if !p.IsPresent {
				p.FinishDate = strings.TrimSpace(f["finishDate"])
			}
			if len(p.Technologies) == 0 {
				return p, &ValidationError{Fields: map[string]string{"technologies": "Technologies is required"}}
			}
			return p, nil
		},
		Row: func(p model.Project) Row {
			return Row{
				ID:       p.ID,
				Title:    p.Title,
				Subtitle: p.StartDate + " to " + p.DisplayFinish(),
				Body:     p.Description,
				ImageURL: p.ImageURL,
				Tags:     p.Technologies,
			}
		},
	}
}

// PostKind stamps new posts with now() and author. Edits keep the stored
// date.
func PostKind(author string, now func() time.Time) *Kind[model.BlogPost] {
	return &Kind[model.BlogPost]{
		Name:       model.PostsCollection,
		Singular:   "post",
		Title:      "Blog Posts",
		ImageField: "imageUrl",
		Fields: []Field{
			{Name: "title", Label: "Title", Type: Text, Required: true},
			{Name: "content", Label: "Content", Type: TextArea, Required: true, Rows: 14, Help: "Markdown"},
			{Name: "tags", Label: "Tags", Type: Text, Help: "Comma separated"},
			{Name: "imageUrl", Label: "Image URL", Type: Text},
			{Name: "date", Type: Hidden},
			{Name: "author", Type: Hidden},
		},
		Blank: func() Form { return Form{} },
		ToForm: func(b model.BlogPost) Form {
			return Form{
				"title":    b.Title,
				"content":  b.Content,
				"tags":     JoinList(b.Tags, CommaSep),
				"imageUrl": b.ImageURL,
				"date":     b.Date,
				"author":   b.Author,
			}
		},
		FromForm: func(f Form) (model.BlogPost, error) {
			b := model.BlogPost{
				Title:    strings.TrimSpace(f["title"]),
				Content:  f["content"],
				Tags:     SplitList(f["tags"], CommaSep),
				ImageURL: strings.TrimSpace(f["imageUrl"]),
				Date:     strings.TrimSpace(f["date"]),
				Author:   strings.TrimSpace(f["author"]),
			}
			if b.Date == "" {
				b.Date = now().UTC().Format(time.RFC3339)
			}
			if b.Author == "" {
				b.Author = author
			}
			return b, nil
		},
		Row: func(b model.BlogPost) Row {
			date := b.Date
			if t, err := time.Parse(time.RFC3339, b.Date); err == nil {
				date = t.Format("Jan 2, 2006")
			}
			return Row{
				ID:       b.ID,
				Title:    b.Title,
				Subtitle: date + " by " + b.Author,
				Body:     excerpt(b.Content, 160),
				ImageURL: b.ImageURL,
				Tags:     b.Tags,
			}
		},
	}
}

func ExperienceKind() *Kind[model.WorkExperience] {
	return &Kind[model.WorkExperience]{
		Name:     model.ExperiencesCollection,
		Singular: "experience",
		Title:    "Work Experience",
		Fields: []Field{
			{Name: "company", Label: "Company", Type: Text, Required: true},
			{Name: "position", Label: "Position", Type: Text, Required: true},
			{Name: "startDate", Label: "Start date", Type: Text, Required: true, Help: "e.g. 2023-05"},
			{Name: "endDate", Label: "End date", Type: Text, Required: true, Help: `A date or "Present"`},
			{Name: "description", Label: "Description", Type: TextArea, Required: true, Rows: 6, Help: "One point per line"},
			{Name: "technologies", Label: "Technologies", Type: Text, Help: "Comma separated"},
		},
		Blank: func() Form { return Form{"endDate": model.Present} },
		ToForm: func(w model.WorkExperience) Form {
			return Form{
				"company":      w.Company,
				"position":     w.Position,
				"startDate":    w.StartDate,
				"endDate":      w.EndDate,
				"description":  JoinList(w.Description, NewlineSep),
				"technologies": JoinList(w.Technologies, CommaSep),
			}
		},
		FromForm: func(f Form) (model.WorkExperience, error) {
			w := model.WorkExperience{
				Company:      strings.TrimSpace(f["company"]),
				Position:     strings.TrimSpace(f["position"]),
				StartDate:    strings.TrimSpace(f["startDate"]),
				EndDate:      strings.TrimSpace(f["endDate"]),
				Description:  SplitList(f["description"], NewlineSep),
				Technologies: SplitList(f["technologies"], CommaSep),
			}
			if len(w.Description) == 0 {
				return w, &ValidationError{Fields: map[string]string{"description": "Description is required"}}
			}
			return w, nil
		},
		Row: func(w model.WorkExperience) Row {
			return Row{
				ID:       w.ID,
				Title:    w.Position,
				Subtitle: w.Company + ", " + w.StartDate + " to " + w.EndDate,
				Body:     strings.Join(w.Description, " "),
				Tags:     w.Technologies,
			}
		},
	}
}

func SkillKind() *Kind[model.Skill] {
	categories := make([]Option, len(model.SkillCategories))
	for i, key := range model.SkillCategories {
		categories[i] = Option{Value: key, Label: model.CategoryLabel(key)}
	}
	return &Kind[model.Skill]{
		Name:     model.SkillsCollection,
		Singular: "skill",
		Title:    "Skills",
		Fields: []Field{
			{Name: "name", Label: "Name", Type: Text, Required: true},
			{Name: "category", Label: "Category", Type: Select, Required: true, Options: categories},
			{Name: "proficiency", Label: "Proficiency (0-100)", Type: Number, Help: "Optional"},
		},
		Blank: func() Form { return Form{"category": model.SkillCategories[0]} },
		ToForm: func(s model.Skill) Form {
			f := Form{"name": s.Name, "category": s.Category, "proficiency": ""}
			if s.Proficiency != nil {
				f["proficiency"] = strconv.Itoa(*s.Proficiency)
			}
			return f
		},
		FromForm: func(f Form) (model.Skill, error) {
			s := model.Skill{
				Name:     strings.TrimSpace(f["name"]),
				Category: strings.TrimSpace(f["category"]),
			}
			if raw := strings.TrimSpace(f["proficiency"]); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil {
					return s, &ValidationError{Fields: map[string]string{"proficiency": "must be a whole number"}}
				}
				s.Proficiency = &n
			}
			return s, nil
		},
		Row: func(s model.Skill) Row {
			r := Row{ID: s.ID, Title: s.Name, Subtitle: model.CategoryLabel(s.Category)}
			if s.Proficiency != nil {
				r.Body = strconv.Itoa(*s.Proficiency) + "%"
			}
			return r
		},
	}
}

func ContactKind() *Kind[model.ContactInfo] {
	return &Kind[model.ContactInfo]{
		Name:     model.ContactCollection,
		Singular: "contact info",
		Title:    "Contact Info",
		Fields: []Field{
			{Name: "email", Label: "Email", Type: Email},
			{Name: "phone", Label: "Phone", Type: Text},
			{Name: "location", Label: "Location", Type: Text},
			{Name: "socialMedia", Label: "Social media", Type: TextArea, Rows: 5, Help: "One per line: platform = https://..."},
		},
		Blank: func() Form { return Form{} },
		ToForm: func(c model.ContactInfo) Form {
			return Form{
				"email":       c.Email,
				"phone":       c.Phone,
				"location":    c.Location,
				"socialMedia": JoinPairs(c.SocialMedia),
			}
		},
		FromForm: func(f Form) (model.ContactInfo, error) {
			pairs, bad := SplitPairs(f["socialMedia"])
			c := model.ContactInfo{
				Email:       strings.TrimSpace(f["email"]),
				Phone:       strings.TrimSpace(f["phone"]),
				Location:    strings.TrimSpace(f["location"]),
				SocialMedia: pairs,
			}
			if len(bad) > 0 {
				return c, &ValidationError{Fields: map[string]string{
					"socialMedia": "cannot read line " + strconv.Quote(bad[0]),
				}}
			}
			return c, nil
		},
		Row: func(c model.ContactInfo) Row {
			return Row{ID: model.SingletonID, Title: c.Email, Subtitle: c.Location}
		},
	}
}

func ProfileKind() *Kind[model.ProfileData] {
	return &Kind[model.ProfileData]{
		Name:       model.ProfileCollection,
		Singular:   "profile",
		Title:      "Profile",
		ImageField: "photoURL",
		Fields: []Field{
			{Name: "name", Label: "Name", Type: Text, Required: true},
			{Name: "jobTitle", Label: "Job title", Type: Text, Required: true},
			{Name: "introduction", Label: "Introduction", Type: TextArea, Required: true, Rows: 6},
			{Name: "photoURL", Label: "Photo URL", Type: Text, Help: "Or upload a photo below"},
		},
		Blank: func() Form { return Form{} },
		ToForm: func(p model.ProfileData) Form {
			return Form{
				"name":         p.Name,
				"jobTitle":     p.JobTitle,
				"introduction": p.Introduction,
				"photoURL":     p.PhotoURL,
			}
		},
		FromForm: func(f Form) (model.ProfileData, error) {
			return model.ProfileData{
				Name:         strings.TrimSpace(f["name"]),
				JobTitle:     strings.TrimSpace(f["jobTitle"]),
				Introduction: strings.TrimSpace(f["introduction"]),
				PhotoURL:     strings.TrimSpace(f["photoURL"]),
			}, nil
		},
		Row: func(p model.ProfileData) Row {
			return Row{ID: model.SingletonID, Title: p.Name, Subtitle: p.JobTitle, ImageURL: p.PhotoURL}
		},
		AssetOf:   func(p model.ProfileData) string { return p.PhotoURL },
		WithAsset: func(p model.ProfileData, u string) model.ProfileData { p.PhotoURL = u; return p },
	}
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
