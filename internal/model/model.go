// Package model holds the content records shown on the public site and
// edited from the admin panel.
package model

// Present is the end date sentinel for a job that is still ongoing.
const Present = "Present"

// SingletonID is the fixed document id of ContactInfo and ProfileData.
const SingletonID = "main"

// Collection names in the document store.
const (
	ProjectsCollection    = "projects"
	PostsCollection       = "posts"
	ExperiencesCollection = "experiences"
	SkillsCollection      = "skills"
	ContactCollection     = "contactInfo"
	ProfileCollection     = "profileContent"
)

type Project struct {
	ID           string   `json:"id,omitempty" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description" yaml:"description"`
	Technologies []string `json:"technologies" yaml:"technologies"`
	ImageURL     string   `json:"imageUrl" yaml:"imageUrl" validate:"omitempty,asseturl"`
	DemoURL      string   `json:"demoUrl" yaml:"demoUrl" validate:"omitempty,url"`
	GithubURL    string   `json:"githubUrl" yaml:"githubUrl" validate:"omitempty,url"`
	StartDate    string   `json:"startDate" yaml:"startDate"`
	FinishDate   string   `json:"finishDate" yaml:"finishDate"`
	IsPresent    bool     `json:"isPresent" yaml:"isPresent"`
}

type BlogPost struct {
	ID       string   `json:"id,omitempty" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Content  string   `json:"content" yaml:"content"`
	Date     string   `json:"date" yaml:"date"`
	Author   string   `json:"author" yaml:"author"`
	Tags     []string `json:"tags" yaml:"tags"`
	ImageURL string   `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty" validate:"omitempty,asseturl"`
}

type WorkExperience struct {
	ID           string   `json:"id,omitempty" yaml:"id"`
	Company      string   `json:"company" yaml:"company"`
	Position     string   `json:"position" yaml:"position"`
	StartDate    string   `json:"startDate" yaml:"startDate"`
	EndDate      string   `json:"endDate" yaml:"endDate"`
	Description  []string `json:"description" yaml:"description"`
	Technologies []string `json:"technologies" yaml:"technologies"`
}

// Skill proficiency is optional; nil means it is not shown.
type Skill struct {
	ID          string `json:"id,omitempty" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Proficiency *int   `json:"proficiency,omitempty" yaml:"proficiency,omitempty" validate:"omitempty,min=0,max=100"`
}

type ContactInfo struct {
	Email       string            `json:"email" yaml:"email" validate:"omitempty,email"`
	Phone       string            `json:"phone" yaml:"phone"`
	Location    string            `json:"location" yaml:"location"`
	SocialMedia map[string]string `json:"socialMedia" yaml:"socialMedia" validate:"dive,omitempty,url"`
}

type ProfileData struct {
	Name         string `json:"name" yaml:"name"`
	JobTitle     string `json:"jobTitle" yaml:"jobTitle"`
	Introduction string `json:"introduction" yaml:"introduction"`
	PhotoURL     string `json:"photoURL" yaml:"photoURL" validate:"omitempty,asseturl"`
}
