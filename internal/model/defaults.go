package model

// DefaultProfile is shown in the hero section until a profile has been
// saved from the admin panel.
var DefaultProfile = ProfileData{
	Name:     "Your Name",
	JobTitle: "Software Developer",
	Introduction: `I love building software that's both useful and fun, and I'm always curious about how things work behind the scenes.
Most of my projects start with a simple idea and turn into a chance to learn something new, whether it's exploring a
different language, experimenting with tools, or solving tricky problems.`,
}

// ProfileOrDefault fills empty hero fields from DefaultProfile.
func ProfileOrDefault(p ProfileData) ProfileData {
	if p.Name == "" {
		p.Name = DefaultProfile.Name
	}
	if p.JobTitle == "" {
		p.JobTitle = DefaultProfile.JobTitle
	}
	if p.Introduction == "" {
		p.Introduction = DefaultProfile.Introduction
	}
	return p
}
