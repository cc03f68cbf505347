package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/listview"
	"github.com/Zachkp/folio/internal/model"
	"github.com/Zachkp/folio/internal/repository"
)

func (s *Server) publicRoutes(r *gin.Engine) {
	r.GET("/", s.index)

	// HTMX fragments for the home page sections
	r.GET("/projects", s.projectsContent)
	r.GET("/skills-content", s.skillsContent)
	r.GET("/work-content", s.workContent)
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{"title": "Contact Me"})
	})
	r.POST("/contact", s.sendContact)

	r.GET("/blog", s.blog)
	r.GET("/blog/:id", s.post)

	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{"title": "Privacy Policy", "site": s.opts.Site})
	})
}

func (s *Server) index(c *gin.Context) {
	ctx := c.Request.Context()

	profile, _, profileErr := s.opts.Repos.Profile.Get(ctx)
	if profileErr != nil {
		s.logger.Printf("Error loading profile: %v", profileErr)
	}
	contactInfo, _, contactErr := s.opts.Repos.Contact.Get(ctx)
	if contactErr != nil {
		s.logger.Printf("Error loading contact info: %v", contactErr)
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"site":       s.opts.Site,
		"profile":    model.ProfileOrDefault(profile),
		"profileErr": profileErr,
		"contact":    contactInfo,
		"contactErr": contactErr,
		"live":       s.opts.Hub != nil,
	})
}

// fetchError renders the retry affordance for a failed read. It never
// renders an empty list in place of the data.
func (s *Server) fetchError(c *gin.Context, retryURL, target string, err error) {
	s.logger.Printf("Fetch failed for %s: %v", retryURL, err)
	c.HTML(http.StatusServiceUnavailable, "fetch-error.html", gin.H{
		"error":    err.Error(),
		"retryURL": retryURL,
		"target":   target,
	})
}

func listQuery(c *gin.Context, facetParam string, pageSize int) listview.Query {
	page, _ := strconv.Atoi(c.Query("page"))
	return listview.Query{
		Search:   strings.TrimSpace(c.Query("q")),
		Facet:    c.Query(facetParam),
		Page:     page,
		PageSize: pageSize,
	}
}

// Link is a rendered pagination or facet link.
type Link struct {
	Label  string
	URL    string
	Active bool
}

// Pager holds the links for one List View result. Only pages that exist
// are linked.
type Pager struct {
	Prev   string
	Next   string
	Pages  []Link
	Facets []Link
	All    Link
}

func listURL(base, facetParam string, q listview.Query, facet string, page int) string {
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if facet != "" {
		v.Set(facetParam, facet)
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return base
	}
	return base + "?" + v.Encode()
}

func newPager[T any](base, facetParam string, r listview.Result[T]) Pager {
	q := r.Query
	p := Pager{
		All: Link{Label: "All", URL: listURL(base, facetParam, q, "", 1), Active: q.Facet == ""},
	}
	if r.HasPrev() {
		p.Prev = listURL(base, facetParam, q, q.Facet, r.PrevPage())
	}
	if r.HasNext() {
		p.Next = listURL(base, facetParam, q, q.Facet, r.NextPage())
	}
	for _, n := range r.Pages {
		p.Pages = append(p.Pages, Link{
			Label:  strconv.Itoa(n),
			URL:    listURL(base, facetParam, q, q.Facet, n),
			Active: n == r.Page,
		})
	}
	for _, f := range r.Facets {
		p.Facets = append(p.Facets, Link{
			Label:  f,
			URL:    listURL(base, facetParam, q, f, 1),
			Active: f == q.Facet,
		})
	}
	return p
}

func (s *Server) projectsContent(c *gin.Context) {
	q := listQuery(c, "tech", s.opts.PageSize)
	items, err := s.opts.Repos.Projects.List(c.Request.Context())
	if err != nil {
		s.fetchError(c, c.Request.URL.RequestURI(), "#projects", err)
		return
	}
	res := listview.Apply(items, q, listview.Projects)
	c.HTML(http.StatusOK, "projects.html", gin.H{
		"result": res,
		"pager":  newPager("/projects", "tech", res),
	})
}

func (s *Server) skillsContent(c *gin.Context) {
	skills, err := s.opts.Repos.Skills.List(c.Request.Context())
	if err != nil {
		s.fetchError(c, "/skills-content", "#skills", err)
		return
	}
	c.HTML(http.StatusOK, "skills-content.html", gin.H{"groups": model.GroupSkills(skills)})
}

func (s *Server) workContent(c *gin.Context) {
	q := listQuery(c, "tech", 100)
	experiences, err := s.opts.Repos.Experiences.List(c.Request.Context())
	if err != nil {
		s.fetchError(c, c.Request.URL.RequestURI(), "#work", err)
		return
	}
	res := listview.Apply(experiences, q, listview.Experiences)
	c.HTML(http.StatusOK, "work-content.html", gin.H{
		"result": res,
		"pager":  newPager("/work-content", "tech", res),
	})
}

func (s *Server) blog(c *gin.Context) {
	q := listQuery(c, "tag", s.opts.PageSize)
	posts, err := s.opts.Repos.Posts.List(c.Request.Context())
	if err != nil {
		if c.GetHeader("HX-Request") == "true" {
			s.fetchError(c, c.Request.URL.RequestURI(), "#posts", err)
			return
		}
		s.logger.Printf("Error loading posts: %v", err)
		c.HTML(http.StatusServiceUnavailable, "blog.html", gin.H{
			"site":     s.opts.Site,
			"fetchErr": err.Error(),
			"retryURL": c.Request.URL.RequestURI(),
		})
		return
	}

	res := listview.Apply(posts, q, listview.Posts)
	data := gin.H{
		"site":   s.opts.Site,
		"result": res,
		"pager":  newPager("/blog", "tag", res),
		"live":   s.opts.Hub != nil,
	}
	if c.GetHeader("HX-Request") == "true" {
		c.HTML(http.StatusOK, "blog-list.html", data)
		return
	}
	c.HTML(http.StatusOK, "blog.html", data)
}

func (s *Server) post(c *gin.Context) {
	post, err := s.opts.Repos.Posts.GetOne(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.HTML(http.StatusNotFound, "not-found.html", gin.H{"site": s.opts.Site})
		return
	}
	if err != nil {
		s.logger.Printf("Error loading post: %v", err)
		c.HTML(http.StatusServiceUnavailable, "post.html", gin.H{
			"site":     s.opts.Site,
			"fetchErr": err.Error(),
			"retryURL": c.Request.URL.RequestURI(),
		})
		return
	}

	body, err := s.opts.Markdown.Render(post.Content)
	if err != nil {
		s.logger.Printf("Error rendering post %s: %v", post.ID, err)
	}
	c.HTML(http.StatusOK, "post.html", gin.H{
		"site": s.opts.Site,
		"post": post,
		"body": body,
	})
}

// Handle contact form submission with HTMX
func (s *Server) sendContact(c *gin.Context) {
	var msg contact.Message
	if err := c.ShouldBind(&msg); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, a valid email address and a message.",
		})
		return
	}
	if s.opts.Mailer == nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, the contact form is not available right now.",
		})
		return
	}
	if err := s.opts.Mailer.Send(msg); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}

func (s *Server) apiCollection(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		data any
		err  error
	)
	switch c.Param("collection") {
	case model.ProjectsCollection:
		data, err = s.opts.Repos.Projects.List(ctx)
	case model.PostsCollection:
		data, err = s.opts.Repos.Posts.List(ctx)
	case model.ExperiencesCollection:
		data, err = s.opts.Repos.Experiences.List(ctx)
	case model.SkillsCollection:
		data, err = s.opts.Repos.Skills.List(ctx)
	case model.ContactCollection:
		data, _, err = s.opts.Repos.Contact.Get(ctx)
	case model.ProfileCollection:
		var p model.ProfileData
		p, _, err = s.opts.Repos.Profile.Get(ctx)
		data = model.ProfileOrDefault(p)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return
	}
	if err != nil {
		s.logger.Printf("API read failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, data)
}
