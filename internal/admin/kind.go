package admin

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldType selects the input rendered for a field.
type FieldType string

const (
	Text     FieldType = "text"
	TextArea FieldType = "textarea"
	Date     FieldType = "date"
	URL      FieldType = "url"
	Email    FieldType = "email"
	Number   FieldType = "number"
	Checkbox FieldType = "checkbox"
	Select   FieldType = "select"
	Hidden   FieldType = "hidden"
	File     FieldType = "file"
)

type Option struct {
	Value string
	Label string
}

// Field describes one input of an edit form.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool

	// RequiredUnless names a checkbox that lifts Required when checked.
	RequiredUnless string

	Help    string
	Rows    int
	Options []Option
}

// Row is the summary of an item in the admin list.
type Row struct {
	ID       string
	Title    string
	Subtitle string
	Body     string
	ImageURL string
	Tags     []string
}

// Kind is everything an admin manager needs to know about one content
// kind: its form layout and the conversions between records and forms.
type Kind[T any] struct {
	Name     string
	Singular string
	Title    string
	Fields   []Field

	// ImageField is the form field carrying the current asset URL. Empty
	// for kinds without images.
	ImageField string

	Blank    func() Form
	ToForm   func(T) Form
	FromForm func(Form) (T, error)
	Row      func(T) Row

	// Asset accessors, used by singleton managers.
	AssetOf   func(T) string
	WithAsset func(T, string) T
}

// KindInfo is the template-facing description of a kind.
type KindInfo struct {
	Name     string
	Singular string
	Title    string
	Fields   []Field
	HasImage bool
}

func (k *Kind[T]) Info() KindInfo {
	return KindInfo{
		Name:     k.Name,
		Singular: k.Singular,
		Title:    k.Title,
		Fields:   k.Fields,
		HasImage: k.ImageField != "",
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("asseturl", isAssetURL)
	return v
}

// isAssetURL accepts an absolute http(s) URL or a site-rooted path such
// as the ones the local bucket hands out.
func isAssetURL(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.HasPrefix(s, "/") {
		return !strings.HasPrefix(s, "//") && !strings.ContainsAny(s, " \t\n")
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// check runs every client-side rule: required fields first, then the
// record conversion, then struct tag validation of the result.
func (k *Kind[T]) check(form Form) (T, error) {
	var zero T
	verr := &ValidationError{}
	for _, f := range k.Fields {
		if !f.Required {
			continue
		}
		if f.RequiredUnless != "" && form.Checked(f.RequiredUnless) {
			continue
		}
		if strings.TrimSpace(form[f.Name]) == "" {
			verr.add(f.Name, f.Label+" is required")
		}
	}
	if err := verr.orNil(); err != nil {
		return zero, err
	}

	v, err := k.FromForm(form)
	if err != nil {
		return zero, err
	}

	if err := validate.Struct(v); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return zero, err
		}
		for _, fe := range ves {
			name, _, _ := strings.Cut(fe.Field(), "[")
			verr.add(name, fieldMessage(fe))
		}
		return zero, verr
	}
	return v, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "url":
		return "must be a valid URL"
	case "asseturl":
		return "must be a URL or a path starting with /"
	case "email":
		return "must be a valid email address"
	case "min", "max":
		return "must be between 0 and 100"
	default:
		return "is invalid"
	}
}
