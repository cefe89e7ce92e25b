package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var fieldRules = map[string]string{
	"title":   "required,min=3,max=200",
	"content": "required,min=10",
	"author":  "required,min=2,max=100",
	"tags":    "max=10",
}

// Validate checks the post against the storage constraints and reports
// every violated field at once.
func (p *Post) Validate() error {
	var violations []Violation
	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return errors.WithStack(err)
		}
		for _, fe := range fieldErrs {
			violations = append(violations, newViolation(jsonName(fe.StructField()), fe.Tag(), fe.Param()))
		}
	}

	if p.CreatedAt.IsZero() {
		violations = append(violations, Violation{Field: "createdAt", Message: "Created at cannot be zero"})
	}

	if len(violations) > 0 {
		return NewValidationError(violations)
	}
	return nil
}

// Normalize trims the text fields the store keeps trimmed and replaces a
// nil tag list with an empty one.
func (p *Post) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Author = strings.TrimSpace(p.Author)
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

// BeforeCreate sets up the fields owned by the store before insertion.
func (p *Post) BeforeCreate(now time.Time) {
	p.Normalize()
	p.IsDeleted = false
	p.DeletedAt = nil
	p.CreatedAt = now
	p.UpdatedAt = now
}

// MarkDeleted flags the post as soft-deleted.
func (p *Post) MarkDeleted(now time.Time) {
	p.IsDeleted = true
	p.DeletedAt = &now
	p.UpdatedAt = now
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	c := *p
	if p.Tags != nil {
		c.Tags = append([]string{}, p.Tags...)
	}
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// IsEmpty reports whether the update changes nothing.
func (u *PostUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Author == nil && u.Tags == nil
}

// Normalize trims the supplied text fields the same way Post.Normalize does.
func (u *PostUpdate) Normalize() {
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		u.Title = &title
	}
	if u.Author != nil {
		author := strings.TrimSpace(*u.Author)
		u.Author = &author
	}
	if u.Tags != nil && *u.Tags == nil {
		tags := []string{}
		u.Tags = &tags
	}
}

// Validate checks only the fields the update sets.
func (u *PostUpdate) Validate() error {
	var violations []Violation
	check := func(field string, value interface{}) error {
		err := validate.Var(value, fieldRules[field])
		if err == nil {
			return nil
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return errors.WithStack(err)
		}
		for _, fe := range fieldErrs {
			violations = append(violations, newViolation(field, fe.Tag(), fe.Param()))
		}
		return nil
	}

	if u.Title != nil {
		if err := check("title", *u.Title); err != nil {
			return err
		}
	}
	if u.Content != nil {
		if err := check("content", *u.Content); err != nil {
			return err
		}
	}
	if u.Author != nil {
		if err := check("author", *u.Author); err != nil {
			return err
		}
	}
	if u.Tags != nil {
		if err := check("tags", *u.Tags); err != nil {
			return err
		}
	}

	if len(violations) > 0 {
		return NewValidationError(violations)
	}
	return nil
}

// ApplyTo merges the update into p and refreshes its modification time.
func (u *PostUpdate) ApplyTo(p *Post, now time.Time) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.Author != nil {
		p.Author = *u.Author
	}
	if u.Tags != nil {
		p.Tags = append([]string{}, (*u.Tags)...)
	}
	p.UpdatedAt = now
}

func newViolation(field, tag, param string) Violation {
	label := strings.ToUpper(field[:1]) + field[1:]
	var msg string
	switch tag {
	case "required":
		msg = label + " is required"
	case "min":
		msg = label + " must be at least " + param + " characters"
	case "max":
		if field == "tags" {
			msg = "Tags cannot exceed " + param + " items"
		} else {
			msg = label + " cannot exceed " + param + " characters"
		}
	default:
		msg = label + " is invalid"
	}
	return Violation{Field: field, Message: msg}
}

func jsonName(structField string) string {
	if structField == "" {
		return structField
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}
