// Package validation checks raw request payloads for posts before they reach
// the service layer.
package validation

import (
	"fmt"
	"strings"

	"postsapi/app/models"

	"github.com/go-playground/validator/v10"
)

// MaxTags is the largest number of tags a post may carry.
const MaxTags = 10

// Input is a decoded JSON request object.
type Input map[string]interface{}

type textRule struct {
	field string
	min   int
	max   int
}

var (
	validate = validator.New()

	textRules = []textRule{
		{field: "title", min: 3, max: 200},
		{field: "content", min: 10},
		{field: "author", min: 2, max: 100},
	}
)

// ValidateCreate checks a create payload. Every violation is reported.
func ValidateCreate(in Input) []models.Violation {
	return check(in, false)
}

// ValidateUpdate checks a full-update payload; the rules match creation.
func ValidateUpdate(in Input) []models.Violation {
	return check(in, false)
}

// ValidatePartialUpdate checks only the fields present in the payload.
func ValidatePartialUpdate(in Input) []models.Violation {
	return check(in, true)
}

func check(in Input, partial bool) []models.Violation {
	violations := []models.Violation{}
	for _, rule := range textRules {
		violations = append(violations, checkText(in, rule, partial)...)
	}
	if v, ok := checkTags(in, partial); !ok {
		violations = append(violations, v)
	}
	return violations
}

func checkText(in Input, rule textRule, partial bool) []models.Violation {
	raw, present := in[rule.field]
	if partial && !present {
		return nil
	}

	label := strings.ToUpper(rule.field[:1]) + rule.field[1:]
	s, isString := raw.(string)
	trimmed := strings.TrimSpace(s)

	var out []models.Violation
	if !isString || validate.Var(trimmed, fmt.Sprintf("min=%d", rule.min)) != nil {
		msg := fmt.Sprintf("%s is required and must be at least %d characters", label, rule.min)
		if partial {
			msg = fmt.Sprintf("%s must be at least %d characters", label, rule.min)
		}
		out = append(out, models.Violation{Field: rule.field, Message: msg})
	}
	if isString && rule.max > 0 && validate.Var(trimmed, fmt.Sprintf("max=%d", rule.max)) != nil {
		out = append(out, models.Violation{
			Field:   rule.field,
			Message: fmt.Sprintf("%s cannot exceed %d characters", label, rule.max),
		})
	}
	return out
}

func checkTags(in Input, partial bool) (models.Violation, bool) {
	raw, present := in["tags"]
	if !present || (raw == nil && !partial) {
		return models.Violation{}, true
	}

	violation := models.Violation{
		Field:   "tags",
		Message: fmt.Sprintf("Tags must be an array with max %d items", MaxTags),
	}
	list, ok := raw.([]interface{})
	if !ok || validate.Var(list, fmt.Sprintf("max=%d", MaxTags)) != nil {
		return violation, false
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return violation, false
		}
	}
	return models.Violation{}, true
}

// DecodePost builds a new post from a payload that passed ValidateCreate.
func DecodePost(in Input) *models.Post {
	post := &models.Post{}
	post.Title, _ = in["title"].(string)
	post.Content, _ = in["content"].(string)
	post.Author, _ = in["author"].(string)
	if list, ok := in["tags"].([]interface{}); ok {
		post.Tags = toStrings(list)
	}
	return post
}

// DecodeUpdate builds an update from the known fields present in a payload
// that passed ValidateUpdate or ValidatePartialUpdate. Unknown and
// store-owned keys are ignored.
func DecodeUpdate(in Input) *models.PostUpdate {
	update := &models.PostUpdate{}
	if s, ok := in["title"].(string); ok {
		update.Title = &s
	}
	if s, ok := in["content"].(string); ok {
		update.Content = &s
	}
	if s, ok := in["author"].(string); ok {
		update.Author = &s
	}
	if list, ok := in["tags"].([]interface{}); ok {
		tags := toStrings(list)
		update.Tags = &tags
	}
	return update
}

func toStrings(list []interface{}) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
