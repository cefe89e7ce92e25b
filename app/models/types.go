package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Post represents a blog post stored as a single document.
type Post struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Title     string             `json:"title" bson:"title" validate:"required,min=3,max=200"`
	Content   string             `json:"content" bson:"content" validate:"required,min=10"`
	Author    string             `json:"author" bson:"author" validate:"required,min=2,max=100"`
	Tags      []string           `json:"tags" bson:"tags" validate:"max=10"`
	IsDeleted bool               `json:"isDeleted" bson:"isDeleted"`
	DeletedAt *time.Time         `json:"deletedAt" bson:"deletedAt"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// PostUpdate is a set of field replacements for an existing post.
// Nil fields are left untouched.
type PostUpdate struct {
	Title   *string
	Content *string
	Author  *string
	Tags    *[]string
}

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
