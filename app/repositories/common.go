package repositories

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"postsapi/app/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// Key prefixes for the embedded store
	PostKeyPrefix          = "post:"
	PostCreatedIndexPrefix = "idx:post:created:"
)

// Visible is the single soft-delete predicate shared by the scanning backends.
func Visible(post *models.Post) bool {
	return post != nil && !post.IsDeleted
}

// Matches reports whether the post's title or content contains search,
// ignoring case.
func Matches(post *models.Post, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(post.Title), needle) ||
		strings.Contains(strings.ToLower(post.Content), needle)
}

func postKey(id primitive.ObjectID) []byte {
	return []byte(PostKeyPrefix + id.Hex())
}

// createdIndexKey orders posts newest first when iterated ascending.
func createdIndexKey(post *models.Post) []byte {
	inverted := uint64(math.MaxInt64 - post.CreatedAt.UnixNano())
	var id [12]byte
	for i, b := range post.ID {
		id[i] = ^b
	}
	return []byte(fmt.Sprintf("%s%016x:%x", PostCreatedIndexPrefix, inverted, id))
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %v", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %v", err)
	}
	return nil
}
