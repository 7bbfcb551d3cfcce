package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowmap/internal/errors"
)

func TestRecordClone_IsDeep(t *testing.T) {
	original := Record{
		"id":   int64(1),
		"tags": []any{"a", "b"},
		"meta": map[string]any{"k": "v"},
	}

	clone := original.Clone()
	clone["id"] = int64(2)
	clone["tags"].([]any)[0] = "z"
	clone["meta"].(map[string]any)["k"] = "changed"

	assert.Equal(t, int64(1), original["id"])
	assert.Equal(t, "a", original["tags"].([]any)[0])
	assert.Equal(t, "v", original["meta"].(map[string]any)["k"])
}

func TestRecordClone_Nil(t *testing.T) {
	var r Record
	assert.Nil(t, r.Clone())
}

func TestRecordKeys_Sorted(t *testing.T) {
	r := Record{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, r.Keys())
}

func TestEntity_Associations(t *testing.T) {
	author := NewEntity("users", Record{"id": int64(1), "name": "ada"})
	post := NewEntity("posts", Record{"id": int64(7), "user_id": int64(1)})

	assert.Equal(t, int64(7), post.ID())
	assert.Nil(t, post.One("user"))

	post.SetAssociation("user", author)
	author.SetAssociation("posts", []*Entity{post})

	assert.Same(t, author, post.One("user"))
	require.Len(t, author.Many("posts"), 1)
	assert.Equal(t, []string{"user"}, post.Loaded())

	post.SetAssociation("user", nil)
	v, ok := post.Association("user")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestEntity_AttributesIsCopy(t *testing.T) {
	e := NewEntity("users", Record{"name": "ada"})
	attrs := e.Attributes()
	attrs["name"] = "grace"

	v, _ := e.Get("name")
	assert.Equal(t, "ada", v)
}

func TestErrors_MatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"coercion", &CoercionError{Attribute: "id", Value: "abc", Type: "integer"}, ErrCoercion},
		{"not found", &RecordNotFoundError{Collection: "users", Key: int64(3)}, ErrRecordNotFound},
		{"duplicate", &DuplicateKeyError{Collection: "users", Key: int64(1)}, ErrDuplicateKey},
		{"missing key", &MissingKeyError{Association: "posts"}, ErrMissingKey},
		{"unbound", &UnboundRepositoryError{Association: "user"}, ErrUnboundRepository},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := errors.Wrap(tt.err, "context")
			assert.True(t, errors.Is(wrapped, tt.sentinel))
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestCoercionError_As(t *testing.T) {
	cause := fmt.Errorf("bad digit")
	err := errors.WithStack(&CoercionError{Attribute: "id", Value: "abc", Type: "integer", Cause: cause})

	var ce *CoercionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "id", ce.Attribute)
	assert.Equal(t, "abc", ce.Value)
	assert.Contains(t, err.Error(), "bad digit")
}
