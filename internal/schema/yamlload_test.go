package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLBuildsSchema(t *testing.T) {
	doc := []byte(`
objects:
  - name: Post
    view: v_post
    fields:
      - {name: id, type: "ID!"}
      - {name: title, type: String}
      - {name: author, type: User}
      - {name: comments, type: "[Comment!]!"}
  - name: User
    view: v_user
    fields:
      - {name: id, type: "ID!"}
  - name: Comment
    view: v_comment
    fields:
      - {name: id, type: "ID!"}
operations:
  - {kind: query, name: posts, return_type: Post}
`)

	s, err := LoadYAML(doc)
	require.NoError(t, err)

	require.Contains(t, s.Objects, "Post")
	post := s.Objects["Post"]
	require.Len(t, post.Fields, 4)
	assert.Equal(t, "User", post.Fields[2].Type.TypeName())
	assert.True(t, post.Fields[2].Type.Kind == KindObject)

	commentsField := post.Fields[3]
	assert.Equal(t, KindNonNull, commentsField.Type.Kind)
	assert.Equal(t, "Comment", commentsField.Type.TypeName())

	require.NoError(t, s.Validate())
}

func TestLoadYAMLRejectsUnknownOperationKind(t *testing.T) {
	doc := []byte(`
objects:
  - name: Post
    fields: []
operations:
  - {kind: bogus, name: x, return_type: Post}
`)
	_, err := LoadYAML(doc)
	assert.Error(t, err)
}

func TestLoadYAMLFileMissing(t *testing.T) {
	_, err := LoadYAMLFile("/nonexistent/schema.yml")
	assert.Error(t, err)
}
