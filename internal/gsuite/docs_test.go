package gsuite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentID(t *testing.T) {
	id, err := DocumentID("https://docs.google.com/document/d/abc_123-XY/edit")
	require.NoError(t, err)
	assert.Equal(t, "abc_123-XY", id)

	id, err = DocumentID("https://docs.google.com/document/d/q9z/edit?usp=sharing")
	require.NoError(t, err)
	assert.Equal(t, "q9z", id)
}

func TestDocumentID_NoMatch(t *testing.T) {
	_, err := DocumentID("https://example.com/not-a-doc")
	require.Error(t, err)
}
