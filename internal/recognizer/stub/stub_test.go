package stub_test

import (
	"context"
	"testing"

	"github.com/kiranshivaraju/facequeue/internal/recognizer/stub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecognize_ReturnsUnknownWithBasename(t *testing.T) {
	label, err := stub.New().Recognize(context.Background(), "/tmp/job-123_face.jpg")
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN:job-123_face.jpg", label)
}
