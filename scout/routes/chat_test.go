package routes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFrameEscapesMessage(t *testing.T) {
	frame := errorFrame(`fetch "https://a.example" failed: 410 Gone`)
	require.True(t, json.Valid(frame))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(frame, &payload))
	assert.Equal(t, `fetch "https://a.example" failed: 410 Gone`, payload["error"])
}
