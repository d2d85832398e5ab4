package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	t.Run("valid document", func(t *testing.T) {
		doc := map[string]interface{}{
			"endpoint": map[string]interface{}{"base_url": "http://localhost:8080"},
			"stream":   map[string]interface{}{"max_attempts": 3, "base_delay": "500ms"},
			"logging":  map[string]interface{}{"level": "debug"},
			"custom":   map[string]interface{}{"anything": true},
		}
		assert.NoError(t, v.Validate(doc))
	})

	t.Run("unknown key in section", func(t *testing.T) {
		doc := map[string]interface{}{
			"stream": map[string]interface{}{"retries": 3},
		}
		err := v.Validate(doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "/stream")
	})

	t.Run("wrong type", func(t *testing.T) {
		doc := map[string]interface{}{
			"stream": map[string]interface{}{"max_attempts": "five"},
		}
		err := v.Validate(doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "/stream/max_attempts")

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, "/stream/max_attempts", verr.Violations[0].Path)
	})

	t.Run("minimum attempts", func(t *testing.T) {
		doc := map[string]interface{}{
			"stream": map[string]interface{}{"max_attempts": 0},
		}
		assert.Error(t, v.Validate(doc))
	})

	t.Run("logging preset enum", func(t *testing.T) {
		doc := map[string]interface{}{
			"logging": map[string]interface{}{
				"format": map[string]interface{}{"preset": "fancy"},
			},
		}
		assert.Error(t, v.Validate(doc))
	})
}

func TestDefaultIsShared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestRaw(t *testing.T) {
	assert.Contains(t, string(Raw()), "slotsync Configuration")
}
