package stream

import (
	"testing"

	"github.com/grovetools/slotsync/errors"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    models.UpdateEvent
		wantErr bool
	}{
		{
			name:    "complete",
			payload: `{"id": 7, "currentCapacity": 3, "category": "yellow"}`,
			want:    models.UpdateEvent{ID: 7, CurrentCapacity: 3, Category: models.CategoryYellow},
		},
		{
			name:    "unknown category passes through",
			payload: `{"id": 7, "currentCapacity": 3, "category": "purple"}`,
			want:    models.UpdateEvent{ID: 7, CurrentCapacity: 3, Category: "purple"},
		},
		{
			name:    "zero capacity",
			payload: `{"id": 1, "currentCapacity": 0}`,
			want:    models.UpdateEvent{ID: 1},
		},
		{
			name:    "extra fields ignored",
			payload: ` {"id": 1, "currentCapacity": 2, "ts": 123} `,
			want:    models.UpdateEvent{ID: 1, CurrentCapacity: 2},
		},
		{name: "not json", payload: "hello", wantErr: true},
		{name: "array", payload: `[{"id":1,"currentCapacity":1}]`, wantErr: true},
		{name: "null", payload: "null", wantErr: true},
		{name: "empty", payload: "", wantErr: true},
		{name: "missing id", payload: `{"currentCapacity": 1}`, wantErr: true},
		{name: "missing capacity", payload: `{"id": 1}`, wantErr: true},
		{name: "wrong type", payload: `{"id": "one", "currentCapacity": 1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUpdate([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrCodePayloadInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
