package web_test

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialora/dialora/pkg/web"
)

func TestStartExecutionRequest_Validation(t *testing.T) {
	t.Parallel()

	v := validator.New()

	tests := []struct {
		name      string
		request   web.StartExecutionRequest
		wantErr   bool
		errFields []string
	}{
		{
			name: "valid request",
			request: web.StartExecutionRequest{
				WorkflowID:     "greeting",
				UserID:         "user-1",
				ConversationID: "conv-1",
				Variables:      map[string]any{"userName": "Ada"},
			},
			wantErr: false,
		},
		{
			name: "valid without variables or chatbot override",
			request: web.StartExecutionRequest{
				WorkflowID:     "greeting",
				UserID:         "user-1",
				ConversationID: "conv-1",
			},
			wantErr: false,
		},
		{
			name: "missing workflow_id",
			request: web.StartExecutionRequest{
				UserID:         "user-1",
				ConversationID: "conv-1",
			},
			wantErr:   true,
			errFields: []string{"WorkflowID"},
		},
		{
			name: "missing user_id",
			request: web.StartExecutionRequest{
				WorkflowID:     "greeting",
				ConversationID: "conv-1",
			},
			wantErr:   true,
			errFields: []string{"UserID"},
		},
		{
			name: "missing conversation_id",
			request: web.StartExecutionRequest{
				WorkflowID: "greeting",
				UserID:     "user-1",
			},
			wantErr:   true,
			errFields: []string{"ConversationID"},
		},
		{
			name:      "multiple validation errors",
			request:   web.StartExecutionRequest{},
			wantErr:   true,
			errFields: []string{"WorkflowID", "UserID", "ConversationID"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Struct(tt.request)

			if !tt.wantErr {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)

			var validationErrors validator.ValidationErrors

			require.True(t, errors.As(err, &validationErrors), "expected validator.ValidationErrors, got %T", err)

			errorFields := make(map[string]bool)
			for _, fieldErr := range validationErrors {
				errorFields[fieldErr.Field()] = true
			}

			for _, expectedField := range tt.errFields {
				assert.True(t, errorFields[expectedField], "expected validation error for field %s", expectedField)
			}
		})
	}
}

func TestResumeExecutionRequest_AcceptsAnyInput(t *testing.T) {
	t.Parallel()

	v := validator.New()

	for _, input := range []any{"yes", float64(0), false, nil, map[string]any{"choice": 2}} {
		assert.NoError(t, v.Struct(web.ResumeExecutionRequest{Input: input}))
	}
}
