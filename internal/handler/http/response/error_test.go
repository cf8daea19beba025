package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/statutory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError_DomainTypes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		details map[string]string
	}{
		{
			name:    "broken clock record",
			err:     fmt.Errorf("clock: %w", &attendance.DataInconsistencyError{RecordID: "r1", Detail: "clock-out before clock-in"}),
			status:  http.StatusConflict,
			code:    "CONFLICT",
			details: map[string]string{"record_id": "r1"},
		},
		{
			name:    "broken payroll source",
			err:     &payroll.DataInconsistencyError{Source: "claim", Detail: "amount missing"},
			status:  http.StatusConflict,
			code:    "CONFLICT",
			details: map[string]string{"source": "claim"},
		},
		{
			name:    "bad birth date",
			err:     fmt.Errorf("epf: %w", &statutory.InvalidAgeError{Age: -3}),
			status:  http.StatusBadRequest,
			code:    "BAD_REQUEST",
			details: map[string]string{"age": "-3"},
		},
		{
			name:   "unknown",
			err:    fmt.Errorf("disk on fire"),
			status: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code == "" {
				return
			}
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.details, body.Error.Details)
		})
	}
}
