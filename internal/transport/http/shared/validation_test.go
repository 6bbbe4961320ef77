package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonussim/internal/domain/bonus"
)

type child struct {
	Target *float64 `json:"target" validate:"required,gte=0"`
}

type parent struct {
	Name     string  `json:"name" validate:"max=3"`
	Children []child `json:"children" validate:"dive"`
}

func TestAddStructErrorsUsesJSONPaths(t *testing.T) {
	neg := -1.0
	err := NewStructValidator().Struct(parent{
		Name:     "too long",
		Children: []child{{Target: &neg}, {}},
	})
	require.Error(t, err)

	v := NewValidator()
	require.True(t, v.AddStructErrors(err))
	assert.Equal(t, []ValidationIssue{
		{Field: "children[0].target", Reason: "must be >= 0"},
		{Field: "children[1].target", Reason: "is required"},
		{Field: "name", Reason: "must be at most 3 characters"},
	}, v.Issues())
}

func TestAddStructErrorsIgnoresOtherErrors(t *testing.T) {
	v := NewValidator()
	assert.False(t, v.AddStructErrors(assert.AnError))
	assert.False(t, v.HasIssues())
}

func TestRejectWritesValidationEnvelope(t *testing.T) {
	v := NewValidator()
	v.AddFieldErrors("record", []bonus.FieldError{{Field: "monthlySalary", Reason: "must not be negative"}})

	rec := httptest.NewRecorder()
	require.True(t, v.Reject(rec, "req-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-1", body["requestId"])
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "validation_error", errBody["code"])
	fields := errBody["details"].(map[string]any)["fields"].([]any)
	assert.Equal(t, "record.monthlySalary", fields[0].(map[string]any)["field"])
}

func TestParsePagination(t *testing.T) {
	v := NewValidator()
	page := ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=500", nil), v, 20, 100)
	assert.Equal(t, Pagination{Limit: 100, Offset: 0}, page)
	assert.False(t, v.HasIssues())

	page = ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=5&offset=10", nil), v, 20, 100)
	assert.Equal(t, Pagination{Limit: 5, Offset: 10}, page)

	page = ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=abc&offset=-3", nil), v, 20, 100)
	assert.Equal(t, Pagination{Limit: 20, Offset: 0}, page)
	assert.Equal(t, []ValidationIssue{
		{Field: "limit", Reason: "must be a positive integer"},
		{Field: "offset", Reason: "must be a non-negative integer"},
	}, v.Issues())
}
