// internal/common/zoho/crm_test.go
package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRMClient_CreateLead(t *testing.T) {
	var body map[string][]Lead
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Leads", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","status":"success","details":{"id":"555"}}]}`))
	}))
	defer srv.Close()

	client := NewCRMClient(srv.URL, "tok")
	id, err := client.CreateLead(context.Background(), &Lead{Email: "guest@example.com", Source: "AI Estimate"})
	require.NoError(t, err)
	assert.Equal(t, "555", id)
	require.Len(t, body["data"], 1)
	assert.Equal(t, "Guest", body["data"][0].LastName)
	assert.Equal(t, "AI Estimate", body["data"][0].Source)
}

func TestCRMClient_CreateLead_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"code":"DUPLICATE_DATA","status":"error","message":"duplicate data"}]}`))
	}))
	defer srv.Close()

	_, err := NewCRMClient(srv.URL, "tok").CreateLead(context.Background(), &Lead{LastName: "Kim"})
	assert.ErrorContains(t, err, "duplicate data")
}

func TestCRMClient_CreateLead_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"INVALID_TOKEN"}`))
	}))
	defer srv.Close()

	_, err := NewCRMClient(srv.URL, "bad").CreateLead(context.Background(), &Lead{LastName: "Kim"})
	assert.ErrorContains(t, err, "401")
}

func TestSplitName(t *testing.T) {
	tests := []struct{ in, first, last string }{
		{"", "", ""},
		{"Minji", "", "Minji"},
		{"Kim Min Ji", "Kim Min", "Ji"},
	}
	for _, tt := range tests {
		first, last := SplitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}
