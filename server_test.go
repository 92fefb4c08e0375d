package referral

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := NewServer(context.Background(), newTestDirectory(t), WithAllowedOrigins([]string{"*"}))
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, b
}

func errorMessage(t *testing.T, b []byte) string {
	t.Helper()
	var e errorResponse
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("decode error body %q: %v", b, err)
	}
	return e.Error
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

const doctorA = `{
	"name": "Dr. A",
	"specialty": "Cardiology",
	"address": "1 Rd",
	"phone": "555",
	"fax": "555",
	"takes_aetna": true
}`

func TestServer_DoctorLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp, b := doRequest(t, http.MethodPost, ts.URL+"/api/doctors", doctorA)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var created doctorResponse
	if err := json.Unmarshal(b, &created); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "Doctor added successfully", created.Message)
	if created.Doctor == nil {
		t.Fatalf("no doctor in %s", b)
	}
	id := created.Doctor.ID
	assert.True(t, created.Doctor.Insurance["aetna"])
	assert.False(t, created.Doctor.Insurance["cigna"])

	resp, b = doRequest(t, http.MethodGet, ts.URL+"/api/doctors?specialty=Cardiology&insurance=aetna", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var found []*Provider
	if err := json.Unmarshal(b, &found); err != nil {
		t.Fatal(err)
	}
	if assert.Len(t, found, 1) {
		assert.Equal(t, id, found[0].ID)
	}

	resp, b = doRequest(t, http.MethodPut, ts.URL+"/api/doctors/"+itoa(id), `{"fax": "X", "takes_cigna": true}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated doctorResponse
	if err := json.Unmarshal(b, &updated); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "Doctor updated successfully", updated.Message)
	if assert.NotNil(t, updated.Doctor) {
		assert.Equal(t, "X", updated.Doctor.Fax)
		assert.Equal(t, "Dr. A", updated.Doctor.Name)
		assert.True(t, updated.Doctor.Insurance["cigna"])
		assert.True(t, updated.Doctor.Insurance["aetna"])
	}

	resp, b = doRequest(t, http.MethodGet, ts.URL+"/api/doctors/all", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var all []*Provider
	if err := json.Unmarshal(b, &all); err != nil {
		t.Fatal(err)
	}
	assert.Len(t, all, 1)

	resp, b = doRequest(t, http.MethodDelete, ts.URL+"/api/doctors/"+itoa(id), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message": "Doctor deleted successfully"}`, string(b))

	resp, b = doRequest(t, http.MethodDelete, ts.URL+"/api/doctors/"+itoa(id), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, errorMessage(t, b))

	resp, b = doRequest(t, http.MethodGet, ts.URL+"/api/doctors/all", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(b))
}

func TestServer_Errors(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name         string
		method, path string
		body         string
		status       int
		msg          string
	}{
		{"query without insurance", http.MethodGet, "/api/doctors?specialty=Cardiology", "", http.StatusBadRequest, "both specialty and insurance are required"},
		{"query with unknown insurance", http.MethodGet, "/api/doctors?specialty=Cardiology&insurance=not_a_real_key", "", http.StatusBadRequest, "invalid insurance type"},
		{"create missing field", http.MethodPost, "/api/doctors", `{"name": "Dr. A"}`, http.StatusBadRequest, "specialty is required"},
		{"create unknown key", http.MethodPost, "/api/doctors", strings.Replace(doctorA, "takes_aetna", "takes_bogus", 1), http.StatusBadRequest, `unknown insurance key "bogus"`},
		{"create non-boolean flag", http.MethodPost, "/api/doctors", strings.Replace(doctorA, "true", `"yes"`, 1), http.StatusBadRequest, "takes_aetna must be a boolean"},
		{"create malformed json", http.MethodPost, "/api/doctors", `{"name":`, http.StatusBadRequest, ""},
		{"create non-object body", http.MethodPost, "/api/doctors", `[1, 2]`, http.StatusBadRequest, ""},
		{"update missing", http.MethodPut, "/api/doctors/999", `{"fax": "X"}`, http.StatusNotFound, "provider 999 not found"},
		{"update empty text", http.MethodPut, "/api/doctors/999", `{"fax": ""}`, http.StatusBadRequest, "fax must not be empty"},
		{"update non-numeric id", http.MethodPut, "/api/doctors/abc", `{"fax": "X"}`, http.StatusNotFound, ""},
		{"delete missing", http.MethodDelete, "/api/doctors/999", "", http.StatusNotFound, "provider 999 not found"},
		{"delete non-numeric id", http.MethodDelete, "/api/doctors/abc", "", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, b := doRequest(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			msg := errorMessage(t, b)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestServer_Catalogs(t *testing.T) {
	ts := newTestServer(t)

	resp, b := doRequest(t, http.MethodGet, ts.URL+"/api/insurances", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["carefirst","united_healthcare","aetna","cigna","bcbs","medicare","medicaid"]`, string(b))

	resp, b = doRequest(t, http.MethodGet, ts.URL+"/api/specialties", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var specialties []string
	if err := json.Unmarshal(b, &specialties); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, DefaultSpecialties(), specialties)
}

func TestServer_Ambient(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/insurances", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "http://example.com")
	cors, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	cors.Body.Close()
	assert.NotEmpty(t, cors.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "no-store", cors.Header.Get("Cache-Control"))

	doRequest(t, http.MethodGet, ts.URL+"/api/doctors?specialty=Cardiology&insurance=aetna", "")
	resp, b := doRequest(t, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "referral_http_requests_total")
	assert.Contains(t, string(b), `route="/api/doctors`)
	assert.Contains(t, string(b), "referral_query_results")
	assert.Contains(t, string(b), "referral_providers")
}

func TestNewServerWithConfig_Seeds(t *testing.T) {
	c, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	c.Seed.Enable = true
	s, err := NewServerWithConfig(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s)
	defer ts.Close()

	resp, b := doRequest(t, http.MethodGet, ts.URL+"/api/doctors/all", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var all []*Provider
	if err := json.Unmarshal(b, &all); err != nil {
		t.Fatal(err)
	}
	assert.Len(t, all, 6)
}

func TestServer_Run(t *testing.T) {
	c, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	c.Server.Addr = "127.0.0.1:0"
	s, err := NewServerWithConfig(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.Run(ctx))
}
