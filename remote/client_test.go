package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/recon/recon/remote"
	"golang.org/x/oauth2"
)

func TestClient_Create(t *testing.T) {
	var gotReq *http.Request
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "r-1", "status": "pending"}`))
	}))
	defer srv.Close()

	cli := &remote.Client{
		Endpoint: srv.URL,
		Tokens:   oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret"}),
	}
	res, err := cli.Create(context.Background(), &remote.CreateRequest{
		Attrs: map[string]interface{}{"size": "small"},
		Name:  "server.web1",
		Token: "tok123",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if res.ID != "r-1" || res.Status != "pending" {
		t.Errorf("got %+v, want id r-1 status pending", res)
	}
	if gotReq.Method != http.MethodPost || gotReq.URL.Path != "/resources" {
		t.Errorf("got %s %s, want POST /resources", gotReq.Method, gotReq.URL.Path)
	}
	if got := gotReq.Header.Get("Idempotency-Key"); got != "server.web1/tok123" {
		t.Errorf("Idempotency-Key = %q", got)
	}
	if got := gotReq.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
		t.Errorf("Authorization = %q, want bearer credential", got)
	}
	if diff := cmp.Diff(map[string]interface{}{"size": "small"}, gotBody); diff != "" {
		t.Errorf("request body (-want +got)\n%s", diff)
	}
}

func TestClient_Read_notFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "no such resource"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	cli := &remote.Client{Endpoint: srv.URL}
	_, err := cli.Read(context.Background(), "r-404")
	if err == nil {
		t.Fatal("Read() should fail")
	}
	if !remote.IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
	if remote.Retryable(err) {
		t.Errorf("404 should not be retryable")
	}
	if !strings.Contains(err.Error(), "no such resource") {
		t.Errorf("error %q should carry the remote payload verbatim", err)
	}
}

func TestClient_Update(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		_, _ = w.Write([]byte(`{"id": "r-1", "status": "pending", "attributes": {"size": "large"}}`))
	}))
	defer srv.Close()

	cli := &remote.Client{Endpoint: srv.URL}
	res, err := cli.Update(context.Background(), "r-1", map[string]interface{}{"size": "large"})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/resources/r-1" {
		t.Errorf("got %s %s, want PATCH /resources/r-1", gotMethod, gotPath)
	}
	if res.Attrs["size"] != "large" {
		t.Errorf("attributes not decoded: %+v", res.Attrs)
	}
}

func TestClient_Delete(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantErr  bool
		notFound bool
	}{
		{name: "NoContent", status: http.StatusNoContent},
		{name: "AlreadyAbsent", status: http.StatusNotFound, wantErr: true, notFound: true},
		{name: "ServerError", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			cli := &remote.Client{Endpoint: srv.URL}
			err := cli.Delete(context.Background(), "r-1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Delete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.notFound && !remote.IsNotFound(err) {
				t.Errorf("IsNotFound(%v) = false", err)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		client    bool
		server    bool
		retryable bool
	}{
		{status: 400, client: true},
		{status: 403, client: true},
		{status: 404},
		{status: 409, client: true},
		{status: 500, server: true, retryable: true},
		{status: 503, server: true, retryable: true},
	}

	for _, tt := range tests {
		err := &remote.Error{Method: "GET", URL: "/resources/r-1", StatusCode: tt.status}
		if got := remote.IsClientError(err); got != tt.client {
			t.Errorf("IsClientError(%d) = %v", tt.status, got)
		}
		if got := remote.IsServerError(err); got != tt.server {
			t.Errorf("IsServerError(%d) = %v", tt.status, got)
		}
		if got := remote.Retryable(err); got != tt.retryable {
			t.Errorf("Retryable(%d) = %v", tt.status, got)
		}
	}
}
