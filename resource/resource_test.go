package resource_test

import (
	"testing"

	"github.com/recon/recon/resource"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		str  string
		want resource.Status
	}{
		{"pending", resource.StatusPending},
		{"Ready", resource.StatusReady},
		{"READY", resource.StatusReady},
		{"Error", resource.StatusError},
		{"DELETING", resource.StatusDeleting},
		{"deleted", resource.StatusDeleted},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			got, err := resource.ParseStatus(tt.str)
			if err != nil {
				t.Fatalf("ParseStatus(%q) error: %v", tt.str, err)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %s, want %s", tt.str, got, tt.want)
			}
		})
	}
}

func TestParseStatus_unknown(t *testing.T) {
	if _, err := resource.ParseStatus("provisioning"); err == nil {
		t.Error("ParseStatus() returned nil error for an unknown status")
	}
}

func TestStatus_terminal(t *testing.T) {
	for _, s := range []resource.Status{resource.StatusReady, resource.StatusError, resource.StatusDeleted} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false", s)
		}
	}
	for _, s := range []resource.Status{resource.StatusPending, resource.StatusDeleting} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true", s)
		}
	}
}
