package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl2/hcl"
	"github.com/hashicorp/hcl2/hclpack"
	"github.com/recon/recon/adapter"
	"github.com/recon/recon/config"
	"github.com/recon/recon/resource"
)

func parse(t *testing.T, src string) hcl.Body {
	t.Helper()
	body, diags := hclpack.PackNativeFile([]byte(src), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		t.Fatalf("pack: %v", diags)
	}
	return body
}

func TestDecode(t *testing.T) {
	src := `
project "website" {}

options {
  timeout_seconds       = 300
  max_retries           = 3
  poll_interval_seconds = 0.5
}

resource "server" "web1" {
  size   = "small"
  region = "eu-west-1"
  tags   = ["frontend", "public"]

  depends_on = ["network.core"]
}

resource "network" "core" {
  cidr = "10.0.0.0/16"
}
`
	cfg, diags := config.Decode(parse(t, src))
	if diags.HasErrors() {
		t.Fatalf("Decode() diagnostics: %v", diags)
	}

	want := &config.Config{
		Project: "website",
		Options: adapter.Options{
			Timeout:      5 * time.Minute,
			MaxRetries:   3,
			PollInterval: 500 * time.Millisecond,
		},
		Records: []resource.Record{
			{
				Type: "server",
				Name: "web1",
				Attrs: map[string]interface{}{
					"size":   "small",
					"region": "eu-west-1",
					"tags":   []interface{}{"frontend", "public"},
				},
				DependsOn: []string{"network.core"},
			},
			{
				Type:  "network",
				Name:  "core",
				Attrs: map[string]interface{}{"cidr": "10.0.0.0/16"},
			},
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Decode() (-want +got):\n%s", diff)
	}
}

func TestDecode_optionsOptional(t *testing.T) {
	src := `
project "website" {}

resource "server" "web1" {
  size = "small"
}
`
	cfg, diags := config.Decode(parse(t, src))
	if diags.HasErrors() {
		t.Fatalf("Decode() diagnostics: %v", diags)
	}
	// Zero options; the adapter fills in its defaults.
	if cfg.Options != (adapter.Options{}) {
		t.Errorf("Options = %v, want zero value", cfg.Options)
	}
}

func TestDecode_missingProject(t *testing.T) {
	_, diags := config.Decode(parse(t, `resource "server" "web1" {}`))
	if !diags.HasErrors() {
		t.Fatal("Decode() returned no diagnostics")
	}
	if got := diags[0].Summary; got != "Missing project block" {
		t.Errorf("Summary = %q", got)
	}
}

func TestDecode_unknownOptionSuggestion(t *testing.T) {
	src := `
project "website" {}

options {
  timeout_second = 300
}
`
	_, diags := config.Decode(parse(t, src))
	if !diags.HasErrors() {
		t.Fatal("Decode() returned no diagnostics")
	}
	found := false
	for _, d := range diags {
		if d.Summary == "Unsupported option" {
			found = true
			if !strings.Contains(d.Detail, `Did you mean "timeout_seconds"?`) {
				t.Errorf("Detail = %q, want a timeout_seconds suggestion", d.Detail)
			}
		}
	}
	if !found {
		t.Errorf("no Unsupported option diagnostic in %v", diags)
	}
}

func TestDecode_duplicateResource(t *testing.T) {
	src := `
project "website" {}

resource "server" "web1" {
  size = "small"
}

resource "server" "web1" {
  size = "large"
}
`
	_, diags := config.Decode(parse(t, src))
	if !diags.HasErrors() {
		t.Fatal("Decode() returned no diagnostics")
	}
	found := false
	for _, d := range diags {
		if d.Summary == "Duplicate resource" {
			found = true
		}
	}
	if !found {
		t.Errorf("no Duplicate resource diagnostic in %v", diags)
	}
}

func TestDecode_invalidDependsOn(t *testing.T) {
	src := `
project "website" {}

resource "server" "web1" {
  depends_on = [1, 2]
}
`
	_, diags := config.Decode(parse(t, src))
	if !diags.HasErrors() {
		t.Fatal("Decode() returned no diagnostics")
	}
	if got := diags[0].Summary; got != "Invalid depends_on" {
		t.Errorf("Summary = %q", got)
	}
}
