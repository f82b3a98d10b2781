package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/hcl2/gohcl"
	"github.com/hashicorp/hcl2/hcl"
	"github.com/recon/recon/adapter"
	"github.com/recon/recon/ctyext"
	"github.com/recon/recon/resource"
	"github.com/recon/recon/suggest"
)

// A Root is the root structure of a project's configuration.
type Root struct {
	Project   *Project        `hcl:"project,block"`
	Options   *Options        `hcl:"options,block"`
	Resources []ResourceBlock `hcl:"resource,block"`
}

// A Project declares the project name.
type Project struct {
	Name string `hcl:"name,label"`
}

// Options configure waiting and retry behavior for the entire project.
// Every field is optional.
type Options struct {
	TimeoutSeconds      *float64 `hcl:"timeout_seconds,optional"`
	MaxRetries          *int     `hcl:"max_retries,optional"`
	PollIntervalSeconds *float64 `hcl:"poll_interval_seconds,optional"`

	Remain hcl.Body `hcl:",remain"`
}

// optionKeys are the supported attributes of an options block, for
// suggestions on unknown keys.
var optionKeys = []string{"timeout_seconds", "max_retries", "poll_interval_seconds"}

// A ResourceBlock is a user specified resource.
//
// The body is specific to the resource type and is decoded against the
// type's schema when the record is applied.
type ResourceBlock struct {
	Type   string   `hcl:"type,label"`
	Name   string   `hcl:"name,label"`
	Config hcl.Body `hcl:",remain"`
}

// A Config is a fully decoded project configuration.
type Config struct {
	// Project is the project name.
	Project string

	// Options are wait and retry options, with defaults filled in.
	Options adapter.Options

	// Records are the declared resources.
	Records []resource.Record
}

// Decode decodes a loaded configuration body.
//
// Attribute values must be literals; expressions referring to variables or
// functions produce diagnostics.
func Decode(body hcl.Body) (*Config, hcl.Diagnostics) {
	var root Root
	diags := gohcl.DecodeBody(body, nil, &root)
	if diags.HasErrors() {
		return nil, diags
	}

	cfg := &Config{}

	if root.Project == nil {
		rng := body.MissingItemRange()
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Missing project block",
			Detail:   "A project block is required: project \"name\" {}.",
			Subject:  &rng,
		})
	}
	cfg.Project = root.Project.Name

	if root.Options != nil {
		opts, optDiags := decodeOptions(root.Options)
		diags = append(diags, optDiags...)
		cfg.Options = opts
	}

	seen := make(map[string]hcl.Range, len(root.Resources))
	for _, block := range root.Resources {
		record, recDiags := decodeResource(block)
		diags = append(diags, recDiags...)
		if recDiags.HasErrors() {
			continue
		}

		rng := block.Config.MissingItemRange()
		if prev, ok := seen[record.Addr()]; ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate resource",
				Detail:   fmt.Sprintf("Resource %s was already declared at %s.", record.Addr(), prev),
				Subject:  &rng,
			})
			continue
		}
		seen[record.Addr()] = rng

		cfg.Records = append(cfg.Records, record)
	}

	if diags.HasErrors() {
		return nil, diags
	}
	return cfg, diags
}

func decodeOptions(block *Options) (adapter.Options, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	var opts adapter.Options

	if block.TimeoutSeconds != nil {
		opts.Timeout = time.Duration(*block.TimeoutSeconds * float64(time.Second))
	}
	if block.MaxRetries != nil {
		opts.MaxRetries = *block.MaxRetries
	}
	if block.PollIntervalSeconds != nil {
		opts.PollInterval = time.Duration(*block.PollIntervalSeconds * float64(time.Second))
	}

	// Reject unknown keys with a hint towards the closest supported one.
	attrs, attrDiags := block.Remain.JustAttributes()
	diags = append(diags, attrDiags...)
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		attr := attrs[name]
		detail := fmt.Sprintf("An option named %q is not supported.", name)
		if s := suggest.String(name, optionKeys); s != "" {
			detail += fmt.Sprintf(" Did you mean %q?", s)
		}
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported option",
			Detail:   detail,
			Subject:  &attr.NameRange,
			Context:  &attr.Range,
		})
	}

	return opts, diags
}

func decodeResource(block ResourceBlock) (resource.Record, hcl.Diagnostics) {
	record := resource.Record{
		Type: block.Type,
		Name: block.Name,
	}

	attrs, diags := block.Config.JustAttributes()
	if diags.HasErrors() {
		return record, diags
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		attr := attrs[name]
		val, valDiags := attr.Expr.Value(nil)
		if valDiags.HasErrors() {
			diags = append(diags, valDiags...)
			continue
		}

		if name == "depends_on" {
			deps, err := ctyext.Strings(val)
			if err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid depends_on",
					Detail:   fmt.Sprintf("depends_on must be a list of resource addresses: %v.", err),
					Subject:  attr.Expr.Range().Ptr(),
				})
				continue
			}
			record.DependsOn = deps
			continue
		}

		v, err := ctyext.Native(val)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid attribute value",
				Detail:   fmt.Sprintf("Could not read value for %s: %v.", name, err),
				Subject:  attr.Expr.Range().Ptr(),
			})
			continue
		}
		if record.Attrs == nil {
			record.Attrs = make(map[string]interface{})
		}
		record.Attrs[name] = v
	}

	return record, diags
}
