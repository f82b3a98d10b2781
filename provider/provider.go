// Package provider defines the resource types the remote system manages.
//
// Each type describes its attribute surface: which attributes are required,
// which are validated, and which cannot be changed in place and force a
// replacement.
package provider

import "github.com/recon/recon/resource/schema"

// Default returns the schema registry with all built-in resource types.
func Default() *schema.Registry {
	return schema.RegistryFromSchemas(map[string]schema.Schema{
		"server": {
			Attrs: map[string]schema.Attr{
				"size":   {Required: true, Validate: "oneof=small medium large"},
				"region": {Immutable: true},
				"image":  {},
				"tags":   {},
			},
		},
		"network": {
			Attrs: map[string]schema.Attr{
				"cidr":   {Required: true, Validate: "cidr"},
				"region": {Immutable: true},
				"tags":   {},
			},
		},
		"bucket": {
			// Bucket names are globally unique; a new bucket must exist
			// before the old one is released.
			CreateBeforeDestroy: true,
			Attrs: map[string]schema.Attr{
				"region":     {Immutable: true},
				"versioning": {},
				"tags":       {},
			},
		},
		"database": {
			Attrs: map[string]schema.Attr{
				"engine":    {Required: true, Validate: "oneof=postgres mysql", Immutable: true},
				"size":      {Required: true, Validate: "oneof=small medium large"},
				"replicas":  {Validate: "min=0,max=5"},
				"backup_to": {Validate: "arn"},
				"tags":      {},
			},
		},
	})
}
