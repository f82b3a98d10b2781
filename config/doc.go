// Package config loads and decodes project configuration from .hcl files on
// disk.
//
// The files are loaded with the Loader and decoded into records for the
// reconciler. A typical config file looks something like this:
//
//  project "website" {}
//
//  options {
//    timeout_seconds = 300
//  }
//
//  resource "server" "web1" {
//    size   = "small"        # attributes passed
//    region = "eu-west-1"    # to the remote api
//
//    depends_on = ["network.core"]
//  }
//
// Except for depends_on, the entire body of a resource block is specific to
// the resource type, set by the first label.
package config
