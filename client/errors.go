package client

import (
	"io"

	"github.com/hashicorp/hcl2/hcl"
	"github.com/recon/recon/config"
)

// A DiagnosticsError is returned when the error originated from hcl
// diagnostics.
type DiagnosticsError struct {
	loader *config.Loader
	hcl.Diagnostics
}

// PrintDiagnostics prints diagnostics to the given writer, with source
// context from the files the loader read.
func (d *DiagnosticsError) PrintDiagnostics(w io.Writer) {
	d.loader.WriteDiagnostics(w, d.Diagnostics)
}
