// Package dscheck is a conformance harness for depth/stencil subresource
// addressing on GPU drivers.
//
// # Overview
//
// dscheck writes known data into every mip level and array layer of a
// depth/stencil texture through several distinct code paths (buffer upload,
// render-pass clear, stencil-invert draw, and composites of those), reads it
// back through several more (transfer copy, shader sampling, depth-bounds
// testing), and compares the result against a device-independent shadow
// model computed with the same arithmetic the driver is supposed to apply.
//
// A driver with broken subresource addressing typically stores or fetches
// the wrong mip level or layer while level 0 / layer 0 keeps working, so
// the harness reports "failed only on a non-zero subresource" as a distinct
// verdict: it is the strongest signal that the bug is in addressing rather
// than in value computation.
//
// # Quick Start
//
//	cfg := dscheck.DefaultConfig()
//	dev, err := wgpu.Open(wgpu.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	runner := dscheck.NewRunner(dev, cfg)
//	rep := dscheck.NewReporter(os.Stdout, dev.Name())
//	for c := range cfg.Cases() {
//	    rep.Report(runner.Run(c))
//	}
//	rep.Summary()
//
// # Architecture
//
// The package is organized into:
//   - Shadow model: per-subresource expected values (shadow.go)
//   - Comparators: format-appropriate tolerance rules (compare.go)
//   - Matrix: lazy enumeration of write x read x format x copy (matrix.go)
//   - Runner: one case end-to-end against the device (runner.go)
//   - Reporter: one verdict line per executed case (report.go)
//
// The graphics device is an external collaborator behind the Device
// interface (device.go); backend/wgpu provides the gogpu/wgpu
// implementation.
package dscheck
