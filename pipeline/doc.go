// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pipeline builds render pipeline and render pass descriptors
// around the vertex stage.
//
// The stage itself only defines the transform and its binding table;
// this package supplies the surrounding plumbing: attachment
// descriptions with load/store derivation, fragment blend equations,
// and descriptor assembly in the form the wgpu HAL consumes. Pipeline
// creation, swapchains, and fragment shading stay with the caller.
package pipeline
