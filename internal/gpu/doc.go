// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu implements the wgpu-backed batch accelerator for the vertex
// stage.
//
// The transform is mirrored as a WGSL compute shader that reads interleaved
// vertex records from a storage buffer and writes packed output records to
// another. Batches large enough to amortize the transfer cost are uploaded,
// dispatched across 64-wide workgroups, and read back; everything smaller
// stays on the CPU path.
//
// Key components:
//
//   - ComputeAccelerator: vertex.Accelerator implementation, registered by
//     the public gpu package
//   - computePipeline: shader compilation and the dispatch sequence
//   - BufferManager: GPU buffer leases with reuse and a memory budget
//
// The accelerator initializes lazily. Without a usable Vulkan adapter every
// batch reports vertex.ErrFallbackToCPU and the stage transparently runs on
// the CPU instead. A host application that already owns a GPU device can
// share it via SetDeviceProvider; the accelerator then creates no device of
// its own.
package gpu
