// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu implements driver.Driver on a gogpu/wgpu HAL device.
//
// Uploads go through Queue.WriteTexture followed by a fenced submit so the
// data is resident when WriteTexture returns. Readbacks record
// CopyTextureToBuffer into a MapRead staging buffer, wait on a fence and
// read the buffer back, stripping the 256-byte row padding WebGPU requires.
//
// The driver can own its device (Open), borrow one (New), or take one from a
// gpucontext.DeviceProvider (FromProvider). Importing the package registers
// Open as the "wgpu" driver. Build with the nogpu tag to leave it out.
package wgpu
