// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gputest provides HAL devices for tests: a noop device wrapped with
// object accounting and failure injection.
package gputest

import (
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Device wraps a hal.Device. Create calls fail with the matching Fail field
// when it is set; live objects are counted per kind.
type Device struct {
	hal.Device

	FailTexture  error
	FailView     error
	FailBuffer   error
	FailShader   error
	FailPipeline error

	// FailEncoding makes BeginEncoding of new command encoders fail.
	FailEncoding error

	// Timeout makes Wait report that the fence was not reached.
	Timeout bool
	// WaitErr is returned by Wait.
	WaitErr error

	mu       sync.Mutex
	live     map[string]int
	created  map[string]int
	textures []*hal.TextureDescriptor
}

// Queue wraps a hal.Queue and counts submissions.
type Queue struct {
	hal.Queue

	// ReadBack, when set, fills the destination of every ReadBuffer call.
	ReadBack func(data []byte)

	mu      sync.Mutex
	submits int
}

// Open returns a wrapped noop device and queue. They are destroyed when the
// test finishes.
func Open(t testing.TB) (*Device, *Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	d := &Device{
		Device:  openDev.Device,
		live:    make(map[string]int),
		created: make(map[string]int),
	}
	return d, &Queue{Queue: openDev.Queue}
}

func (d *Device) count(kind string, delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.live[kind] += delta
	if delta > 0 {
		d.created[kind] += delta
	}
}

// Live returns the number of objects of kind ("texture", "view", "buffer",
// "shader", "pipeline", "bindgroup", "encoder") created and not yet
// destroyed. An encoder is live until it is ended or discarded.
func (d *Device) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live[kind]
}

// Created returns the number of objects of kind ever created.
func (d *Device) Created(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// LiveTotal returns the number of live objects of every kind.
func (d *Device) LiveTotal() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, v := range d.live {
		n += v
	}
	return n
}

// TextureDescriptors returns the descriptors of all textures created.
func (d *Device) TextureDescriptors() []*hal.TextureDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*hal.TextureDescriptor(nil), d.textures...)
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.FailTexture != nil {
		return nil, d.FailTexture
	}
	tex, err := d.Device.CreateTexture(desc)
	if err == nil {
		d.count("texture", 1)
		d.mu.Lock()
		cp := *desc
		d.textures = append(d.textures, &cp)
		d.mu.Unlock()
	}
	return tex, err
}

func (d *Device) DestroyTexture(texture hal.Texture) {
	d.count("texture", -1)
	d.Device.DestroyTexture(texture)
}

func (d *Device) CreateTextureView(texture hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if d.FailView != nil {
		return nil, d.FailView
	}
	view, err := d.Device.CreateTextureView(texture, desc)
	if err == nil {
		d.count("view", 1)
	}
	return view, err
}

func (d *Device) DestroyTextureView(view hal.TextureView) {
	d.count("view", -1)
	d.Device.DestroyTextureView(view)
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if d.FailBuffer != nil {
		return nil, d.FailBuffer
	}
	buf, err := d.Device.CreateBuffer(desc)
	if err == nil {
		d.count("buffer", 1)
	}
	return buf, err
}

func (d *Device) DestroyBuffer(buffer hal.Buffer) {
	d.count("buffer", -1)
	d.Device.DestroyBuffer(buffer)
}

func (d *Device) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if d.FailShader != nil {
		return nil, d.FailShader
	}
	m, err := d.Device.CreateShaderModule(desc)
	if err == nil {
		d.count("shader", 1)
	}
	return m, err
}

func (d *Device) DestroyShaderModule(module hal.ShaderModule) {
	d.count("shader", -1)
	d.Device.DestroyShaderModule(module)
}

func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if d.FailPipeline != nil {
		return nil, d.FailPipeline
	}
	p, err := d.Device.CreateRenderPipeline(desc)
	if err == nil {
		d.count("pipeline", 1)
	}
	return p, err
}

func (d *Device) DestroyRenderPipeline(pipeline hal.RenderPipeline) {
	d.count("pipeline", -1)
	d.Device.DestroyRenderPipeline(pipeline)
}

func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	g, err := d.Device.CreateBindGroup(desc)
	if err == nil {
		d.count("bindgroup", 1)
	}
	return g, err
}

func (d *Device) DestroyBindGroup(group hal.BindGroup) {
	d.count("bindgroup", -1)
	d.Device.DestroyBindGroup(group)
}

func (d *Device) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	d.count("encoder", 1)
	return &encoder{CommandEncoder: enc, device: d, fail: d.FailEncoding}, nil
}

// encoder counts a command encoder as live until it is ended or discarded.
type encoder struct {
	hal.CommandEncoder
	device *Device
	fail   error
	done   bool
}

func (e *encoder) BeginEncoding(label string) error {
	if e.fail != nil {
		return e.fail
	}
	return e.CommandEncoder.BeginEncoding(label)
}

func (e *encoder) EndEncoding() (hal.CommandBuffer, error) {
	e.finish()
	return e.CommandEncoder.EndEncoding()
}

func (e *encoder) DiscardEncoding() {
	e.finish()
	e.CommandEncoder.DiscardEncoding()
}

func (e *encoder) finish() {
	if !e.done {
		e.done = true
		e.device.count("encoder", -1)
	}
}

func (d *Device) Wait(_ hal.Fence, _ uint64, _ time.Duration) (bool, error) {
	if d.WaitErr != nil {
		return false, d.WaitErr
	}
	return !d.Timeout, nil
}

func (q *Queue) Submit(commandBuffers []hal.CommandBuffer, fence hal.Fence, fenceValue uint64) error {
	q.mu.Lock()
	q.submits++
	q.mu.Unlock()
	return q.Queue.Submit(commandBuffers, fence, fenceValue)
}

func (q *Queue) ReadBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	if q.ReadBack != nil {
		q.ReadBack(data)
		return nil
	}
	return q.Queue.ReadBuffer(buffer, offset, data)
}

// Submits returns the number of Submit calls.
func (q *Queue) Submits() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submits
}
