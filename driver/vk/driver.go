// Copyright 2024 The Forge Authors. All rights reserved.

// Package vk implements driver.Device on top of
// github.com/vulkan-go/vulkan, the same binding used throughout the
// retrieved corpus (vulkan-go-asche, cogentcore's vgpu/egpu). It is
// the out-of-scope reference backend named in spec §1/§6: thin
// wrappers around handle creation, referenced by the core only
// through the driver package's interfaces.
package vk

import (
	"errors"
	"time"

	vk "github.com/vulkan-go/vulkan"

	"github.com/nvpipeline/forge/driver"
)

func init() {
	driver.Register(&Driver{})
}

const name = "vulkan"

// Driver implements driver.Driver.
type Driver struct {
	dev *Device
}

// Name implements driver.Driver.
func (d *Driver) Name() string { return name }

// Open implements driver.Driver.
func (d *Driver) Open() (driver.Device, error) {
	if d.dev != nil {
		return d.dev, nil
	}
	if vk.Init() != nil {
		return nil, driver.ErrNotInstalled
	}
	appInfo := &vk.ApplicationInfo{
		SType:      vk.StructureTypeApplicationInfo,
		ApiVersion: vk.MakeVersion(1, 3, 0),
	}
	var inst vk.Instance
	res := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}, nil, &inst)
	if res != vk.Success {
		return nil, driver.ErrFatal
	}

	var n uint32
	vk.EnumeratePhysicalDevices(inst, &n, nil)
	if n == 0 {
		return nil, driver.ErrNoDevice
	}
	phys := make([]vk.PhysicalDevice, n)
	vk.EnumeratePhysicalDevices(inst, &n, phys)
	pdev := phys[0]

	var qn uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pdev, &qn, nil)
	qprops := make([]vk.QueueFamilyProperties, qn)
	vk.GetPhysicalDeviceQueueFamilyProperties(pdev, &qn, qprops)
	for i := range qprops {
		qprops[i].Deref()
	}

	families := make([]driver.QueueFamily, qn)
	queueInfos := make([]vk.DeviceQueueCreateInfo, qn)
	prio := []float32{1}
	for i := range families {
		families[i] = driver.QueueFamily(i)
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(i),
			QueueCount:       1,
			PQueuePriorities: prio,
		}
	}

	var ldev vk.Device
	res = vk.CreateDevice(pdev, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: qn,
		PQueueCreateInfos:    queueInfos,
	}, nil, &ldev)
	if res != vk.Success {
		return nil, driver.ErrFatal
	}

	queues := make(map[driver.QueueFamily]*queue, qn)
	for i := range families {
		var q vk.Queue
		vk.GetDeviceQueue(ldev, uint32(i), 0, &q)
		queues[families[i]] = &queue{family: families[i], handle: q}
	}

	d.dev = &Device{
		inst:     inst,
		phys:     pdev,
		dev:      ldev,
		families: families,
		queues:   queues,
	}
	return d.dev, nil
}

// Close implements driver.Driver.
func (d *Driver) Close() {
	if d.dev == nil {
		return
	}
	vk.DeviceWaitIdle(d.dev.dev)
	vk.DestroyDevice(d.dev.dev, nil)
	vk.DestroyInstance(d.dev.inst, nil)
	d.dev = nil
}

// Device implements driver.Device.
type Device struct {
	inst     vk.Instance
	phys     vk.PhysicalDevice
	dev      vk.Device
	families []driver.QueueFamily
	queues   map[driver.QueueFamily]*queue
}

// queue implements driver.Queue.
type queue struct {
	family driver.QueueFamily
	handle vk.Queue
}

func (q *queue) Family() driver.QueueFamily { return q.family }

// QueueFamilies implements driver.Device.
func (d *Device) QueueFamilies() []driver.QueueFamily { return d.families }

// Queues implements driver.Device.
func (d *Device) Queues(family driver.QueueFamily) (driver.Queue, error) {
	q, ok := d.queues[family]
	if !ok {
		return nil, errors.New("vk: undefined queue family")
	}
	return q, nil
}

var errDevice = errors.New("vk: device call failed")

func checkResult(res vk.Result) error {
	if res != vk.Success {
		return errDevice
	}
	return nil
}
