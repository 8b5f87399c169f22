// Copyright 2024 The Forge Authors. All rights reserved.

package transfer

import (
	"sync"

	"github.com/nvpipeline/forge/core"
	"github.com/nvpipeline/forge/driver"
)

// familyResources bundles the four barrier-carrying command buffers
// a queue family needs for one transaction's commit (pre-copy
// release/acquire, post-copy release/acquire), plus the timeline
// semaphore and running value the manager sequences them against.
type familyResources struct {
	family driver.QueueFamily
	queue  driver.Queue

	preRelease  driver.CmdBuffer
	preAcquire  driver.CmdBuffer
	postRelease driver.CmdBuffer
	postAcquire driver.CmdBuffer

	sem   driver.Semaphore
	value uint64
}

// Manager owns the per-family command buffers and timeline
// semaphores Transactions commit against, the copy command buffer on
// the transfer queue, and the ring-buffer staging pool transactions
// allocate from. Transaction serializes its commits through the
// manager's mutex: commit additionally waits for the previously
// committed transaction before recording and submitting its own plan.
type Manager struct {
	dev            driver.Device
	transferFamily driver.QueueFamily
	transferQueue  driver.Queue
	copyCmd        driver.CmdBuffer

	families map[driver.QueueFamily]*familyResources

	mu              sync.Mutex
	pool            *stagingPool
	pendingAllocs   []stagingAlloc
	lastFinalValues map[driver.QueueFamily]uint64
}

// stagingAlloc is a staging-pool reservation owned by a Transaction.
// Transaction.Wait moves it into the manager's pending list and then
// releases the whole list back to the pool.
type stagingAlloc struct {
	off  int64
	size int
}

// NewManager creates a Manager serving the given queue families (one
// of which is the dedicated transfer family the copy command buffer
// submits on), with a staging pool sized for poolBlocks blockSize
// blocks.
func NewManager(dev driver.Device, transferFamily driver.QueueFamily, families []driver.QueueFamily, poolBlocks int) (*Manager, error) {
	pool, err := newStagingPool(dev, poolBlocks)
	if err != nil {
		return nil, wrapTransferErr(core.DeviceError, "failed to create staging pool", err)
	}
	m := &Manager{
		dev:            dev,
		transferFamily: transferFamily,
		pool:           pool,
		families:       make(map[driver.QueueFamily]*familyResources, len(families)),
	}
	q, err := dev.Queues(transferFamily)
	if err != nil {
		return nil, wrapTransferErr(core.DeviceError, "failed to acquire transfer queue", err)
	}
	m.transferQueue = q
	cmd, err := newCmdBuffer(dev, transferFamily)
	if err != nil {
		return nil, err
	}
	m.copyCmd = cmd

	for _, f := range families {
		fr, err := newFamilyResources(dev, f)
		if err != nil {
			return nil, err
		}
		m.families[f] = fr
	}
	if _, ok := m.families[transferFamily]; !ok {
		fr, err := newFamilyResources(dev, transferFamily)
		if err != nil {
			return nil, err
		}
		m.families[transferFamily] = fr
	}
	return m, nil
}

func newCmdBuffer(dev driver.Device, family driver.QueueFamily) (driver.CmdBuffer, error) {
	pool, err := dev.CreateCmdPool(family)
	if err != nil {
		return nil, wrapTransferErr(core.DeviceError, "failed to create command pool", err)
	}
	cb, err := dev.CreateCmdBuffer(pool, driver.LevelPrimary)
	if err != nil {
		return nil, wrapTransferErr(core.DeviceError, "failed to create command buffer", err)
	}
	return cb, nil
}

func newFamilyResources(dev driver.Device, family driver.QueueFamily) (*familyResources, error) {
	q, err := dev.Queues(family)
	if err != nil {
		return nil, wrapTransferErr(core.DeviceError, "failed to acquire queue", err)
	}
	fr := &familyResources{family: family, queue: q}
	for _, cb := range []*driver.CmdBuffer{&fr.preRelease, &fr.preAcquire, &fr.postRelease, &fr.postAcquire} {
		c, err := newCmdBuffer(dev, family)
		if err != nil {
			return nil, err
		}
		*cb = c
	}
	sem, err := dev.CreateTimelineSemaphore(0)
	if err != nil {
		return nil, wrapTransferErr(core.DeviceError, "failed to create timeline semaphore", err)
	}
	fr.sem = sem
	return fr, nil
}

// Begin starts a new Transaction against this manager.
func (m *Manager) Begin() *Transaction {
	return &Transaction{mgr: m}
}

// lockAndWait blocks, under m.mu (already held by the caller), until
// every semaphore value recorded by the previously committed
// transaction on this manager has been reached. It is a no-op for the
// manager's first commit, when no prior transaction has recorded
// anything yet.
func (m *Manager) lockAndWait() error {
	if len(m.lastFinalValues) == 0 {
		return nil
	}
	handles := make([]driver.Semaphore, 0, len(m.lastFinalValues))
	values := make([]uint64, 0, len(m.lastFinalValues))
	for f, v := range m.lastFinalValues {
		fr, ok := m.families[f]
		if !ok {
			continue
		}
		handles = append(handles, fr.sem)
		values = append(values, v)
	}
	if len(handles) == 0 {
		return nil
	}
	return m.dev.WaitSemaphores(handles, values, -1)
}

// reclaim drains the pending-reclaim list into the staging pool's
// free space, under the manager mutex.
func (m *Manager) reclaim() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.pendingAllocs {
		m.pool.release(a.off, a.size)
	}
	m.pendingAllocs = m.pendingAllocs[:0]
}

// Free reports the staging pool's current free byte count.
func (m *Manager) Free() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.free()
}

// Cap reports the staging pool's total byte capacity.
func (m *Manager) Cap() int { return m.pool.cap() }
