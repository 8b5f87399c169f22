// Copyright 2024 The Forge Authors. All rights reserved.

package transfer

import (
	"github.com/nvpipeline/forge/core"
	"github.com/nvpipeline/forge/driver"
)

// Phase selects which of a commit's two synchronization points a
// staged barrier belongs to.
type Phase int

const (
	// BeforeCopy places the barrier ahead of the transaction's copy
	// command, in the pre-release/pre-acquire submission steps.
	BeforeCopy Phase = iota
	// AfterCopy places the barrier behind it, in the post-release/
	// post-acquire steps.
	AfterCopy
)

type taggedMemBarrier struct {
	b     driver.MemoryBarrier
	phase Phase
}

type taggedImgBarrier struct {
	b     driver.ImageBarrier
	phase Phase
}

// Transaction batches buffer copies and the barriers around them for
// one atomic commit. A Transaction is used by a single goroutine; an
// external caller sharing one across goroutines must synchronize
// externally. Per §4.5, buffer-to-buffer and staging-to-buffer copies
// are supported; buffer↔image and image↔image copies are the first-cut
// restriction spec §9 Open Question (b) explicitly allows dropping.
type Transaction struct {
	mgr *Manager

	committed bool
	waited    bool

	memBarriers []taggedMemBarrier
	imgBarriers []taggedImgBarrier
	copies      []driver.BufferCopy
	allocs      []stagingAlloc

	finalValues map[driver.QueueFamily]uint64
}

// StageBarrier appends a buffer memory barrier at the given phase.
// It never allocates.
func (t *Transaction) StageBarrier(b driver.MemoryBarrier, phase Phase) {
	t.memBarriers = append(t.memBarriers, taggedMemBarrier{b, phase})
}

// StageImageBarrier appends an image memory barrier at the given
// phase. It never allocates.
func (t *Transaction) StageImageBarrier(b driver.ImageBarrier, phase Phase) {
	t.imgBarriers = append(t.imgBarriers, taggedImgBarrier{b, phase})
}

// StageCopy appends a buffer-to-buffer copy, with optional barriers
// bracketing it. It never allocates.
func (t *Transaction) StageCopy(c driver.BufferCopy, before, after *driver.MemoryBarrier) {
	if before != nil {
		t.StageBarrier(*before, BeforeCopy)
	}
	t.copies = append(t.copies, c)
	if after != nil {
		t.StageBarrier(*after, AfterCopy)
	}
}

// StageFromBytes tries to reserve len(src) bytes from the manager's
// staging pool, copies src into it, and records a copy from the
// staging allocation to dst at dstOff. If barrier is non-nil, implicit
// barriers are synthesized around the copy: the pre barrier ends at
// TRANSFER_BIT/TRANSFER_WRITE, the post barrier begins there and ends
// at barrier's own destination stage and access (per spec §9 Open
// Question (c), the destination *access* scope is propagated, not the
// destination stage, which is almost certainly what the source's
// dst_stage-derived branch should have done).
//
// If the pool has no room, StageFromBytes returns false when wait is
// false. If wait is true, it releases the manager's pending-reclaim
// list back to the pool and retries once. It does not block on other
// transactions: their reservations return to the pool only when their
// own Wait runs, so the retry fails while they still hold the space.
func (t *Transaction) StageFromBytes(src []byte, dst driver.Buffer, dstOff int64, barrier *driver.MemoryBarrier, wait bool) (bool, error) {
	m := t.mgr
	m.mu.Lock()
	off, ok := m.pool.reserve(len(src))
	m.mu.Unlock()
	if !ok {
		if !wait {
			return false, nil
		}
		m.reclaim()
		m.mu.Lock()
		off, ok = m.pool.reserve(len(src))
		m.mu.Unlock()
		if !ok {
			return false, nil
		}
	}
	t.mgr.pool.write(off, src)
	t.allocs = append(t.allocs, stagingAlloc{off: off, size: len(src)})

	if barrier != nil {
		pre := *barrier
		pre.SyncAfter = driver.SCopy
		pre.AccessAfter = driver.ACopyWrite
		post := *barrier
		post.SyncBefore = driver.SCopy
		post.AccessBefore = driver.ACopyWrite
		t.StageBarrier(pre, BeforeCopy)
		t.StageBarrier(post, AfterCopy)
	}
	t.copies = append(t.copies, driver.BufferCopy{
		Src: t.mgr.pool.buf, SrcOff: off,
		Dst: dst, DstOff: dstOff,
		Size: int64(len(src)),
	})
	return true, nil
}

type commitPlan struct {
	preReleaseMem, preAcquireMem, postReleaseMem, postAcquireMem map[driver.QueueFamily][]driver.MemoryBarrier
	preReleaseImg, preAcquireImg, postReleaseImg, postAcquireImg map[driver.QueueFamily][]driver.ImageBarrier
}

func newCommitPlan() *commitPlan {
	return &commitPlan{
		preReleaseMem: map[driver.QueueFamily][]driver.MemoryBarrier{}, preAcquireMem: map[driver.QueueFamily][]driver.MemoryBarrier{},
		postReleaseMem: map[driver.QueueFamily][]driver.MemoryBarrier{}, postAcquireMem: map[driver.QueueFamily][]driver.MemoryBarrier{},
		preReleaseImg: map[driver.QueueFamily][]driver.ImageBarrier{}, preAcquireImg: map[driver.QueueFamily][]driver.ImageBarrier{},
		postReleaseImg: map[driver.QueueFamily][]driver.ImageBarrier{}, postAcquireImg: map[driver.QueueFamily][]driver.ImageBarrier{},
	}
}

// planMemBarrier buckets one staged memory barrier into the plan per
// §4.5: same-family barriers become a single acquire-style entry;
// cross-family barriers split into a release in the source family and
// an acquire in the destination family, and update the buffer's
// recorded queue family.
func (p *commitPlan) planMemBarrier(tb taggedMemBarrier) {
	b := tb.b
	s := b.Buffer.QueueFamily()
	d := s
	if b.Transfer {
		d = b.DstFamily
	}
	acquireMap, releaseMap := p.preAcquireMem, p.preReleaseMem
	if tb.phase == AfterCopy {
		acquireMap, releaseMap = p.postAcquireMem, p.postReleaseMem
	}
	if s == d {
		acquireMap[d] = append(acquireMap[d], b)
		return
	}
	release := b
	release.SyncAfter, release.AccessAfter = driver.SNone, driver.ANone
	release.SrcFamily, release.DstFamily, release.Transfer = s, d, true
	acquire := b
	acquire.SyncBefore, acquire.AccessBefore = driver.SNone, driver.ANone
	acquire.SrcFamily, acquire.DstFamily, acquire.Transfer = s, d, true
	releaseMap[s] = append(releaseMap[s], release)
	acquireMap[d] = append(acquireMap[d], acquire)
	if setter, ok := b.Buffer.(driver.BufferOwnerSetter); ok {
		setter.SetQueueFamily(d)
	}
}

func (p *commitPlan) planImgBarrier(tb taggedImgBarrier) {
	b := tb.b
	s := b.Image.QueueFamilyOf(b.Level, b.Layer)
	d := s
	if b.Transfer {
		d = b.DstFamily
	}
	acquireMap, releaseMap := p.preAcquireImg, p.preReleaseImg
	if tb.phase == AfterCopy {
		acquireMap, releaseMap = p.postAcquireImg, p.postReleaseImg
	}
	if s == d {
		acquireMap[d] = append(acquireMap[d], b)
		return
	}
	release := b
	release.SyncAfter, release.AccessAfter = driver.SNone, driver.ANone
	release.SrcFamily, release.DstFamily, release.Transfer = s, d, true
	acquire := b
	acquire.SyncBefore, acquire.AccessBefore = driver.SNone, driver.ANone
	acquire.SrcFamily, acquire.DstFamily, acquire.Transfer = s, d, true
	releaseMap[s] = append(releaseMap[s], release)
	acquireMap[d] = append(acquireMap[d], acquire)
	if setter, ok := b.Image.(driver.ImageOwnerSetter); ok {
		for l := b.Level; l < b.Level+b.Levels; l++ {
			for a := b.Layer; a < b.Layer+b.Layers; a++ {
				setter.SetQueueFamilyOf(l, a, d)
			}
		}
	}
}

// Commit synthesizes the barrier plan from every staged barrier and
// copy, then submits it in the five-step order of §4.5: per-family
// pre-release, per-family pre-acquire, the transfer queue's copy
// command, per-family post-release, per-family post-acquire. It is
// legal at most once per Transaction.
func (t *Transaction) Commit() error {
	if t.committed {
		return newTransferErr(core.InvalidState, "transaction already committed")
	}
	m := t.mgr
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.lockAndWait(); err != nil {
		return wrapTransferErr(core.DeviceError, "lock-and-wait on previous commit failed", err)
	}

	plan := newCommitPlan()
	for _, tb := range t.memBarriers {
		plan.planMemBarrier(tb)
	}
	for _, tb := range t.imgBarriers {
		plan.planImgBarrier(tb)
	}

	families := make([]driver.QueueFamily, 0, len(m.families))
	for f := range m.families {
		families = append(families, f)
	}

	if err := submitStep(m, families, plan.preReleaseMem, plan.preReleaseImg, func(fr *familyResources) driver.CmdBuffer { return fr.preRelease }, nil); err != nil {
		return wrapTransferErr(core.DeviceError, "pre-release submission failed", err)
	}
	if err := submitStep(m, families, plan.preAcquireMem, plan.preAcquireImg, func(fr *familyResources) driver.CmdBuffer { return fr.preAcquire }, families); err != nil {
		return wrapTransferErr(core.DeviceError, "pre-acquire submission failed", err)
	}

	if len(t.copies) > 0 {
		if err := t.submitCopy(families); err != nil {
			return wrapTransferErr(core.DeviceError, "copy submission failed", err)
		}
	}

	if err := submitStep(m, families, plan.postReleaseMem, plan.postReleaseImg, func(fr *familyResources) driver.CmdBuffer { return fr.postRelease }, nil); err != nil {
		return wrapTransferErr(core.DeviceError, "post-release submission failed", err)
	}
	if err := submitStep(m, families, plan.postAcquireMem, plan.postAcquireImg, func(fr *familyResources) driver.CmdBuffer { return fr.postAcquire }, families); err != nil {
		return wrapTransferErr(core.DeviceError, "post-acquire submission failed", err)
	}

	t.finalValues = make(map[driver.QueueFamily]uint64, len(m.families))
	for f, fr := range m.families {
		t.finalValues[f] = fr.value
	}
	t.committed = true
	m.lastFinalValues = t.finalValues
	return nil
}

// submitStep submits fr's cmd buffer for every family with non-empty
// barriers bucketed into mem/img, waiting (if waitOn is non-nil) on
// every other family's current semaphore value and signaling its own
// value forward by one.
func submitStep(m *Manager, families []driver.QueueFamily, mem map[driver.QueueFamily][]driver.MemoryBarrier, img map[driver.QueueFamily][]driver.ImageBarrier, pick func(*familyResources) driver.CmdBuffer, waitOn []driver.QueueFamily) error {
	for _, f := range families {
		memB, hasMem := mem[f]
		imgB, hasImg := img[f]
		if !hasMem && !hasImg {
			continue
		}
		fr := m.families[f]
		cb := pick(fr)
		if err := cb.Reset(); err != nil {
			return err
		}
		if err := cb.Begin(); err != nil {
			return err
		}
		cb.PipelineBarrier(memB, imgB)
		if err := cb.End(); err != nil {
			return err
		}

		var waits []driver.SemWait
		for _, g := range waitOn {
			if g == f {
				continue
			}
			gr := m.families[g]
			waits = append(waits, driver.SemWait{Sem: gr.sem, Value: gr.value, Stage: driver.SAll})
		}
		fr.value++
		err := m.dev.QueueSubmit2(fr.queue, []driver.SubmitInfo{{
			CmdBuffers: []driver.CmdBuffer{cb},
			Waits:      waits,
			Signals:    []driver.SemSignal{{Sem: fr.sem, Value: fr.value, Stage: driver.SAll}},
		}})
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Transaction) submitCopy(families []driver.QueueFamily) error {
	m := t.mgr
	cb := m.copyCmd
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(); err != nil {
		return err
	}
	for _, c := range t.copies {
		cb.CopyBuffer(c)
	}
	if err := cb.End(); err != nil {
		return err
	}

	var waits []driver.SemWait
	for _, f := range families {
		if f == m.transferFamily {
			continue
		}
		fr := m.families[f]
		waits = append(waits, driver.SemWait{Sem: fr.sem, Value: fr.value, Stage: driver.SAll})
	}
	tfr := m.families[m.transferFamily]
	tfr.value++
	return m.dev.QueueSubmit2(m.transferQueue, []driver.SubmitInfo{{
		CmdBuffers: []driver.CmdBuffer{cb},
		Waits:      waits,
		Signals:    []driver.SemSignal{{Sem: tfr.sem, Value: tfr.value, Stage: driver.SAll}},
	}})
}

// Wait blocks until every semaphore this transaction's commit signaled
// reaches its recorded final value, then releases its staging
// allocations into the manager's pending-reclaim list and drains it.
// It is legal only after Commit.
func (t *Transaction) Wait() error {
	if !t.committed {
		return newTransferErr(core.InvalidState, "wait called before commit")
	}
	if t.waited {
		return nil
	}
	m := t.mgr
	handles := make([]driver.Semaphore, 0, len(t.finalValues))
	values := make([]uint64, 0, len(t.finalValues))
	for f, v := range t.finalValues {
		handles = append(handles, m.families[f].sem)
		values = append(values, v)
	}
	if err := m.dev.WaitSemaphores(handles, values, -1); err != nil {
		return wrapTransferErr(core.DeviceError, "semaphore wait failed", err)
	}
	t.waited = true

	m.mu.Lock()
	m.pendingAllocs = append(m.pendingAllocs, t.allocs...)
	for _, a := range m.pendingAllocs {
		m.pool.release(a.off, a.size)
	}
	m.pendingAllocs = m.pendingAllocs[:0]
	m.mu.Unlock()
	return nil
}
