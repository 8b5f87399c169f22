// Copyright 2024 The Forge Authors. All rights reserved.

// Package transfer implements cross-queue-family resource transfer:
// a ring-buffer staging pool, barrier-synthesizing Transactions, and
// the Manager that sequences their submission across queue families
// via timeline semaphores.
package transfer

import (
	"github.com/nvpipeline/forge/driver"
)

// blockSize is the granularity of a staging pool reservation.
const blockSize = 65536

// stagingPool is a ring buffer of blockSize blocks backing one
// host-visible driver.Buffer. Occupancy is tracked one bit per block
// in occupied, exactly as the teacher's stagingBuffer.reserve/unstage
// track theirs, but scoped down to the single contiguous-run search
// this pool actually performs (no shrink, no arbitrary granularity).
type stagingPool struct {
	buf        driver.Buffer
	occupied   []uint32
	nblocks    int
	freeBlocks int
}

func newStagingPool(dev driver.Device, blocks int) (*stagingPool, error) {
	buf, err := dev.CreateBuffer(int64(blocks)*blockSize, true, driver.UCopySrc|driver.UCopyDst)
	if err != nil {
		return nil, err
	}
	return &stagingPool{
		buf:        buf,
		occupied:   make([]uint32, (blocks+31)/32),
		nblocks:    blocks,
		freeBlocks: blocks,
	}, nil
}

func blocksFor(n int) int { return (n + blockSize - 1) / blockSize }

func (p *stagingPool) isBlockSet(idx int) bool {
	return p.occupied[idx/32]&(uint32(1)<<uint(idx%32)) != 0
}

func (p *stagingPool) setBlock(idx int) {
	if b := idx / 32; !p.isBlockSet(idx) {
		p.occupied[b] |= uint32(1) << uint(idx%32)
		p.freeBlocks--
	}
}

func (p *stagingPool) unsetBlock(idx int) {
	if b := idx / 32; p.isBlockSet(idx) {
		p.occupied[b] &^= uint32(1) << uint(idx%32)
		p.freeBlocks++
	}
}

// findRun locates the first contiguous run of nb unset blocks,
// scanning bit by bit: the pool is sized in blockSize units, so even
// a multi-gigabyte pool is only a few thousand bits wide, and a plain
// scan keeps the logic obvious over the teacher's word-skipping
// SearchRange optimization.
func (p *stagingPool) findRun(nb int) (start int, ok bool) {
	if p.freeBlocks < nb {
		return 0, false
	}
	run := 0
	for i := 0; i < p.nblocks; i++ {
		if p.isBlockSet(i) {
			run = 0
			continue
		}
		if run == 0 {
			start = i
		}
		run++
		if run == nb {
			return start, true
		}
	}
	return 0, false
}

// reserve finds a contiguous run of n bytes' worth of blocks and
// marks them used, returning the buffer offset they start at.
func (p *stagingPool) reserve(n int) (off int64, ok bool) {
	nb := blocksFor(n)
	idx, ok := p.findRun(nb)
	if !ok {
		return 0, false
	}
	for i := 0; i < nb; i++ {
		p.setBlock(idx + i)
	}
	return int64(idx) * blockSize, true
}

func (p *stagingPool) release(off int64, n int) {
	nb := blocksFor(n)
	idx := int(off) / blockSize
	for i := 0; i < nb; i++ {
		p.unsetBlock(idx + i)
	}
}

func (p *stagingPool) write(off int64, data []byte) {
	copy(p.buf.Bytes()[off:], data)
}

// free reports the number of bytes currently unreserved.
func (p *stagingPool) free() int { return p.freeBlocks * blockSize }

// cap reports the pool's total byte capacity.
func (p *stagingPool) cap() int { return p.nblocks * blockSize }
