// Copyright 2024 The Forge Authors. All rights reserved.

package transfer

import (
	"sync"
	"testing"

	"github.com/nvpipeline/forge/driver"
)

const (
	graphicsFamily driver.QueueFamily = 0
	transferFamily driver.QueueFamily = 1
)

func newTestManager(t *testing.T, poolBlocks int) (*Manager, driver.Device) {
	t.Helper()
	dev := &fakeDevice{}
	mgr, err := NewManager(dev, transferFamily, []driver.QueueFamily{graphicsFamily, transferFamily}, poolBlocks)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr, dev
}

// TestStageFromBytesRoundTrip covers a partial copy round trip: staged
// bytes land in the destination buffer exactly, and the staging space
// they occupied is reclaimed after wait.
func TestStageFromBytesRoundTrip(t *testing.T) {
	mgr, dev := newTestManager(t, 4)
	dst, err := dev.CreateBuffer(1024, true, driver.UCopyDst)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}

	src := make([]byte, 256)
	for i := range src {
		src[i] = byte(i)
	}

	tx := mgr.Begin()
	ok, err := tx.StageFromBytes(src, dst, 0, nil, false)
	if err != nil {
		t.Fatalf("StageFromBytes: %v", err)
	}
	if !ok {
		t.Fatal("StageFromBytes: want ok")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tx.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	got := dst.Bytes()[:256]
	for i, b := range got {
		if b != byte(i) {
			t.Fatalf("dst[%d] = %d, want %d", i, b, byte(i))
		}
	}
	if mgr.Free() != mgr.Cap() {
		t.Fatalf("Free() = %d, want Cap() = %d after wait", mgr.Free(), mgr.Cap())
	}
}

// TestStageFromBytesLargeCopySpansPool exercises scenario C at reduced
// scale: a pool holding two copies at a time serving eight total
// copies, each needing its own commit/wait pair to reclaim space for
// the next pair, for exactly four commits overall.
func TestStageFromBytesLargeCopySpansPool(t *testing.T) {
	const poolBlocks = 4 // 4 * blockSize capacity
	const copyBlocks = 2 // each copy consumes half the pool
	mgr, dev := newTestManager(t, poolBlocks)
	dst, err := dev.CreateBuffer(int64(poolBlocks)*blockSize*4, true, driver.UCopyDst)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	payload := make([]byte, copyBlocks*blockSize)

	commits := 0
	for i := 0; i < 8; i += 2 {
		tx := mgr.Begin()
		for j := 0; j < 2; j++ {
			ok, err := tx.StageFromBytes(payload, dst, int64(i+j)*int64(len(payload)), nil, false)
			if err != nil {
				t.Fatalf("StageFromBytes: %v", err)
			}
			if !ok {
				t.Fatalf("StageFromBytes: pool exhausted at copy %d, want room for 2 per commit", i+j)
			}
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		if err := tx.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		commits++
		if mgr.Free() != mgr.Cap() {
			t.Fatalf("Free() = %d, want Cap() = %d after wait %d", mgr.Free(), mgr.Cap(), commits)
		}
	}
	if commits != 4 {
		t.Fatalf("commits: have %d want 4", commits)
	}
}

// TestConcurrentTransactions runs many goroutines committing small
// transactions against one manager, covering scenario D: concurrent
// begin/stage/commit/wait must not corrupt the staging pool's
// accounting.
func TestConcurrentTransactions(t *testing.T) {
	mgr, dev := newTestManager(t, 8)
	dst, err := dev.CreateBuffer(4096, true, driver.UCopyDst)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	payload := make([]byte, 64)

	const goroutines = 16
	const iterations = 100
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				tx := mgr.Begin()
				ok, err := tx.StageFromBytes(payload, dst, 0, nil, true)
				if err != nil {
					t.Errorf("StageFromBytes: %v", err)
					return
				}
				if !ok {
					t.Errorf("StageFromBytes: want ok with wait=true")
					return
				}
				if err := tx.Commit(); err != nil {
					t.Errorf("Commit: %v", err)
					return
				}
				if err := tx.Wait(); err != nil {
					t.Errorf("Wait: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if mgr.Free() != mgr.Cap() {
		t.Fatalf("Free() = %d, want Cap() = %d after all transactions waited", mgr.Free(), mgr.Cap())
	}
}

// TestCommitTransfersBufferOwnership covers property 5: a cross-family
// barrier's commit updates the buffer's recorded queue family.
func TestCommitTransfersBufferOwnership(t *testing.T) {
	mgr, dev := newTestManager(t, 2)
	buf, err := dev.CreateBuffer(256, true, driver.UCopyDst)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	buf.(*fakeBuffer).family = graphicsFamily

	tx := mgr.Begin()
	tx.StageBarrier(driver.MemoryBarrier{
		Buffer:       buf,
		SyncBefore:   driver.SColorOutput,
		AccessBefore: driver.AColorRead,
		SyncAfter:    driver.SCopy,
		AccessAfter:  driver.ACopyWrite,
		SrcFamily:    graphicsFamily,
		DstFamily:    transferFamily,
		Transfer:     true,
	}, BeforeCopy)
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tx.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if got := buf.QueueFamily(); got != transferFamily {
		t.Fatalf("QueueFamily() = %d, want %d after cross-family commit", got, transferFamily)
	}
}

// TestCommitSecondTransactionWaitsOnFirst ensures two transactions
// committed back to back on the same manager both complete and their
// effects are both observable, exercising the serialization contract
// between successive commits.
func TestCommitSecondTransactionWaitsOnFirst(t *testing.T) {
	mgr, dev := newTestManager(t, 4)
	dst, err := dev.CreateBuffer(512, true, driver.UCopyDst)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}

	first := []byte{1, 2, 3, 4}
	second := []byte{5, 6, 7, 8}

	tx1 := mgr.Begin()
	if ok, err := tx1.StageFromBytes(first, dst, 0, nil, false); err != nil || !ok {
		t.Fatalf("StageFromBytes(first): ok=%v err=%v", ok, err)
	}
	if err := tx1.Commit(); err != nil {
		t.Fatalf("Commit(tx1): %v", err)
	}

	tx2 := mgr.Begin()
	if ok, err := tx2.StageFromBytes(second, dst, 4, nil, false); err != nil || !ok {
		t.Fatalf("StageFromBytes(second): ok=%v err=%v", ok, err)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatalf("Commit(tx2): %v", err)
	}

	if err := tx1.Wait(); err != nil {
		t.Fatalf("Wait(tx1): %v", err)
	}
	if err := tx2.Wait(); err != nil {
		t.Fatalf("Wait(tx2): %v", err)
	}

	got := dst.Bytes()[:8]
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dst[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
