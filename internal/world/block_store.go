package world

import (
	"fmt"
	"sync"
)

const (
	ChunkSize      = 16
	BlocksPerChunk = ChunkSize * ChunkSize * ChunkSize
	wordsPerChunk  = BlocksPerChunk / 64
	maxFillVolume  = 1 << 24
)

type ChunkPos struct {
	X int32
	Y int32
	Z int32
}

// Chunk is a 16x16x16 solidity bitmap.
type Chunk struct {
	bits  [wordsPerChunk]uint64
	count int
}

func (c *Chunk) get(i int) bool {
	return c.bits[i/64]&(1<<(uint(i)%64)) != 0
}

func (c *Chunk) set(i int, solid bool) bool {
	mask := uint64(1) << (uint(i) % 64)
	word := &c.bits[i/64]
	was := *word&mask != 0
	if was == solid {
		return false
	}
	if solid {
		*word |= mask
		c.count++
	} else {
		*word &^= mask
		c.count--
	}
	return true
}

// BlockStore is sparse voxel terrain. Chunks are allocated on first write and
// dropped again once they hold no solid blocks.
type BlockStore struct {
	mu     sync.RWMutex
	chunks map[ChunkPos]*Chunk
}

func NewBlockStore() *BlockStore {
	return &BlockStore{chunks: make(map[ChunkPos]*Chunk)}
}

func (bs *BlockStore) SetSolid(x, y, z int, solid bool) {
	pos, index := locate(x, y, z)

	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.setLocked(pos, index, solid)
}

func (bs *BlockStore) setLocked(pos ChunkPos, index int, solid bool) {
	if bs.chunks == nil {
		bs.chunks = make(map[ChunkPos]*Chunk)
	}
	chunk, ok := bs.chunks[pos]
	if !ok {
		if !solid {
			return
		}
		chunk = &Chunk{}
		bs.chunks[pos] = chunk
	}
	chunk.set(index, solid)
	if chunk.count == 0 {
		delete(bs.chunks, pos)
	}
}

func (bs *BlockStore) IsSolid(x, y, z int) bool {
	pos, index := locate(x, y, z)

	bs.mu.RLock()
	defer bs.mu.RUnlock()

	chunk, ok := bs.chunks[pos]
	if !ok {
		return false
	}
	return chunk.get(index)
}

// Fill marks every block in the inclusive range [min, max] solid. Corners may
// be given in any order.
func (bs *BlockStore) Fill(min, max [3]int) error {
	for axis := 0; axis < 3; axis++ {
		if min[axis] > max[axis] {
			min[axis], max[axis] = max[axis], min[axis]
		}
	}
	volume := int64(1)
	for axis := 0; axis < 3; axis++ {
		volume *= int64(max[axis]-min[axis]) + 1
		if volume > maxFillVolume {
			return fmt.Errorf("world: fill %v..%v exceeds %d blocks", min, max, maxFillVolume)
		}
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()
	for y := min[1]; y <= max[1]; y++ {
		for x := min[0]; x <= max[0]; x++ {
			for z := min[2]; z <= max[2]; z++ {
				pos, index := locate(x, y, z)
				bs.setLocked(pos, index, true)
			}
		}
	}
	return nil
}

// Count returns the number of solid blocks.
func (bs *BlockStore) Count() int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	n := 0
	for _, chunk := range bs.chunks {
		n += chunk.count
	}
	return n
}

func (bs *BlockStore) ChunkCount() int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return len(bs.chunks)
}

func (bs *BlockStore) HasChunk(pos ChunkPos) bool {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	_, ok := bs.chunks[pos]
	return ok
}

func (bs *BlockStore) Clear() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.chunks = make(map[ChunkPos]*Chunk)
}

func locate(x, y, z int) (ChunkPos, int) {
	pos := ChunkPos{X: int32(floorDiv16(x)), Y: int32(floorDiv16(y)), Z: int32(floorDiv16(z))}
	index := floorMod16(y)*ChunkSize*ChunkSize + floorMod16(z)*ChunkSize + floorMod16(x)
	return pos, index
}

func floorDiv16(v int) int {
	q := v / 16
	if v < 0 && v%16 != 0 {
		q--
	}
	return q
}

func floorMod16(v int) int {
	m := v % 16
	if m < 0 {
		m += 16
	}
	return m
}
