// Package blockcache provides a block-oriented read-through cache over a
// contiguous range of sectors, e.g. one copy of the FAT. Blocks are fetched
// lazily, at most once, and only dirty blocks are written back.
//
// All block indexes begin at 0 and are relative to the start of the range.

package blockcache

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/xkubpise/fatvol"
	c "github.com/xkubpise/fatvol/drivers/common"
)

// FetchBlockCallback is a pointer to a function that writes the contents of a
// single block from the underlying storage into `buffer`. `buffer` is guaranteed
// to be the size of exactly one block.
type FetchBlockCallback func(blockIndex c.LogicalBlock, buffer []byte) error

// FlushBlockCallback is a pointer to a function that writes the contents of the
// given buffer to a block in the backing storage. `buffer` is guaranteed to be
// the size of exactly one block.
type FlushBlockCallback func(blockIndex c.LogicalBlock, buffer []byte) error

type BlockCache struct {
	loadedBlocks  bitmap.Bitmap
	dirtyBlocks   bitmap.Bitmap
	fetch         FetchBlockCallback
	flush         FlushBlockCallback
	bytesPerBlock uint
	totalBlocks   uint
	data          []byte
}

// New creates a new BlockCache.
func New(
	bytesPerBlock uint,
	totalBlocks uint,
	fetchCb FetchBlockCallback,
	flushCb FlushBlockCallback,
) *BlockCache {
	return &BlockCache{
		loadedBlocks:  bitmap.New(int(totalBlocks)),
		dirtyBlocks:   bitmap.New(int(totalBlocks)),
		data:          make([]byte, int(bytesPerBlock*totalBlocks)),
		fetch:         fetchCb,
		flush:         flushCb,
		bytesPerBlock: bytesPerBlock,
		totalBlocks:   totalBlocks,
	}
}

// WrapBlockRange creates a cache over `count` blocks of `stream` beginning at
// `first`. Block 0 of the cache is `first` on the stream.
func WrapBlockRange(stream *c.BlockStream, first c.BlockID, count uint) *BlockCache {
	fetch := func(blockIndex c.LogicalBlock, buffer []byte) error {
		return stream.ReadInto(first+c.BlockID(blockIndex), buffer)
	}
	flush := func(blockIndex c.LogicalBlock, buffer []byte) error {
		return stream.Write(first+c.BlockID(blockIndex), buffer)
	}
	return New(stream.BytesPerBlock, count, fetch, flush)
}

// BytesPerBlock returns the size of a single block, in bytes.
func (cache *BlockCache) BytesPerBlock() uint {
	return cache.bytesPerBlock
}

// TotalBlocks returns the size of the cache, in blocks.
func (cache *BlockCache) TotalBlocks() uint {
	return cache.totalBlocks
}

// Size returns the size of the cache, in bytes.
func (cache *BlockCache) Size() int64 {
	return int64(cache.bytesPerBlock) * int64(cache.totalBlocks)
}

// IsLoaded returns true if the block has been fetched (or written) already.
func (cache *BlockCache) IsLoaded(blockIndex c.LogicalBlock) bool {
	return uint(blockIndex) < cache.totalBlocks && cache.loadedBlocks.Get(int(blockIndex))
}

func (cache *BlockCache) sizeToNumBlocks(size uint) uint {
	return (size + cache.bytesPerBlock - 1) / cache.bytesPerBlock
}

// checkBounds verifies that `bufferSize` bytes can be accessed in the cache
// starting from block `start`. If not, it returns an error describing the exact
// conditions. If no error would occur, this returns nil.
func (cache *BlockCache) checkBounds(start c.LogicalBlock, bufferSize uint) error {
	numBlocks := cache.sizeToNumBlocks(bufferSize)

	if uint(start) >= cache.totalBlocks || uint(start)+numBlocks > cache.totalBlocks {
		return fatvol.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"can't access %d bytes (%d blocks) from block %d; range not in [0, %d)",
				bufferSize,
				numBlocks,
				start,
				cache.totalBlocks))
	}
	return nil
}

// getSlice returns a slice pointing to the cache's storage, beginning at block
// `start` and continuing for `count` blocks. It doesn't load anything.
func (cache *BlockCache) getSlice(start c.LogicalBlock, count uint) ([]byte, error) {
	err := cache.checkBounds(start, count*cache.bytesPerBlock)
	if err != nil {
		return nil, err
	}

	startOffset := uint(start) * cache.bytesPerBlock
	endOffset := startOffset + (count * cache.bytesPerBlock)
	return cache.data[startOffset:endOffset], nil
}

// Block returns the cached contents of one block, loading it first if needed.
// The returned slice aliases the cache; modify it only through [BlockCache.Write].
func (cache *BlockCache) Block(blockIndex c.LogicalBlock) ([]byte, error) {
	err := cache.loadBlockRange(blockIndex, 1)
	if err != nil {
		return nil, err
	}
	return cache.getSlice(blockIndex, 1)
}

// loadBlockRange ensures that all blocks in the range [start, start + count) are
// present in the cache, and loads any missing ones from storage.
func (cache *BlockCache) loadBlockRange(start c.LogicalBlock, count uint) error {
	err := cache.checkBounds(start, count*cache.bytesPerBlock)
	if err != nil {
		return err
	}

	for blockIndex := int(start); uint(blockIndex) < uint(start)+count; blockIndex++ {
		// Dirty blocks are loaded by definition, so this skips them too.
		if cache.IsLoaded(c.LogicalBlock(blockIndex)) {
			continue
		}

		buffer, err := cache.getSlice(c.LogicalBlock(blockIndex), 1)
		if err != nil {
			return err
		}

		err = cache.fetch(c.LogicalBlock(blockIndex), buffer)
		if err != nil {
			return fatvol.CastToDriverError(err).WithMessage(
				fmt.Sprintf("failed to load block %d from source", blockIndex))
		}

		cache.loadedBlocks.Set(blockIndex, true)
		cache.dirtyBlocks.Set(blockIndex, false)
	}

	return nil
}

// Flush writes out all dirty blocks (and only dirty blocks) to the underlying
// storage and marks them as clean.
func (cache *BlockCache) Flush() error {
	for blockIndex := 0; uint(blockIndex) < cache.totalBlocks; blockIndex++ {
		if !cache.dirtyBlocks.Get(blockIndex) {
			continue
		}

		buffer, err := cache.getSlice(c.LogicalBlock(blockIndex), 1)
		if err != nil {
			return err
		}

		err = cache.flush(c.LogicalBlock(blockIndex), buffer)
		if err != nil {
			return fatvol.CastToDriverError(err).WithMessage(
				fmt.Sprintf("failed to flush block %d to storage", blockIndex))
		}

		cache.dirtyBlocks.Set(blockIndex, false)
	}

	return nil
}

// LoadAll ensures all missing blocks are loaded from storage into the cache.
func (cache *BlockCache) LoadAll() error {
	return cache.loadBlockRange(0, cache.totalBlocks)
}

// Read fills `buffer` with data beginning at block `start`, loading any missing
// blocks first. `buffer` does not need to be an exact multiple of the size of
// one block.
//
// Attempting to read past the end of the cache will result in an error, and
// `buffer` will be left unmodified.
func (cache *BlockCache) Read(start c.LogicalBlock, buffer []byte) error {
	bufLen := uint(len(buffer))
	err := cache.checkBounds(start, bufLen)
	if err != nil {
		return err
	}

	numBlocks := cache.sizeToNumBlocks(bufLen)
	err = cache.loadBlockRange(start, numBlocks)
	if err != nil {
		return err
	}

	sourceData, err := cache.getSlice(start, numBlocks)
	if err != nil {
		return err
	}

	copy(buffer, sourceData)
	return nil
}

// WriteAt copies `data` into the cache at byte `offset` within block `start`,
// loading the affected blocks first so that bytes outside `data` are preserved.
// All modified blocks are marked as dirty.
func (cache *BlockCache) WriteAt(start c.LogicalBlock, offset uint, data []byte) error {
	numBlocks := cache.sizeToNumBlocks(offset + uint(len(data)))
	err := cache.loadBlockRange(start, numBlocks)
	if err != nil {
		return err
	}

	target, err := cache.getSlice(start, numBlocks)
	if err != nil {
		return err
	}
	copy(target[offset:], data)

	for i := uint(0); i < numBlocks; i++ {
		cache.dirtyBlocks.Set(int(uint(start)+i), true)
	}
	return nil
}
