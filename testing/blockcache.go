package testing

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkubpise/fatvol"
	c "github.com/xkubpise/fatvol/drivers/common"
	"github.com/xkubpise/fatvol/drivers/common/blockcache"
)

// CreateRandomImage creates a buffer of `totalBlocks` blocks of random bytes.
// It either returns a valid slice or fails the test.
func CreateRandomImage(bytesPerBlock, totalBlocks uint, t *testing.T) []byte {
	backingData := make([]byte, bytesPerBlock*totalBlocks)

	_, err := rand.Read(backingData)
	require.NoErrorf(
		t,
		err,
		"failed to initialize %d blocks of size %d with random bytes",
		totalBlocks,
		bytesPerBlock,
	)
	return backingData
}

// CreateDefaultCache creates a block cache over `backingData`, or over random
// data if `backingData` is nil. Every fetch and flush is recorded in the
// returned [CacheTrace].
//
// If `writable` is false, any flush fails the test.
func CreateDefaultCache(
	bytesPerBlock,
	totalBlocks uint,
	writable bool,
	backingData []byte,
	t *testing.T,
) (*blockcache.BlockCache, *CacheTrace) {
	if backingData == nil {
		backingData = CreateRandomImage(bytesPerBlock, totalBlocks, t)
	}
	trace := &CacheTrace{}

	blockSlice := func(blockIndex c.LogicalBlock) ([]byte, error) {
		if uint(blockIndex) >= totalBlocks {
			message := fmt.Sprintf(
				"attempted to access block %d, not in [0, %d)",
				blockIndex,
				totalBlocks,
			)
			t.Error(message)
			return nil, fatvol.ErrIOFailed.WithMessage(message)
		}
		start := uint(blockIndex) * bytesPerBlock
		return backingData[start : start+bytesPerBlock], nil
	}

	fetch := func(blockIndex c.LogicalBlock, buffer []byte) error {
		source, err := blockSlice(blockIndex)
		if err != nil {
			return err
		}
		trace.Fetched = append(trace.Fetched, blockIndex)
		copy(buffer, source)
		return nil
	}

	flush := func(blockIndex c.LogicalBlock, buffer []byte) error {
		if !writable {
			message := fmt.Sprintf(
				"attempted to write %d bytes to block %d of read-only image",
				len(buffer),
				blockIndex,
			)
			t.Error(message)
			return fatvol.ErrInvalidArgument.WithMessage(message)
		}

		target, err := blockSlice(blockIndex)
		if err != nil {
			return err
		}
		trace.Flushed = append(trace.Flushed, blockIndex)
		copy(target, buffer)
		return nil
	}

	cache := blockcache.New(bytesPerBlock, totalBlocks, fetch, flush)
	assert.EqualValues(t, bytesPerBlock, cache.BytesPerBlock(), "wrong bytes per block")
	assert.EqualValues(t, totalBlocks, cache.TotalBlocks(), "wrong total blocks")
	assert.EqualValues(t, bytesPerBlock*totalBlocks, cache.Size(), "total size is wrong")
	return cache, trace
}

// CacheTrace records which blocks a cache fetched and flushed, in order.
type CacheTrace struct {
	Fetched []c.LogicalBlock
	Flushed []c.LogicalBlock
}
