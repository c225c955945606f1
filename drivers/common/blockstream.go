package common

import (
	"fmt"
	"io"

	"github.com/xkubpise/fatvol"
)

type BlockID uint

// BlockStream is an abstraction layer around a stream to make it look like a
// block device, e.g. a file that can only be read from or written to in
// multiples of its fundamental unit, a "block". For FAT volumes a block is a
// sector.
//
// The exposed fields are for informational purposes only and should never be
// changed.
type BlockStream struct {
	// BytesPerBlock gives the size of a block on this device, in bytes. All reads
	// and writes must be done in integer multiples of this size.
	BytesPerBlock uint
	// TotalBlocks is the total number of blocks in this stream.
	TotalBlocks uint
	// StartOffset is an offset from the beginning of the stream, in bytes, that
	// will be considered the beginning of block 0 for the device.
	StartOffset int64
	stream      io.ReadWriteSeeker
}

func NewBlockStream(
	stream io.ReadWriteSeeker, totalBlocks uint, blockSize uint, startOffset int64,
) *BlockStream {
	return &BlockStream{
		StartOffset:   startOffset,
		BytesPerBlock: blockSize,
		TotalBlocks:   totalBlocks,
		stream:        stream,
	}
}

// NewBasicBlockStream is a constructor that creates a new BlockStream with
// 512-byte blocks and starts from an offset of 0.
func NewBasicBlockStream(stream io.ReadWriteSeeker, totalBlocks uint) *BlockStream {
	return NewBlockStream(stream, totalBlocks, 512, 0)
}

// StreamSize returns the size of the stream in bytes, as given by seeking to
// its end. The stream pointer is left at the end.
func StreamSize(stream io.Seeker) (int64, error) {
	offset, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fatvol.ErrIOFailed.Wrap(err)
	}
	return offset, nil
}

// BlockIDToFileOffset converts a block ID into a byte offset into the backing
// I/O stream.
func (device *BlockStream) BlockIDToFileOffset(blockID BlockID) (int64, error) {
	if uint(blockID) >= device.TotalBlocks {
		return -1,
			fatvol.ErrArgumentOutOfRange.WithMessage(
				fmt.Sprintf(
					"invalid block ID %d: not in range [0, %d)",
					blockID,
					device.TotalBlocks))
	}
	return device.StartOffset + (int64(blockID) * int64(device.BytesPerBlock)), nil
}

// CheckIOBounds checks to see if `dataLength` bytes can be read from or written
// to the block stream, starting at blockID. If the bounds check fails, it returns
// an error indicating exactly what went wrong.
func (device *BlockStream) CheckIOBounds(blockID BlockID, dataLength uint) error {
	if uint(blockID) >= device.TotalBlocks {
		return fatvol.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"invalid block ID %d: not in range [0, %d)",
				blockID,
				device.TotalBlocks))
	}

	if dataLength%device.BytesPerBlock != 0 {
		return fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"data must be a multiple of the block size (%d B), got %d (remainder %d)",
				device.BytesPerBlock,
				dataLength,
				dataLength%device.BytesPerBlock))
	}

	dataSizeInBlocks := dataLength / device.BytesPerBlock
	if uint(blockID)+dataSizeInBlocks > device.TotalBlocks {
		return fatvol.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"block %d plus %d blocks of data extends past end of image",
				blockID,
				dataSizeInBlocks))
	}

	return nil
}

// seekToBlock positions the stream pointer at the byte offset where the given
// block starts.
func (device *BlockStream) seekToBlock(blockID BlockID) error {
	offset, err := device.BlockIDToFileOffset(blockID)
	if err != nil {
		return err
	}
	_, err = device.stream.Seek(offset, io.SeekStart)
	if err != nil {
		return fatvol.ErrIOFailed.Wrap(err)
	}
	return nil
}

// Read reads `count` whole blocks starting from `blockID`.
func (device *BlockStream) Read(blockID BlockID, count uint) ([]byte, error) {
	buffer := make([]byte, device.BytesPerBlock*count)
	err := device.ReadInto(blockID, buffer)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

// ReadInto fills `buffer` with whole blocks starting from `blockID`. The length
// of `buffer` must be a multiple of the block size. A short read is an error.
func (device *BlockStream) ReadInto(blockID BlockID, buffer []byte) error {
	err := device.CheckIOBounds(blockID, uint(len(buffer)))
	if err != nil {
		return err
	}

	err = device.seekToBlock(blockID)
	if err != nil {
		return err
	}

	bytesRead, err := io.ReadFull(device.stream, buffer)
	if err != nil {
		return fatvol.ErrIOFailed.Wrap(
			fmt.Errorf(
				"read %d of %d bytes at block %d: %w",
				bytesRead,
				len(buffer),
				blockID,
				err))
	}
	return nil
}

// Write writes data to the block device. `data` must be a multiple of the block
// size.
func (device *BlockStream) Write(blockID BlockID, data []byte) error {
	err := device.CheckIOBounds(blockID, uint(len(data)))
	if err != nil {
		return err
	}

	err = device.seekToBlock(blockID)
	if err != nil {
		return err
	}

	bytesWritten, err := device.stream.Write(data)
	if err != nil {
		return fatvol.ErrIOFailed.Wrap(err)
	}
	if bytesWritten != len(data) {
		return fatvol.ErrIOFailed.WithMessage(
			fmt.Sprintf(
				"short write at block %d: wrote %d of %d bytes",
				blockID,
				bytesWritten,
				len(data)))
	}
	return nil
}
