package common

import (
	"fmt"

	"github.com/xkubpise/fatvol"
)

type ClusterID uint32

// ClusterStream is an abstraction layer for systems that deal with groups of
// multiple blocks, optionally offset from the beginning of the disk. FAT data
// regions are addressed this way, with the first valid cluster being 2.
type ClusterStream struct {
	BlockStream      *BlockStream
	BlocksPerCluster uint
	// FirstBlock is the block where FirstValidCluster begins.
	FirstBlock        BlockID
	FirstValidCluster ClusterID
	// LastValidCluster is inclusive.
	LastValidCluster ClusterID
	bytesPerCluster  uint
}

func NewClusterStream(
	blockStream *BlockStream,
	blocksPerCluster uint,
	firstBlock BlockID,
	firstValidCluster ClusterID,
	lastValidCluster ClusterID,
) (*ClusterStream, error) {
	if blocksPerCluster == 0 {
		return nil, fatvol.ErrInvalidArgument.WithMessage(
			"a cluster must contain at least one block")
	}
	if lastValidCluster < firstValidCluster {
		return nil, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"cluster range is empty: last cluster %d precedes first cluster %d",
				lastValidCluster,
				firstValidCluster))
	}

	clusterSpan := uint(lastValidCluster-firstValidCluster) + 1
	lastBlock := uint(firstBlock) + clusterSpan*blocksPerCluster
	if lastBlock > blockStream.TotalBlocks {
		return nil, fatvol.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"clusters [%d, %d] end at block %d, past the end of a %d-block image",
				firstValidCluster,
				lastValidCluster,
				lastBlock,
				blockStream.TotalBlocks))
	}

	return &ClusterStream{
		BlockStream:       blockStream,
		BlocksPerCluster:  blocksPerCluster,
		FirstBlock:        firstBlock,
		FirstValidCluster: firstValidCluster,
		LastValidCluster:  lastValidCluster,
		bytesPerCluster:   blocksPerCluster * blockStream.BytesPerBlock,
	}, nil
}

// BytesPerCluster returns the size of a single cluster, in bytes.
func (stream *ClusterStream) BytesPerCluster() uint {
	return stream.bytesPerCluster
}

// CheckBounds returns an error if `cluster` isn't in the valid range.
func (stream *ClusterStream) CheckBounds(cluster ClusterID) error {
	if cluster < stream.FirstValidCluster || cluster > stream.LastValidCluster {
		return fatvol.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"invalid cluster ID %d: not in range [%d, %d]",
				cluster,
				stream.FirstValidCluster,
				stream.LastValidCluster))
	}
	return nil
}

// ClusterIDToBlock takes a cluster ID and returns the ID of the first block of
// that cluster.
func (stream *ClusterStream) ClusterIDToBlock(clusterID ClusterID) (BlockID, error) {
	err := stream.CheckBounds(clusterID)
	if err != nil {
		return 0, err
	}
	normalizedCluster := uint(clusterID - stream.FirstValidCluster)
	return stream.FirstBlock + (BlockID(normalizedCluster * stream.BlocksPerCluster)), nil
}

// Read reads the whole of `cluster`.
func (stream *ClusterStream) Read(cluster ClusterID) ([]byte, error) {
	block, err := stream.ClusterIDToBlock(cluster)
	if err != nil {
		return nil, err
	}
	return stream.BlockStream.Read(block, stream.BlocksPerCluster)
}

// Write writes a whole number of clusters starting at `cluster`. The length of
// `data` must be an exact multiple of the cluster size, in bytes.
func (stream *ClusterStream) Write(cluster ClusterID, data []byte) error {
	if uint(len(data))%stream.bytesPerCluster != 0 {
		return fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"data must be a multiple of the cluster size (%d B), got %d (remainder %d)",
				stream.bytesPerCluster,
				len(data),
				uint(len(data))%stream.bytesPerCluster))
	}

	clusterCount := uint(len(data)) / stream.bytesPerCluster
	if clusterCount > 0 {
		err := stream.CheckBounds(cluster + ClusterID(clusterCount-1))
		if err != nil {
			return err
		}
	}

	block, err := stream.ClusterIDToBlock(cluster)
	if err != nil {
		return err
	}
	return stream.BlockStream.Write(block, data)
}

// WriteBlockInCluster writes one block at index `index` (starting from 0) of
// `cluster`. `data` must be exactly one block long.
func (stream *ClusterStream) WriteBlockInCluster(
	cluster ClusterID, index uint, data []byte,
) error {
	if index >= stream.BlocksPerCluster {
		return fatvol.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf(
				"block index %d not in range [0, %d) for cluster %d",
				index,
				stream.BlocksPerCluster,
				cluster))
	}
	if uint(len(data)) != stream.BlockStream.BytesPerBlock {
		return fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"expected exactly one block (%d B) of data, got %d",
				stream.BlockStream.BytesPerBlock,
				len(data)))
	}

	firstBlock, err := stream.ClusterIDToBlock(cluster)
	if err != nil {
		return err
	}
	return stream.BlockStream.Write(firstBlock+BlockID(index), data)
}
