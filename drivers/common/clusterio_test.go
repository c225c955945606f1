package common_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkubpise/fatvol"
	c "github.com/xkubpise/fatvol/drivers/common"
	fvtest "github.com/xkubpise/fatvol/testing"
)

func newTestClusterStream(t *testing.T) *c.ClusterStream {
	image, _ := fvtest.NewBlankImage(t, 512*20)
	blocks := c.NewBasicBlockStream(image, 20)

	// Clusters 2-5, two blocks each, beginning at block 10.
	clusters, err := c.NewClusterStream(blocks, 2, 10, 2, 5)
	require.NoError(t, err)
	return clusters
}

func TestNewClusterStreamValidation(t *testing.T) {
	image, _ := fvtest.NewBlankImage(t, 512*20)
	blocks := c.NewBasicBlockStream(image, 20)

	_, err := c.NewClusterStream(blocks, 0, 10, 2, 5)
	assert.ErrorIs(t, err, fatvol.ErrInvalidArgument)

	_, err = c.NewClusterStream(blocks, 2, 10, 5, 2)
	assert.ErrorIs(t, err, fatvol.ErrInvalidArgument)

	_, err = c.NewClusterStream(blocks, 2, 10, 2, 6)
	assert.NoError(t, err, "clusters 2-6 end exactly at the last block")

	_, err = c.NewClusterStream(blocks, 2, 10, 2, 7)
	assert.ErrorIs(t, err, fatvol.ErrArgumentOutOfRange)
}

func TestClusterIDToBlock(t *testing.T) {
	clusters := newTestClusterStream(t)
	assert.EqualValues(t, 1024, clusters.BytesPerCluster())

	block, err := clusters.ClusterIDToBlock(2)
	require.NoError(t, err)
	assert.EqualValues(t, 10, block)

	block, err = clusters.ClusterIDToBlock(5)
	require.NoError(t, err)
	assert.EqualValues(t, 16, block)

	_, err = clusters.ClusterIDToBlock(1)
	assert.ErrorIs(t, err, fatvol.ErrArgumentOutOfRange)
	_, err = clusters.ClusterIDToBlock(6)
	assert.ErrorIs(t, err, fatvol.ErrArgumentOutOfRange)
}

func TestClusterReadWrite(t *testing.T) {
	clusters := newTestClusterStream(t)

	data := bytes.Repeat([]byte{7}, 2048)
	require.NoError(t, clusters.Write(3, data))

	cluster, err := clusters.Read(4)
	require.NoError(t, err)
	assert.Equal(t, data[1024:], cluster)

	err = clusters.Write(5, data)
	assert.ErrorIs(t, err, fatvol.ErrArgumentOutOfRange, "write runs past last cluster")

	err = clusters.Write(2, data[:100])
	assert.ErrorIs(t, err, fatvol.ErrInvalidArgument)
}

func TestWriteBlockInCluster(t *testing.T) {
	clusters := newTestClusterStream(t)

	sector := bytes.Repeat([]byte{0x42}, 512)
	require.NoError(t, clusters.WriteBlockInCluster(3, 1, sector))

	cluster, err := clusters.Read(3)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 512), cluster[:512])
	assert.Equal(t, sector, cluster[512:])

	assert.ErrorIs(
		t, clusters.WriteBlockInCluster(3, 2, sector), fatvol.ErrArgumentOutOfRange)
	assert.ErrorIs(
		t, clusters.WriteBlockInCluster(3, 0, sector[:10]), fatvol.ErrInvalidArgument)
}
