package fat32

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xkubpise/fatvol"
	c "github.com/xkubpise/fatvol/drivers/common"
)

// Node is a transient view of one directory entry.
type Node struct {
	Name         string
	FirstCluster c.ClusterID
	IsDirectory  bool
	// Parent is the cluster of the directory holding the entry.
	Parent c.ClusterID
}

// readDirectory returns the raw contents of the directory in `cluster`.
func (v *Volume) readDirectory(cluster c.ClusterID) ([]byte, error) {
	err := v.geo.CheckCluster(cluster)
	if err != nil {
		return nil, err
	}
	return v.clusters.Read(cluster)
}

// direntAt decodes slot `index` of a directory cluster.
func direntAt(data []byte, index uint) RawDirent {
	// Can't fail, every slot is a full DirentSize bytes.
	dirent, _ := ParseDirent(data[index*DirentSize:])
	return dirent
}

// scanEntries calls `visit` for each live entry of a directory cluster in
// on-disk order. Deleted and long-name entries are skipped, and the scan ends
// at the first end-of-directory marker or when `visit` returns false.
func (v *Volume) scanEntries(data []byte, visit func(index uint, dirent *RawDirent) bool) {
	for index := uint(0); index < v.geo.DirentsPerCluster; index++ {
		dirent := direntAt(data, index)
		if dirent.IsEndOfDirectory() {
			return
		}
		if dirent.IsDeleted() || dirent.IsLongName() {
			continue
		}
		if !visit(index, &dirent) {
			return
		}
	}
}

// firstFreeSlot returns the index of the first slot in a directory cluster
// that is either unused or deleted.
func (v *Volume) firstFreeSlot(data []byte) (uint, bool) {
	for index := uint(0); index < v.geo.DirentsPerCluster; index++ {
		dirent := direntAt(data, index)
		if dirent.IsFree() {
			return index, true
		}
	}
	return 0, false
}

// parentOf returns the cluster pointed to by the ".." entry of a directory.
// A ".." entry pointing at cluster 0 means the root.
func (v *Volume) parentOf(cluster c.ClusterID, data []byte) (c.ClusterID, error) {
	parent := c.ClusterID(0)
	found := false

	v.scanEntries(data, func(_ uint, dirent *RawDirent) bool {
		if dirent.Name == dotDotName && dirent.IsDirectory() {
			parent = dirent.FirstCluster()
			found = true
			return false
		}
		return true
	})

	if !found {
		return 0, fatvol.ErrNotFound.WithMessage(
			fmt.Sprintf("directory at cluster %d has no \"..\" entry", cluster))
	}
	if parent == 0 {
		return RootCluster, nil
	}
	return parent, nil
}

// FindSubdirectory returns the cluster of the folder `name` inside the
// directory at `cluster`. "." gives `cluster` itself and ".." its parent. A
// name that isn't a legal folder name can't match anything.
func (v *Volume) FindSubdirectory(name string, cluster c.ClusterID) (c.ClusterID, error) {
	err := v.geo.CheckCluster(cluster)
	if err != nil {
		return 0, err
	}
	if name == "." {
		return cluster, nil
	}

	data, err := v.readDirectory(cluster)
	if err != nil {
		return 0, err
	}
	if name == ".." {
		return v.parentOf(cluster, data)
	}

	upper, err := ValidateShortName(name, fatvol.KindFolder)
	if err != nil {
		return 0, err
	}
	target, err := EncodeShortName(upper)
	if err != nil {
		return 0, err
	}

	var result c.ClusterID
	var notFolder bool
	v.scanEntries(data, func(_ uint, dirent *RawDirent) bool {
		if dirent.Name != target {
			return true
		}
		if !dirent.IsDirectory() {
			notFolder = true
			return true
		}
		result = dirent.FirstCluster()
		return false
	})

	if result != 0 {
		return result, nil
	}
	if notFolder {
		return 0, fatvol.ErrNotADirectory.WithMessage(
			fmt.Sprintf("%q in cluster %d is a file", name, cluster))
	}
	return 0, fatvol.ErrNotFound.WithMessage(
		fmt.Sprintf("no folder %q in cluster %d", name, cluster))
}

// ResolvePath follows a "/"-separated path of folder names and returns the
// cluster it ends at. A leading "/" starts at the root, otherwise resolution
// starts at `start`. Relative paths are refused if the volume requires
// absolute ones.
func (v *Volume) ResolvePath(path string, start c.ClusterID) (c.ClusterID, error) {
	if path == "" {
		return 0, fatvol.ErrInvalidArgument.WithMessage("no path provided")
	}

	absolute := path[0] == '/'
	if v.requireAbsolutePaths && !absolute {
		return 0, fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("absolute path is required, got %q", path))
	}

	for i := 0; i < len(path); i++ {
		if !IsLegalShortChar(path[i], true, true) {
			return 0, fatvol.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("invalid character %q in path %q", path[i], path))
		}
	}

	current := start
	if absolute {
		current = RootCluster
	} else if err := v.geo.CheckCluster(current); err != nil {
		return 0, err
	}

	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}

		next, err := v.FindSubdirectory(segment, current)
		if err != nil {
			if errors.Is(err, fatvol.ErrIOFailed) {
				return 0, err
			}
			return 0, fatvol.ErrNotFound.WithMessage(
				fmt.Sprintf("directory %q from the path %q not found", segment, path),
			).Wrap(err)
		}
		current = next
	}
	return current, nil
}

// findNameByCluster returns the display name of the folder in `parent` whose
// entry points at `target`.
func (v *Volume) findNameByCluster(parent, target c.ClusterID) (string, error) {
	data, err := v.readDirectory(parent)
	if err != nil {
		return "", err
	}

	name := ""
	v.scanEntries(data, func(_ uint, dirent *RawDirent) bool {
		if dirent.IsDirectory() && !dirent.IsDotEntry() && dirent.FirstCluster() == target {
			name = DecodeShortName(dirent.Name)
			return false
		}
		return true
	})

	if name == "" {
		return "", fatvol.ErrNotFound.WithMessage(
			fmt.Sprintf("no entry in cluster %d points to cluster %d", parent, target))
	}
	return name, nil
}

// BuildPathToRoot returns the absolute, lowercase path of the folder at
// `cluster` by following ".." entries up to the root, which renders as "/".
// If a parent or name can't be found, the part of the path recovered so far is
// returned. A path longer than `maxLength` bytes fails with
// [fatvol.ErrResultOutOfRange].
func (v *Volume) BuildPathToRoot(cluster c.ClusterID, maxLength int) (string, error) {
	if maxLength < 1 {
		return "", fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("path buffer must hold at least one byte, got %d", maxLength))
	}
	err := v.geo.CheckCluster(cluster)
	if err != nil {
		return "", err
	}

	var segments []string
	length := 0
	visited := map[c.ClusterID]bool{cluster: true}

	for current := cluster; current != RootCluster; {
		parent, err := v.FindSubdirectory("..", current)
		if err == nil {
			var name string
			name, err = v.findNameByCluster(parent, current)
			if err == nil {
				length += len(name) + 1
				if length > maxLength {
					return "", fatvol.ErrResultOutOfRange.WithMessage(
						fmt.Sprintf(
							"path of cluster %d is longer than %d bytes", cluster, maxLength))
				}
				segments = append(segments, name)
			}
		}

		if err != nil {
			if errors.Is(err, fatvol.ErrIOFailed) {
				return "", err
			}
			v.log.WithFields(logrus.Fields{
				"cluster": current,
				"error":   err,
			}).Debug("stopped walking toward root")
			break
		}

		if visited[parent] {
			return "", fatvol.ErrFileSystemCorrupted.WithMessage(
				fmt.Sprintf("\"..\" entries loop back to cluster %d", parent))
		}
		visited[parent] = true
		current = parent
	}

	if len(segments) == 0 {
		return "/", nil
	}

	var builder strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		builder.WriteByte('/')
		builder.WriteString(segments[i])
	}
	return strings.ToLower(builder.String()), nil
}

// FindFirstFreeEntry returns the index of the first unused or deleted slot in
// the directory at `cluster`. A full directory gives
// [fatvol.ErrNoSpaceOnDevice].
func (v *Volume) FindFirstFreeEntry(cluster c.ClusterID) (uint, error) {
	data, err := v.readDirectory(cluster)
	if err != nil {
		return 0, err
	}

	index, ok := v.firstFreeSlot(data)
	if !ok {
		return 0, fatvol.ErrNoSpaceOnDevice.WithMessage(
			fmt.Sprintf("no free entries in directory at cluster %d", cluster))
	}
	return index, nil
}

// CollectNames returns the sorted display names of every entry in the
// directory at `cluster`, including "." and "..".
func (v *Volume) CollectNames(cluster c.ClusterID) ([]string, error) {
	data, err := v.readDirectory(cluster)
	if err != nil {
		return nil, err
	}

	names := []string{}
	v.scanEntries(data, func(_ uint, dirent *RawDirent) bool {
		names = append(names, DecodeShortName(dirent.Name))
		return true
	})
	sort.Strings(names)
	return names, nil
}

// ListDirectory is like [Volume.CollectNames] but returns full nodes, sorted
// by name.
func (v *Volume) ListDirectory(cluster c.ClusterID) ([]Node, error) {
	data, err := v.readDirectory(cluster)
	if err != nil {
		return nil, err
	}

	nodes := []Node{}
	v.scanEntries(data, func(_ uint, dirent *RawDirent) bool {
		nodes = append(nodes, Node{
			Name:         DecodeShortName(dirent.Name),
			FirstCluster: dirent.FirstCluster(),
			IsDirectory:  dirent.IsDirectory(),
			Parent:       cluster,
		})
		return true
	})

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Name < nodes[j].Name
	})
	return nodes, nil
}
