// Package layout holds the on-disk size constants and the id<->(segment,slot)
// arithmetic shared by every component that addresses inodes or data blocks.
package layout

// Fixed sizes from the wire format (ExFS2 spec section 3/6). These never
// change at runtime: there is no superblock or version field to read them
// from.
const (
	// SegmentSize is the fixed size, in bytes, of every backing segment file.
	SegmentSize = 1024 * 1024
	// BlockSize is the fixed size, in bytes, of the header bitmap block and
	// of every data block.
	BlockSize = 4096
	// MaxFilename is the capacity, including the trailing NUL, of a
	// directory entry's name field.
	MaxFilename = 256
	// MaxPathComponents bounds how many components Split will return.
	MaxPathComponents = 32
	// MaxDirect is the number of direct block pointers an inode carries.
	MaxDirect = 1017
	// PointersPerBlock (P in the spec) is how many 32-bit block ids fit in
	// one indirect block.
	PointersPerBlock = BlockSize / 4

	// NoPointer is the sentinel stored in an inode's indirect/double/triple
	// pointer fields when that tier has not been allocated yet.
	NoPointer int32 = -1
	// FreeInode is the sentinel stored in a directory entry's inode number
	// when the slot is free.
	FreeInode int32 = -1
	// RootInode is the fixed global inode id of the filesystem root.
	RootInode = 0
)

// InodesPerSegment is the number of inode records that fit after the header
// bitmap block, given the on-disk size of one inode record.
func InodesPerSegment(inodeRecordSize int) int {
	return (SegmentSize - BlockSize) / inodeRecordSize
}

// BlocksPerSegment is the number of BlockSize-sized data blocks that fit
// after the header bitmap block of a data segment.
func BlocksPerSegment() int {
	return (SegmentSize - BlockSize) / BlockSize
}

// SplitID decomposes a global id into its owning segment number and the
// slot/block index within that segment.
func SplitID(id, perSegment int) (segment, index int) {
	return id / perSegment, id % perSegment
}

// JoinID computes the global id for a slot/block index within a segment.
func JoinID(segment, index, perSegment int) int {
	return segment*perSegment + index
}
