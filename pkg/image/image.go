// Package image defines the executable-image contract the loader
// consumes: a header (entry point, executable flag) and a sequence of
// loadable segments (virtual address, file offset, file size, memory
// size, R/W/X flags). Grounded on the teacher's kernel/chentry.go,
// which parses a real ELF header with debug/elf to patch in a boot
// entry point; this core has no on-disk format of its own (spec §1
// calls image parsing an input, not a format to define), so the
// contract is an interface plus an in-memory Reader test double rather
// than a byte-level parser.
package image

// / Segment describes one loadable segment of an image.
type Segment struct {
	Vaddr      uintptr
	FileOffset int
	FileSize   int
	MemSize    int
	Perms      int // defs.PERM_{X,W,R} bits; PERM_USER is implied
}

// / Header describes an image as a whole.
type Header struct {
	Entry      uintptr
	Executable bool
}

// / Image is the contract the loader reads an executable through.
type Image interface {
	Header() Header
	Segments() []Segment

	// / ReadAt copies FileSize bytes of segment seg starting at its
	// / FileOffset into dst, returning the number of bytes copied.
	ReadAt(seg Segment, dst []byte) int
}

// / Reader is an in-memory Image backed by a single byte slice, used by
// / tests and cmd/kernel's demo boot in place of a real on-disk format.
type Reader struct {
	hdr  Header
	segs []Segment
	data []byte
}

// / NewReader builds a Reader over data, with the given header and
// / segment table. Segment file offsets index into data.
func NewReader(data []byte, hdr Header, segs []Segment) *Reader {
	return &Reader{hdr: hdr, segs: segs, data: data}
}

func (r *Reader) Header() Header { return r.hdr }

func (r *Reader) Segments() []Segment { return r.segs }

func (r *Reader) ReadAt(seg Segment, dst []byte) int {
	if seg.FileOffset >= len(r.data) {
		return 0
	}
	src := r.data[seg.FileOffset:]
	if len(src) > seg.FileSize {
		src = src[:seg.FileSize]
	}
	return copy(dst, src)
}
