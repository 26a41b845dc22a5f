package fileread

// Chunk is one entry of a RIFF-style chunk list.
type Chunk struct {
	ID     string
	Length uint32

	// Offset of the chunk payload relative to its parent reader.
	Offset int

	Data *Reader
}

// ChunkList is an ordered list of chunks as they appear in the file.
type ChunkList []Chunk

// Get returns the payload reader of the first chunk with the given id.
// A missing chunk yields an empty reader, so callers can issue reads
// and check the results without a separate existence test.
func (l ChunkList) Get(id string) *Reader {
	for i := range l {
		if l[i].ID == id {
			return New(l[i].Data.data)
		}
	}
	return &Reader{}
}

// Has reports whether a chunk with the given id is present.
func (l ChunkList) Has(id string) bool {
	for i := range l {
		if l[i].ID == id {
			return true
		}
	}
	return false
}

// All returns the payload readers of every chunk with the given id.
func (l ChunkList) All(id string) []*Reader {
	var out []*Reader
	for i := range l {
		if l[i].ID == id {
			out = append(out, New(l[i].Data.data))
		}
	}
	return out
}

// ReadChunks parses the remaining data as a list of chunks made of
// a 4-byte id, a little-endian 32-bit payload length and the payload.
//
// Payloads are padded to a multiple of align bytes (2 for RIFF).
// A truncated final payload is clamped to the available bytes and
// ends the list.
func (r *Reader) ReadChunks(align int) ChunkList {
	if align < 1 {
		align = 1
	}
	var list ChunkList
	for r.CanRead(8) {
		idBytes, _ := r.ReadBytes(4)
		length, _ := r.ReadUint32LE()
		offset := r.pos
		n := int(length)
		if n < 0 || n > r.BytesLeft() {
			n = r.BytesLeft()
		}
		list = append(list, Chunk{
			ID:     string(idBytes),
			Length: length,
			Offset: offset,
			Data:   r.Chunk(n),
		})
		if n != int(length) {
			break
		}
		if pad := n % align; pad != 0 {
			if !r.Skip(align - pad) {
				break
			}
		}
	}
	return list
}
