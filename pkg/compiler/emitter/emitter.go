package emitter

// Emitter owns an append-only bytecode buffer. Growth is geometric
// (64 bytes initially, doubling), and patch sites are plain byte
// indices so reallocation never invalidates them.
type Emitter struct {
	buf  []byte
	size int
}

// New returns an empty emitter.
func New() *Emitter {
	return &Emitter{}
}

// Len returns the current stream length, which is also the position
// the next appended byte will occupy.
func (e *Emitter) Len() int {
	return e.size
}

// Bytes returns the emitted stream. The slice aliases the internal
// buffer; use Detach to take ownership.
func (e *Emitter) Bytes() []byte {
	return e.buf[:e.size]
}

// Detach returns the emitted stream and resets the emitter to empty.
func (e *Emitter) Detach() []byte {
	out := e.buf[:e.size:e.size]
	e.buf = nil
	e.size = 0
	return out
}

// Reset discards all emitted bytes but keeps the allocation.
func (e *Emitter) Reset() {
	e.size = 0
}

func (e *Emitter) reserve(n int) {
	if len(e.buf)-e.size >= n {
		return
	}
	capacity := len(e.buf)
	if capacity == 0 {
		capacity = 64
	}
	for capacity-e.size < n {
		capacity *= 2
	}
	grown := make([]byte, capacity)
	copy(grown, e.buf[:e.size])
	e.buf = grown
}

// AppendU8 appends a single byte.
func (e *Emitter) AppendU8(v uint8) {
	e.reserve(1)
	e.buf[e.size] = v
	e.size++
}

// AppendI16 appends a signed 16-bit value in little-endian form.
func (e *Emitter) AppendI16(v int16) {
	e.reserve(2)
	e.buf[e.size] = byte(v)
	e.buf[e.size+1] = byte(v >> 8)
	e.size += 2
}

// AppendI32 appends a signed 32-bit value in little-endian form.
func (e *Emitter) AppendI32(v int32) {
	e.reserve(4)
	e.buf[e.size] = byte(v)
	e.buf[e.size+1] = byte(v >> 8)
	e.buf[e.size+2] = byte(v >> 16)
	e.buf[e.size+3] = byte(v >> 24)
	e.size += 4
}

// PatchI16 overwrites the two bytes at pos with v in little-endian
// form. pos must refer to a previously emitted placeholder.
func (e *Emitter) PatchI16(pos int, v int16) {
	e.buf[pos] = byte(v)
	e.buf[pos+1] = byte(v >> 8)
}

// Truncate shortens the stream to n bytes.
func (e *Emitter) Truncate(n int) {
	if n < e.size {
		e.size = n
	}
}
