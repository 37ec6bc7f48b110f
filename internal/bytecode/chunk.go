package bytecode

import "encoding/binary"

// DebugInfo stores the source location one instruction byte came from, so a
// runtime error or a disassembly dump can point back at source text.
type DebugInfo struct {
	Line     int
	Column   int
	File     string
	Function string
}

// Chunk is the low-level byte emitter shared by every function's code: a
// single flat instruction stream, one parallel Debug entry per byte, and
// the constant pool instructions reference by index.
type Chunk struct {
	Code      []byte
	Constants []interface{}
	Debug     []DebugInfo
}

func NewChunk() *Chunk {
	return &Chunk{Code: []byte{}, Constants: []interface{}{}, Debug: []DebugInfo{}}
}

func (c *Chunk) WriteOp(op OpCode) int {
	pos := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Debug = append(c.Debug, DebugInfo{})
	return pos
}

func (c *Chunk) WriteOpWithDebug(op OpCode, debug DebugInfo) int {
	pos := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Debug = append(c.Debug, debug)
	return pos
}

func (c *Chunk) WriteByte(b byte) {
	c.Code = append(c.Code, b)
	c.Debug = append(c.Debug, DebugInfo{})
}

// WriteUint32 appends a little-endian u32 operand, returning the byte
// offset it was written at (so a forward jump target can be patched later
// with PatchUint32).
func (c *Chunk) WriteUint32(v uint32) int {
	pos := len(c.Code)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	c.Code = append(c.Code, buf[:]...)
	for range buf {
		c.Debug = append(c.Debug, DebugInfo{})
	}
	return pos
}

func (c *Chunk) PatchUint32(pos int, v uint32) {
	binary.LittleEndian.PutUint32(c.Code[pos:pos+4], v)
}

func (c *Chunk) ReadUint32(pos int) uint32 {
	return binary.LittleEndian.Uint32(c.Code[pos : pos+4])
}

func (c *Chunk) AddConstant(val interface{}) int {
	c.Constants = append(c.Constants, val)
	return len(c.Constants) - 1
}

func (c *Chunk) GetDebugInfo(ip int) DebugInfo {
	if ip >= 0 && ip < len(c.Debug) {
		return c.Debug[ip]
	}
	return DebugInfo{}
}

// Len is the current write position, used by the compiler to compute jump
// offsets before a target is known.
func (c *Chunk) Len() int { return len(c.Code) }
