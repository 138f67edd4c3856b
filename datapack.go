package zmsg

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderLen is the fixed size of the frame header in bytes:
// a 4-byte data length followed by a 4-byte message id, both
// little-endian unsigned integers.
const HeaderLen = 8

// DefaultMaxFrameLen is the maximum payload size accepted by a
// DataPack created with NewDataPack(0). Frames advertising a larger
// payload are rejected before any payload byte is read, which bounds
// the memory a single connection can make the server allocate.
const DefaultMaxFrameLen = 4 << 20 // 4 MiB

// Errors returned by DataPack operations.
var (
	// ErrInvalidHeader is returned when a header slice is not exactly HeaderLen bytes.
	ErrInvalidHeader = errors.New("invalid frame header")
	// ErrFrameTooLarge is returned when a payload exceeds the configured maximum.
	ErrFrameTooLarge = errors.New("frame exceeds maximum length")
)

// DataPack packs and unpacks frames of the wire protocol:
//
//	[4 bytes: data length][4 bytes: message id][N bytes: payload]
//
// Both header fields are little-endian. The fixed-size header lets the
// read loop know exactly how many bytes to pull before sizing the
// payload buffer, so partial TCP reads never produce ambiguous framing.
//
// A DataPack is stateless apart from its configured maximum and is safe
// for concurrent use.
type DataPack struct {
	maxFrameLen uint32
}

// NewDataPack creates a DataPack enforcing the given maximum payload
// length. Zero selects DefaultMaxFrameLen.
func NewDataPack(maxFrameLen uint32) *DataPack {
	if maxFrameLen == 0 {
		maxFrameLen = DefaultMaxFrameLen
	}
	return &DataPack{maxFrameLen: maxFrameLen}
}

// MaxFrameLen returns the maximum payload length this DataPack accepts.
func (p *DataPack) MaxFrameLen() uint32 {
	return p.maxFrameLen
}

// Pack encodes a message id and payload into a complete frame. The
// result is always HeaderLen+len(data) bytes. Returns ErrFrameTooLarge
// when the payload exceeds the configured maximum.
func (p *DataPack) Pack(msgID uint32, data []byte) ([]byte, error) {
	if uint64(len(data)) > uint64(p.maxFrameLen) {
		return nil, errors.Wrapf(ErrFrameTooLarge, "pack %d bytes, max %d", len(data), p.maxFrameLen)
	}

	buf := make([]byte, HeaderLen+len(data))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(data)))
	binary.LittleEndian.PutUint32(buf[4:8], msgID)
	copy(buf[HeaderLen:], data)

	return buf, nil
}

// UnpackHeader decodes a frame header into its message id and payload
// length. The input must be exactly HeaderLen bytes. Returns
// ErrFrameTooLarge when the advertised payload length exceeds the
// configured maximum; the caller must not read the payload in that case.
func (p *DataPack) UnpackHeader(header []byte) (msgID uint32, dataLen uint32, err error) {
	if len(header) != HeaderLen {
		return 0, 0, errors.Wrapf(ErrInvalidHeader, "got %d bytes, want %d", len(header), HeaderLen)
	}

	dataLen = binary.LittleEndian.Uint32(header[0:4])
	msgID = binary.LittleEndian.Uint32(header[4:8])

	if dataLen > p.maxFrameLen {
		return 0, 0, errors.Wrapf(ErrFrameTooLarge, "header advertises %d bytes, max %d", dataLen, p.maxFrameLen)
	}

	return msgID, dataLen, nil
}
