package bird

import (
	"encoding/binary"
	"fmt"
	"io"

	"go.uber.org/zap"
)

const sizeOfFrameSize = 4

// Parser reads length-prefixed update frames from the daemon's export
// stream. The buffer is reused across frames, so a decoded Update must not
// retain the raw bytes.
type Parser struct {
	reader io.Reader
	buf    []byte
	log    *zap.SugaredLogger
}

func NewParser(r io.Reader, bufSize int, log *zap.SugaredLogger) *Parser {
	return &Parser{
		reader: r,
		buf:    make([]byte, bufSize),
		log:    log,
	}
}

func (m *Parser) readFrame(size int) error {
	if size > len(m.buf) {
		return fmt.Errorf("frame size %d exceeds buffer size %d", size, len(m.buf))
	}
	_, err := io.ReadFull(m.reader, m.buf[:size])
	return err
}

func (m *Parser) readFrameSize() (uint32, error) {
	if err := m.readFrame(sizeOfFrameSize); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.buf[:sizeOfFrameSize]), nil
}

// Next reads and decodes the next route update from the stream.
func (m *Parser) Next() (Update, error) {
	frameSize, err := m.readFrameSize()
	if err != nil {
		return Update{}, fmt.Errorf("parser.readFrameSize: %w", err)
	}
	// The frame is consumed even when it turns out to be malformed, so a
	// decode error never desynchronizes the stream.
	if err := m.readFrame(int(frameSize)); err != nil {
		return Update{}, fmt.Errorf("m.readFrame(%d): %w", frameSize, err)
	}

	update, err := decodeUpdate(m.buf[:frameSize])
	if err != nil {
		m.log.Debugw("malformed update frame",
			zap.Uint32("size", frameSize), zap.Error(err))
	}
	return update, err
}
