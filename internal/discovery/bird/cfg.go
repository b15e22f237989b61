package bird

import (
	"time"

	"github.com/c2h5oh/datasize"
)

// Config describes how route updates are read from the routing daemon.
type Config struct {
	// Sockets are paths to the Unix sockets the daemon exports routes on.
	Sockets []string `yaml:"sockets"`
	// ParserBufSize is the per-socket read buffer. It must hold at least
	// one full update frame.
	ParserBufSize datasize.ByteSize `yaml:"parser_buf_size"`
	// FlushTimeout forces a batch of pending updates into the table even
	// when the threshold has not been reached.
	FlushTimeout time.Duration `yaml:"flush_timeout"`
	// FlushThreshold is the batch size that triggers an immediate apply.
	FlushThreshold int `yaml:"flush_threshold"`
}

func DefaultConfig() *Config {
	return &Config{
		ParserBufSize:  64 * datasize.KB,
		FlushTimeout:   time.Second,
		FlushThreshold: 10_000,
	}
}
