package bird

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Applier receives decoded route updates in batches, in stream order.
// The batch slice is reused between calls; the applier must copy anything
// it keeps.
type Applier func([]Update) error

type exportSocket struct {
	path    string
	bufSize int
}

// Export reads route updates from the daemon's export sockets, batches them
// and hands the batches to the applier.
type Export struct {
	sockets []exportSocket
	cfg     *Config
	apply   Applier
	log     *zap.SugaredLogger
}

func NewExportReader(cfg *Config, apply Applier, log *zap.SugaredLogger) *Export {
	sockets := make([]exportSocket, 0, len(cfg.Sockets))
	for _, s := range cfg.Sockets {
		sockets = append(sockets, exportSocket{
			path:    s,
			bufSize: int(cfg.ParserBufSize.Bytes()),
		})
	}
	return &Export{
		sockets: sockets,
		cfg:     cfg,
		apply:   apply,
		log:     log,
	}
}

// Run reads from all configured sockets until the context is canceled.
// Lost connections are re-dialed with exponential backoff; the reader only
// gives up when the context does.
func (m *Export) Run(ctx context.Context) error {
	if len(m.sockets) == 0 {
		m.log.Info("bird export reader is disabled, no sockets provided")
		return nil
	}

	// A modest buffer decouples the parsers from the batch processor
	// without holding too many routes in flight.
	updates := make(chan Update, 128)

	m.log.Info("starting socket readers for bird export")
	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return m.runBatcher(ctx, updates)
	})
	for _, socket := range m.sockets {
		wg.Go(func() error {
			return m.runSocket(ctx, socket, updates)
		})
	}
	return wg.Wait()
}

func (m *Export) runSocket(ctx context.Context, socket exportSocket, updates chan<- Update) error {
	retry := backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         30 * time.Second,
	}
	retry.Reset()

	for {
		err := m.readSocket(ctx, socket, updates)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, io.EOF):
			m.log.Infow("bird export stream closed, reconnecting",
				zap.String("path", socket.path))
		default:
			m.log.Warnw("bird export reader failed, reconnecting",
				zap.String("path", socket.path), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.NextBackOff()):
		}
	}
}

func (m *Export) readSocket(ctx context.Context, socket exportSocket, updates chan<- Update) error {
	c, err := net.Dial("unix", socket.path)
	if err != nil {
		return fmt.Errorf("failed to dial bird export socket %q: %w", socket.path, err)
	}
	defer c.Close()
	stop := context.AfterFunc(ctx, func() {
		// Unblocks the parser's pending read.
		c.Close()
	})
	defer stop()

	m.log.Infow("connected to bird export socket", zap.String("path", socket.path))

	parser := NewParser(bufio.NewReader(c), socket.bufSize, m.log)
	for {
		update, err := parser.Next()
		if err != nil {
			if errors.Is(err, ErrUpdateDecode) {
				m.log.Warnw("skipping malformed route update", zap.Error(err))
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case updates <- update:
		}
	}
}

func (m *Export) runBatcher(ctx context.Context, updates <-chan Update) error {
	m.log.Info("starting batch processor for bird route updates")

	batch := make([]Update, 0, m.cfg.FlushThreshold)
	tick := time.NewTicker(m.cfg.FlushTimeout)
	defer tick.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := m.apply(batch); err != nil {
			return fmt.Errorf("failed to apply %d route updates: %w", len(batch), err)
		}
		m.log.Debugw("applied route updates", zap.Int("count", len(batch)))
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-updates:
			batch = append(batch, u)
			if len(batch) >= m.cfg.FlushThreshold {
				if err := flush(); err != nil {
					return err
				}
				tick.Reset(m.cfg.FlushTimeout)
			}
		case <-tick.C:
			if err := flush(); err != nil {
				return err
			}
		}
	}
}
