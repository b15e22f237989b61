package bird

import (
	"context"
	"net"
	"net/netip"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExportReaderAppliesUpdates(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "bird.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer ln.Close()

	cfg := DefaultConfig()
	cfg.Sockets = []string{sock}
	cfg.FlushTimeout = 10 * time.Millisecond

	var mu sync.Mutex
	var got []Update
	apply := func(batch []Update) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, slices.Clone(batch)...)
		return nil
	}

	export := NewExportReader(cfg, apply, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- export.Run(ctx) }()

	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(mkFrame(OpInsert,
		netip.MustParsePrefix("10.0.1.0/24"), netip.MustParseAddr("192.0.2.1"),
		100, 0, []uint32{65001}))
	require.NoError(t, err)
	_, err = conn.Write(mkFrame(OpWithdraw,
		netip.MustParsePrefix("10.0.1.0/24"), netip.Addr{}, 0, 0, nil))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	require.False(t, got[0].Withdraw)
	require.Equal(t, netip.MustParsePrefix("10.0.1.0/24"), got[0].Route.Prefix)
	require.True(t, got[1].Withdraw)
	mu.Unlock()

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestExportReaderDisabled(t *testing.T) {
	export := NewExportReader(DefaultConfig(), nil, zap.NewNop().Sugar())
	require.NoError(t, export.Run(context.Background()))
}
