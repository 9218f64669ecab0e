package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	t.Cleanup(a.teardown)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPerftCommand(t *testing.T) {
	out, err := execute(t, "perft", "--depth", "3", "--no-storage")
	require.NoError(t, err)
	assert.Contains(t, out, "Nodes: 8902\n")

	out, err = execute(t, "perft", "-d", "1", "--divide", "--no-storage",
		"--fen", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	assert.Contains(t, out, "e1g1: 1\n")
	assert.Contains(t, out, "Nodes: 48\n")

	_, err = execute(t, "perft", "--depth", "0", "--no-storage")
	assert.Error(t, err)
}

func TestSearchCommand(t *testing.T) {
	out, err := execute(t, "search", "--depth", "3", "--no-storage",
		"--fen", "6k1/5ppp/8/8/8/8/8/R6K w - - 0 1")
	require.NoError(t, err)
	assert.Contains(t, out, "bestmove a1a8\n")
	assert.Contains(t, out, "san Ra8#\n")
	assert.Contains(t, out, "strategy alphabeta")

	out, err = execute(t, "search", "--mode", "mcts", "--simulations", "64", "--moves", "e2e4,e5", "--no-storage")
	require.NoError(t, err)
	assert.Contains(t, out, "strategy mcts")

	out, err = execute(t, "search", "--no-storage", "--fen", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	require.NoError(t, err)
	assert.Contains(t, out, "no move: stalemate")

	_, err = execute(t, "search", "--mode", "random", "--no-storage")
	assert.Error(t, err)
}

func TestSearchCommandPersists(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "search", "--depth", "2", "--data-dir", dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "db"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aaschess.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  mode: hybrid\n"), 0o644))

	out, err := execute(t, "search", "--depth", "2", "--no-storage", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "strategy hybrid")

	require.NoError(t, os.WriteFile(path, []byte("engine:\n  mode: minimax\n"), 0o644))
	_, err = execute(t, "search", "--depth", "2", "--no-storage", "--config", path)
	assert.ErrorContains(t, err, "searchmode")
}
