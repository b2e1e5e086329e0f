package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostdesk/internal/infra/config"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "reconcile", "relay", "feeds"})

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("with-relay"))

	reconcile, _, err := root.Find([]string{"reconcile"})
	require.NoError(t, err)
	assert.NotNil(t, reconcile.Flags().Lookup("force"))
	assert.NotNil(t, reconcile.Flags().Lookup("property"))
}

func TestOpenMemoryStorage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := openStorage(context.Background(), config.Config{StorageDriver: config.DriverMemory}, logger)
	require.NoError(t, err)
	assert.NotNil(t, st.factory)
	assert.NotNil(t, st.idempotency)
	assert.NotNil(t, st.relay)
	assert.Same(t, st.inbox("a"), st.inbox("b"))
	require.NoError(t, st.migrate(context.Background()))
	require.NoError(t, st.close(context.Background()))

	_, err = openStorage(context.Background(), config.Config{StorageDriver: "cassandra"}, logger)
	assert.Error(t, err)
}
