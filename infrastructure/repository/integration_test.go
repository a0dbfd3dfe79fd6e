package repository

import (
	"context"
	"testing"

	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrationRepositoryLoadEmpty(t *testing.T) {
	repo, err := NewIntegrationRepository(newTestDB(t))
	require.NoError(t, err)

	cfg, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domainIntegration.Config{}, cfg)
}

func TestIntegrationRepositorySaveRoundTrip(t *testing.T) {
	repo, err := NewIntegrationRepository(newTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	cfg := domainIntegration.Config{
		TestURL:            "https://test.example/hook",
		ProdURL:            "https://prod.example/hook",
		UseTestURL:         true,
		IAEnabled:          true,
		MassDispatchBypass: true,
	}
	require.NoError(t, repo.Save(ctx, cfg))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	// un segundo save pisa la fila única, no crea otra
	cfg.UseTestURL = false
	require.NoError(t, repo.Save(ctx, cfg))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.False(t, got.UseTestURL)
}
