package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrationNamesAreOrdered(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_documents.sql", "0002_document_indexes.sql", "0003_single_use_links.sql"}, names)

	content, err := migrationFiles.ReadFile("migrations/0002_document_indexes.sql")
	require.NoError(t, err)
	assert.Contains(t, string(content), "collection = 'invoices'")

	links, err := migrationFiles.ReadFile("migrations/0003_single_use_links.sql")
	require.NoError(t, err)
	for _, field := range []string{"gatewayOrderId", "gatewayPaymentId", "quoteId", "renewalOfId"} {
		assert.Contains(t, string(links), "data->>'"+field+"'")
	}
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}
