package database

import (
	"io/fs"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := fs.ReadFile(embedMigrations, path.Join("migrations", name))
	require.NoError(t, err, name)
	return string(content)
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := fs.Glob(embedMigrations, "migrations/*.sql")
	require.NoError(t, err)
	onDisk, err := os.ReadDir("migrations")
	require.NoError(t, err)

	require.Len(t, embedded, 14)
	assert.Len(t, onDisk, len(embedded))
	for i, name := range embedded {
		assert.True(t, strings.HasPrefix(path.Base(name), []string{
			"00001", "00002", "00003", "00004", "00005", "00006", "00007",
			"00008", "00009", "00010", "00011", "00012", "00013", "00014",
		}[i]), name)
	}
}

func TestEveryMigrationIsReversible(t *testing.T) {
	names, err := fs.Glob(embedMigrations, "migrations/*.sql")
	require.NoError(t, err)

	for _, name := range names {
		content := readMigration(t, path.Base(name))
		up, down, found := strings.Cut(content, "-- +goose Down")
		require.True(t, found, "%s has no down section", name)
		assert.Contains(t, up, "-- +goose Up", name)
		for _, section := range []string{up, down} {
			assert.Equal(t,
				strings.Count(section, "-- +goose StatementBegin"),
				strings.Count(section, "-- +goose StatementEnd"), name)
		}
	}
}

func TestTablesAreCreatedAndDropped(t *testing.T) {
	tables := []struct{ table, file string }{
		{"users", "00001_create_users_table.sql"},
		{"refresh_tokens", "00002_create_refresh_tokens_table.sql"},
		{"categories", "00003_create_categories_table.sql"},
		{"subcategories", "00003_create_categories_table.sql"},
		{"products", "00004_create_products_table.sql"},
		{"product_variants", "00005_create_product_variants_table.sql"},
		{"cart_items", "00006_create_cart_items_table.sql"},
		{"addresses", "00007_create_addresses_table.sql"},
		{"orders", "00008_create_orders_table.sql"},
		{"order_items", "00009_create_order_items_table.sql"},
		{"pre_orders", "00010_create_pre_orders_table.sql"},
		{"banners", "00011_create_banners_table.sql"},
		{"site_settings", "00012_create_site_settings_table.sql"},
		{"activity_logs", "00013_create_activity_logs_table.sql"},
	}

	for _, tt := range tables {
		t.Run(tt.table, func(t *testing.T) {
			content := readMigration(t, tt.file)
			assert.Contains(t, content, "CREATE TABLE IF NOT EXISTS "+tt.table+" (")
			assert.Contains(t, content, "DROP TABLE IF EXISTS "+tt.table+";")
		})
	}
}

func TestSchemaConstraints(t *testing.T) {
	tests := []struct {
		file string
		want []string
	}{
		{"00002_create_refresh_tokens_table.sql", []string{"token_hash CHAR(64) UNIQUE NOT NULL", "ON DELETE CASCADE"}},
		{"00004_create_products_table.sql", []string{
			"id UUID PRIMARY KEY", "price DECIMAL", "mrp DECIMAL", "stock INTEGER",
			"preorder_enabled BOOLEAN", "preorder_advance DECIMAL", "FOREIGN KEY (category_id)", "CHECK (mrp >= price)",
		}},
		{"00007_create_addresses_table.sql", []string{"ON addresses (user_id) WHERE is_default"}},
		{"00008_create_orders_table.sql", []string{"'pending'", "'confirmed'", "'packed'", "'out_for_delivery'", "'delivered'", "'cancelled'"}},
		{"00010_create_pre_orders_table.sql", []string{"'pending'", "'confirmed'", "'fulfilled'", "'cancelled'"}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			content := readMigration(t, tt.file)
			for _, fragment := range tt.want {
				assert.Contains(t, content, fragment)
			}
		})
	}
}
