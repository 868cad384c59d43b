// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package store

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err, "should read embedded migrations directory")

	fileNames := make(map[string]bool)
	for _, entry := range entries {
		fileNames[entry.Name()] = true
	}

	// Every up migration needs a matching down migration.
	assert.True(t, fileNames["000001_init.up.sql"])
	assert.True(t, fileNames["000001_init.down.sql"])
	assert.Zero(t, len(entries)%2, "up/down files must pair off")

	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	for _, entry := range entries {
		assert.True(t, pattern.MatchString(entry.Name()),
			"file %s should match pattern NNNNNN_name.(up|down).sql", entry.Name())
	}
}

func TestMigrationsFS_NotEmpty(t *testing.T) {
	for _, name := range []string{
		"migrations/000001_init.up.sql",
		"migrations/000001_init.down.sql",
	} {
		data, err := migrationsFS.ReadFile(name)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}
