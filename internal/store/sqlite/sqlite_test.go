package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lodestone-app/lodestone/internal/store"
	"github.com/lodestone-app/lodestone/internal/store/storetest"
)

func TestSQLiteStoreCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(filepath.Join(t.TempDir(), "planner.db"))
		require.NoError(t, err)
		return s
	})
}
