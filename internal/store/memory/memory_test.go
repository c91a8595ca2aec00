package memory

import (
	"testing"

	"github.com/lodestone-app/lodestone/internal/store"
	"github.com/lodestone-app/lodestone/internal/store/storetest"
)

func TestMemoryStoreCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}
