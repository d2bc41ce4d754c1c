package memory_test

import (
	"testing"

	"github.com/aretw0/nonplanar/pkg/adapters/memory"
	"github.com/aretw0/nonplanar/pkg/ports"
)

var _ ports.JobStore = (*memory.Store)(nil)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunJobStoreContract(t, store)
}
