package cache

import (
	"testing"

	"waterflow/internal/engine"
	"waterflow/internal/waternet"
)

func testNetwork(t *testing.T, nodes []waternet.Node, edges []waternet.Edge) *waternet.Network {
	t.Helper()
	n, err := waternet.NewNetwork(nodes, edges, "S", "T")
	if err != nil {
		t.Fatalf("failed to build network: %v", err)
	}
	return n
}

func TestNetworkHash_Deterministic(t *testing.T) {
	n := testNetwork(t,
		[]waternet.Node{
			{ID: "S", Role: waternet.RoleSource},
			{ID: "A", Role: waternet.RoleJunction},
			{ID: "T", Role: waternet.RoleSink},
		},
		[]waternet.Edge{
			{From: "S", To: "A", Capacity: 10},
			{From: "A", To: "T", Capacity: 8},
		})

	h1 := NetworkHash(n)
	h2 := NetworkHash(n)

	if h1 == "" {
		t.Fatal("expected non-empty hash")
	}
	if h1 != h2 {
		t.Errorf("hash is not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(h1))
	}
}

func TestNetworkHash_OrderIndependent(t *testing.T) {
	n1 := testNetwork(t,
		[]waternet.Node{
			{ID: "S", Role: waternet.RoleSource},
			{ID: "A", Role: waternet.RoleJunction},
			{ID: "B", Role: waternet.RoleJunction},
			{ID: "T", Role: waternet.RoleSink},
		},
		[]waternet.Edge{
			{From: "S", To: "A", Capacity: 10},
			{From: "S", To: "B", Capacity: 10},
			{From: "A", To: "T", Capacity: 10},
			{From: "B", To: "T", Capacity: 10},
		})

	// Те же узлы и рёбра в другом порядке объявления
	n2 := testNetwork(t,
		[]waternet.Node{
			{ID: "T", Role: waternet.RoleSink},
			{ID: "B", Role: waternet.RoleJunction},
			{ID: "A", Role: waternet.RoleJunction},
			{ID: "S", Role: waternet.RoleSource},
		},
		[]waternet.Edge{
			{From: "B", To: "T", Capacity: 10},
			{From: "A", To: "T", Capacity: 10},
			{From: "S", To: "B", Capacity: 10},
			{From: "S", To: "A", Capacity: 10},
		})

	if NetworkHash(n1) != NetworkHash(n2) {
		t.Error("declaration order must not change the hash")
	}
}

func TestNetworkHash_CapacityChanges(t *testing.T) {
	nodes := []waternet.Node{
		{ID: "S", Role: waternet.RoleSource},
		{ID: "T", Role: waternet.RoleSink},
	}

	n1 := testNetwork(t, nodes, []waternet.Edge{{From: "S", To: "T", Capacity: 10}})
	n2 := testNetwork(t, nodes, []waternet.Edge{{From: "S", To: "T", Capacity: 11}})

	if NetworkHash(n1) == NetworkHash(n2) {
		t.Error("capacity change must change the hash")
	}
}

func TestNetworkHash_Nil(t *testing.T) {
	if h := NetworkHash(nil); h != "" {
		t.Errorf("expected empty hash for nil network, got %s", h)
	}
}

func TestBuildSolveKey(t *testing.T) {
	key := BuildSolveKey("abc123", "blocking_flow")
	if key != "solve:blocking_flow:abc123" {
		t.Errorf("unexpected key: %s", key)
	}

	// Хеш сети остаётся последним сегментом, иначе инвалидация
	// по шаблону "solve:*:<хеш>" перестанет находить ключи с опциями
	key = BuildSolveKeyWithOptions("abc123", "blocking_flow", "opt456")
	if key != "solve:blocking_flow:opt456:abc123" {
		t.Errorf("unexpected key: %s", key)
	}

	key = BuildSolveKeyWithOptions("abc123", "blocking_flow", "")
	if key != "solve:blocking_flow:abc123" {
		t.Errorf("empty options hash must fall back to base key, got %s", key)
	}
}

func TestSolveOptionsHash(t *testing.T) {
	if h := SolveOptionsHash(nil); h != "" {
		t.Errorf("nil options must hash to empty string, got %s", h)
	}
	if h := SolveOptionsHash(engine.DefaultOptions()); h != "" {
		t.Errorf("default options must hash to empty string, got %s", h)
	}
	// Трассировка поток не меняет и в хеш не входит
	if h := SolveOptionsHash(&engine.Options{Trace: &engine.MemoryRecorder{}}); h != "" {
		t.Errorf("trace-only options must hash to empty string, got %s", h)
	}

	budgeted := SolveOptionsHash(&engine.Options{MaxIterations: 1})
	if budgeted == "" {
		t.Fatal("non-default budget must produce a hash")
	}
	if other := SolveOptionsHash(&engine.Options{MaxIterations: 2}); other == budgeted {
		t.Error("different budgets must hash differently")
	}
	if again := SolveOptionsHash(&engine.Options{MaxIterations: 1}); again != budgeted {
		t.Error("equal options must hash equally")
	}
}

func TestQuickHash(t *testing.T) {
	h1 := QuickHash([]byte("hello"))
	h2 := QuickHash([]byte("hello"))
	h3 := QuickHash([]byte("world"))

	if h1 != h2 {
		t.Error("same data must produce same hash")
	}
	if h1 == h3 {
		t.Error("different data must produce different hash")
	}
	if len(ShortHash([]byte("hello"))) != 16 {
		t.Error("short hash must be 16 chars")
	}
}
