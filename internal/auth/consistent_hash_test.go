package auth

import (
	"fmt"
	"testing"
)

func TestGetNodeStable(t *testing.T) {
	ring := NewConsistentHashRing([]string{"auth-node-1", "auth-node-2", "auth-node-3"}, 50)

	nodes := map[string]bool{"auth-node-1": true, "auth-node-2": true, "auth-node-3": true}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("token-%d", i)
		first := ring.GetNode(key)
		if !nodes[first] {
			t.Fatalf("GetNode(%q) = %q, not a ring member", key, first)
		}
		// 同一 key 必须始终落在同一节点
		if again := ring.GetNode(key); again != first {
			t.Fatalf("GetNode(%q) unstable: %q then %q", key, first, again)
		}
	}
}

func TestGetNodeDistributes(t *testing.T) {
	ring := NewConsistentHashRing([]string{"a", "b", "c"}, 50)
	hit := map[string]int{}
	for i := 0; i < 300; i++ {
		hit[ring.GetNode(fmt.Sprintf("token-%d", i))]++
	}
	for _, node := range []string{"a", "b", "c"} {
		if hit[node] == 0 {
			t.Errorf("node %q received no keys: %v", node, hit)
		}
	}
}

func TestRingDefaultsToSingleNode(t *testing.T) {
	ring := NewConsistentHashRing(nil, 0)
	if got := ring.GetNode("any-token"); got == "" {
		t.Fatal("empty ring should fall back to a default node")
	}
}

func TestAddDuplicateNode(t *testing.T) {
	ring := NewConsistentHashRing([]string{"a"}, 10)
	before := len(ring.vnodes)
	ring.Add("a")
	if len(ring.vnodes) != before {
		t.Errorf("duplicate Add grew the ring from %d to %d vnodes", before, len(ring.vnodes))
	}
}
