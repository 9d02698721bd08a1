package auth

import (
	"hash/crc32"
	"sort"
	"strconv"
	"sync"
)

// ConsistentHashRing 把登录态缓存按 token 分散到多个鉴权节点，
// 节点增减时只迁移相邻区间的缓存
type ConsistentHashRing struct {
	hash     func(data []byte) uint32
	replicas int
	vnodes   []int // 已排序的虚拟节点哈希
	owners   map[int]string
	seen     map[string]struct{}
	mu       sync.RWMutex
}

// NewConsistentHashRing 创建哈希环。nodes 为空时生成单节点环，
// 单机部署不需要配置节点列表也能工作。
func NewConsistentHashRing(nodes []string, replicas int) *ConsistentHashRing {
	if replicas <= 0 {
		replicas = 50
	}
	if len(nodes) == 0 {
		nodes = []string{"auth-node-1"}
	}
	r := &ConsistentHashRing{
		hash:     crc32.ChecksumIEEE,
		replicas: replicas,
		owners:   make(map[int]string),
		seen:     make(map[string]struct{}),
	}
	r.Add(nodes...)
	return r
}

// Add 批量添加节点，重复节点忽略
func (r *ConsistentHashRing) Add(nodes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, node := range nodes {
		if _, ok := r.seen[node]; ok {
			continue
		}
		r.seen[node] = struct{}{}
		for i := 0; i < r.replicas; i++ {
			h := int(r.hash([]byte(node + "#" + strconv.Itoa(i))))
			r.vnodes = append(r.vnodes, h)
			r.owners[h] = node
		}
	}
	sort.Ints(r.vnodes)
}

// GetNode 返回 key 落在的节点，顺时针取第一个虚拟节点
func (r *ConsistentHashRing) GetNode(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.vnodes) == 0 {
		return ""
	}
	h := int(r.hash([]byte(key)))
	idx := sort.Search(len(r.vnodes), func(i int) bool { return r.vnodes[i] >= h })
	if idx == len(r.vnodes) {
		idx = 0
	}
	return r.owners[r.vnodes[idx]]
}
