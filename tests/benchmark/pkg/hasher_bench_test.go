package benchmark

import (
	"fmt"
	"testing"

	"waterflow/pkg/cache"
)

func BenchmarkNetworkHash_Pipeline(b *testing.B) {
	sizes := []int{10, 50, 100, 500, 1000}

	for _, size := range sizes {
		network := pipelineNetwork(size)
		b.Run(fmt.Sprintf("nodes_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				cache.NetworkHash(network)
			}
		})
	}
}

func BenchmarkNetworkHash_Grid(b *testing.B) {
	sizes := []int{5, 10, 20}

	for _, size := range sizes {
		network := gridNetwork(size, size)
		b.Run(fmt.Sprintf("grid_%dx%d", size, size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				cache.NetworkHash(network)
			}
		})
	}
}

func BenchmarkQuickHash(b *testing.B) {
	sizes := []int{64, 256, 1024, 4096, 16384}

	for _, size := range sizes {
		data := make([]byte, size)
		b.Run(fmt.Sprintf("size_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				cache.QuickHash(data)
			}
		})
	}
}

func BenchmarkShortHash(b *testing.B) {
	data := make([]byte, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.ShortHash(data)
	}
}

func BenchmarkBuildSolveKey(b *testing.B) {
	networkHash := "abc123def456"
	algorithm := "blocking_flow"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.BuildSolveKey(networkHash, algorithm)
	}
}

func BenchmarkBuildSolveKeyWithOptions(b *testing.B) {
	networkHash := "abc123def456"
	algorithm := "preflow_push"
	optionsHash := "opts789"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.BuildSolveKeyWithOptions(networkHash, algorithm, optionsHash)
	}
}
