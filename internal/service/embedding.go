package service

import (
	"math"

	pgvector "github.com/pgvector/pgvector-go"
	"golang.org/x/crypto/blake2b"

	"github.com/pageza/pantrychef/backend/internal/models"
)

// StockFingerprint returns a deterministic, L2-normalized vector describing a
// stock snapshot. Each usable ingredient is hashed into one of
// models.FingerprintDims buckets with a sign, weighted by log(1+quantity), so
// similar pantries land close together. An empty snapshot yields the zero
// vector.
func StockFingerprint(stock Snapshot) pgvector.Vector {
	v := make([]float32, models.FingerprintDims)
	for _, item := range stock.Usable() {
		sum := blake2b.Sum256([]byte(item.Name))
		bucket := int(sum[0]) % models.FingerprintDims
		weight := math.Log1p(item.Quantity)
		if sum[1]&1 == 1 {
			weight = -weight
		}
		v[bucket] += float32(weight)
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range v {
			v[i] /= n
		}
	}
	return pgvector.NewVector(v)
}
