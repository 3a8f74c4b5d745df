// Copyright 2026 © The Agentrt Authors
// SPDX-License-Identifier: Apache-2.0

// Package qdrant implements an optional ANN-backed longmem.VectorIndex.
// It is a pure performance delegate: the spec's required search algorithm
// is the in-process cosine scan in pkg/longmem, and nothing depends on a
// Qdrant deployment being present. When a longmem.Memory is configured
// with an Index, it tries the index first and falls back to the in-process
// scan on any index error.
package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Index is a Qdrant-backed longmem.VectorIndex.
type Index struct {
	client      pb.PointsClient
	collections pb.CollectionsClient
}

// New dials addr and returns a ready Index.
func New(addr string) (*Index, error) {
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant at %s: %w", addr, err)
	}
	return &Index{
		client:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

// EnsureCollection creates the named collection with a cosine-distance
// vector config if it does not already exist.
func (idx *Index) EnsureCollection(ctx context.Context, name string, vectorSize uint64) error {
	_, err := idx.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: vectorSize, Distance: pb.Distance_Cosine},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create qdrant collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes id/vector points into collection.
func (idx *Index) Upsert(ctx context.Context, collection string, ids []string, vectors [][]float32) error {
	points := make([]*pb.PointStruct, len(ids))
	for i := range ids {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: ids[i]}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vectors[i]}}},
		}
	}
	_, err := idx.client.Upsert(ctx, &pb.UpsertPoints{CollectionName: collection, Points: points})
	if err != nil {
		return fmt.Errorf("upsert qdrant points: %w", err)
	}
	return nil
}

// Search returns the ids of the nearest vectors to query, most similar
// first.
func (idx *Index) Search(ctx context.Context, collection string, query []float32, limit int) ([]string, error) {
	resp, err := idx.client.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         query,
		Limit:          uint64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("search qdrant points: %w", err)
	}

	ids := make([]string, 0, len(resp.Result))
	for _, r := range resp.Result {
		if uuid := r.Id.GetUuid(); uuid != "" {
			ids = append(ids, uuid)
		}
	}
	return ids, nil
}
