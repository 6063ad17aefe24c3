// Package vectorindex 提供洞察句子的向量相似度索引。
// 索引构建后不可变，刷新时整体替换，因此并发检索无需加锁。
package vectorindex

import (
	"context"
	"errors"
)

// ErrNoSnapshot 表示没有可恢复的持久化索引。
var ErrNoSnapshot = errors.New("no persisted index snapshot")

// Document 是被索引的一条文本及其元数据。
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Hit 是一次检索命中的文档与相似度得分。
type Hit struct {
	Document
	Score float64 `json:"score"`
}

// Index 是只读的相似度索引。
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	// Documents 返回构建时的文档，顺序与构建输入一致。
	Documents() []Document
	Len() int
	Dimension() int
}

// Builder 从文档与向量构建一个新索引，不修改任何正在使用的索引。
type Builder interface {
	Build(ctx context.Context, docs []Document, vectors [][]float32) (Index, error)
	// Restore 加载上一次持久化的索引；没有时返回 ErrNoSnapshot。
	Restore(ctx context.Context) (Index, error)
}

func validateInput(docs []Document, vectors [][]float32) (int, error) {
	if len(docs) == 0 {
		return 0, errors.New("no documents to index")
	}
	if len(docs) != len(vectors) {
		return 0, errors.New("documents and vectors length mismatch")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, errors.New("empty embedding vector")
	}
	for _, v := range vectors {
		if len(v) != dim {
			return 0, errors.New("embedding dimension mismatch")
		}
	}
	return dim, nil
}
