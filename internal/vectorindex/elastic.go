package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"hotel-insights-go/pkg/es"
	"hotel-insights-go/pkg/log"
)

const vectorField = "vector"

// esDocument 是写入 Elasticsearch 的文档结构。
type esDocument struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Category string            `json:"category,omitempty"`
	Type     string            `json:"type,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Vector   []float32         `json:"vector,omitempty"`
}

// ElasticBuilder 每次构建都创建一个新的版本化索引，完成后切换别名并删除旧索引。
type ElasticBuilder struct {
	client *elasticsearch.Client
	alias  string
}

// NewElasticBuilder 创建一个 ElasticBuilder，alias 为检索时使用的索引别名。
func NewElasticBuilder(client *elasticsearch.Client, alias string) *ElasticBuilder {
	return &ElasticBuilder{client: client, alias: alias}
}

func (b *ElasticBuilder) Build(ctx context.Context, docs []Document, vectors [][]float32) (Index, error) {
	dim, err := validateInput(docs, vectors)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s_v%d", b.alias, time.Now().UnixNano())
	if err := es.CreateVectorIndex(ctx, b.client, name, dim); err != nil {
		return nil, err
	}

	abort := func(cause error) (Index, error) {
		if err := es.DeleteIndices(context.Background(), b.client, []string{name}); err != nil {
			log.Warnf("[VectorIndex] 清理未完成的索引 '%s' 失败: %v", name, err)
		}
		return nil, cause
	}

	for i, d := range docs {
		doc := esDocument{
			ID:       d.ID,
			Text:     d.Text,
			Category: d.Metadata["category"],
			Type:     d.Metadata["type"],
			Metadata: d.Metadata,
			Vector:   vectors[i],
		}
		if err := es.IndexDocument(ctx, b.client, name, d.ID, doc); err != nil {
			return abort(fmt.Errorf("index document %s: %w", d.ID, err))
		}
	}
	if err := es.RefreshIndex(ctx, b.client, name); err != nil {
		return abort(err)
	}

	previous, err := es.AliasTargets(ctx, b.client, b.alias)
	if err != nil {
		return abort(err)
	}
	if err := es.SwapAlias(ctx, b.client, b.alias, name, previous); err != nil {
		return abort(err)
	}
	if err := es.DeleteIndices(ctx, b.client, previous); err != nil {
		log.Warnf("[VectorIndex] 删除旧索引 %v 失败: %v", previous, err)
	}
	log.Infof("[VectorIndex] 别名 '%s' 已切换到 '%s' (%d 条)", b.alias, name, len(docs))

	return &elasticIndex{
		client: b.client,
		alias:  b.alias,
		name:   name,
		docs:   append([]Document(nil), docs...),
		dim:    dim,
	}, nil
}

// Restore 总是返回 ErrNoSnapshot：洞察列表不在 Elasticsearch 中完整保存，启动时重新构建。
func (b *ElasticBuilder) Restore(context.Context) (Index, error) {
	return nil, ErrNoSnapshot
}

// elasticIndex 通过别名检索。旧索引在别名切换后立即删除，
// 仍持有旧快照的请求因此会读到新一代数据。
type elasticIndex struct {
	client *elasticsearch.Client
	alias  string
	name   string
	docs   []Document
	dim    int
}

func (e *elasticIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != e.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), e.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	raw, err := es.KnnSearch(ctx, e.client, e.alias, vectorField, vector, k)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		var doc esDocument
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", h.ID, err)
		}
		hits = append(hits, Hit{
			Document: Document{ID: doc.ID, Text: doc.Text, Metadata: doc.Metadata},
			Score:    h.Score,
		})
	}
	return hits, nil
}

func (e *elasticIndex) Documents() []Document { return e.docs }

func (e *elasticIndex) Len() int { return len(e.docs) }

func (e *elasticIndex) Dimension() int { return e.dim }
