// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"hotel-insights-go/internal/config"
	"hotel-insights-go/pkg/log"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	log.Infof("[ES] 客户端初始化成功: %s", esCfg.Addresses)
	return nil
}

// Hit 是一次检索的单个命中结果。
type Hit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s: elasticsearch returned %s: %s", op, res.Status(), string(body))
}

// CreateVectorIndex 创建带 dense_vector 字段的索引，向量维度由调用方决定。
func CreateVectorIndex(ctx context.Context, client *elasticsearch.Client, indexName string, dims int) error {
	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"id": { "type": "keyword" },
				"category": { "type": "keyword" },
				"type": { "type": "keyword" },
				"text": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				}
			}
		}
	}`, dims)

	res, err := esapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}.Do(ctx, client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index "+indexName, res)
	}
	log.Infof("[ES] 索引 '%s' 创建成功 (dims=%d)", indexName, dims)
	return nil
}

// IndexDocument 将单个文档写入索引，不立即刷新。
func IndexDocument(ctx context.Context, client *elasticsearch.Client, indexName, id string, doc interface{}) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	res, err := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: id,
		Body:       bytes.NewReader(docBytes),
	}.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index document "+id, res)
	}
	return nil
}

// RefreshIndex 让已写入的文档对检索可见。
func RefreshIndex(ctx context.Context, client *elasticsearch.Client, indexName string) error {
	res, err := esapi.IndicesRefreshRequest{Index: []string{indexName}}.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("refresh "+indexName, res)
	}
	return nil
}

// AliasTargets 返回别名当前指向的索引；别名不存在时返回空。
func AliasTargets(ctx context.Context, client *elasticsearch.Client, alias string) ([]string, error) {
	res, err := esapi.IndicesGetAliasRequest{Name: []string{alias}}.Do(ctx, client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, responseError("get alias "+alias, res)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode alias response: %w", err)
	}
	targets := make([]string, 0, len(body))
	for index := range body {
		targets = append(targets, index)
	}
	return targets, nil
}

// SwapAlias 在一次原子操作中把别名从 previous 移到 next。
func SwapAlias(ctx context.Context, client *elasticsearch.Client, alias, next string, previous []string) error {
	actions := make([]map[string]interface{}, 0, len(previous)+1)
	for _, old := range previous {
		actions = append(actions, map[string]interface{}{
			"remove": map[string]string{"index": old, "alias": alias},
		})
	}
	actions = append(actions, map[string]interface{}{
		"add": map[string]string{"index": next, "alias": alias},
	})
	body, err := json.Marshal(map[string]interface{}{"actions": actions})
	if err != nil {
		return err
	}

	res, err := esapi.IndicesUpdateAliasesRequest{Body: bytes.NewReader(body)}.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("update alias "+alias, res)
	}
	return nil
}

// DeleteIndices 删除给定的索引。
func DeleteIndices(ctx context.Context, client *elasticsearch.Client, names []string) error {
	if len(names) == 0 {
		return nil
	}
	res, err := esapi.IndicesDeleteRequest{Index: names}.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("delete indices", res)
	}
	return nil
}

// KnnSearch 在 field 上执行近似 kNN 检索。
func KnnSearch(ctx context.Context, client *elasticsearch.Client, indexName, field string, vector []float32, k int) ([]Hit, error) {
	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          field,
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"size":    k,
		"_source": map[string]interface{}{"excludes": []string{field}},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(body),
	}.Do(ctx, client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("knn search "+indexName, res)
	}

	var parsed struct {
		Hits struct {
			Hits []Hit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return parsed.Hits.Hits, nil
}
