// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sara-smart-go/internal/config"
	"sara-smart-go/internal/model"
	"sara-smart-go/pkg/log"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端并确保会话索引存在。
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
	return createIndexIfNotExists(esCfg.IndexName)
}

// sessionMapping 对葡萄牙语对话文本使用内置 portuguese 分词器。
const sessionMapping = `{
	"mappings": {
		"properties": {
			"session_id":   { "type": "keyword" },
			"name":         { "type": "text", "fields": { "raw": { "type": "keyword" } } },
			"email":        { "type": "keyword" },
			"project_type": { "type": "keyword" },
			"business":     { "type": "text", "analyzer": "portuguese" },
			"lead_score":   { "type": "integer" },
			"lead_quality": { "type": "keyword" },
			"outcome":      { "type": "keyword" },
			"intents":      { "type": "keyword" },
			"transcript":   { "type": "text", "analyzer": "portuguese" },
			"started_at":   { "type": "date" }
		}
	}
}`

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	defer res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	created, err := ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(sessionMapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer created.Body.Close()
	if created.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, created.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexSession 以 doc.DocumentID() 作为文档 ID 写入会话，重复写入会覆盖。
func IndexSession(ctx context.Context, indexName string, doc model.SessionDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: doc.DocumentID(),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引会话到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index session")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64               `json:"_score"`
			Source model.SessionDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchSessions 在对话文本、姓名、业务等字段上做全文检索。
func SearchSessions(ctx context.Context, indexName, query string, size int) ([]model.SessionSearchHit, error) {
	body := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"transcript", "name^2", "business^2", "email", "project_type"},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("Elasticsearch 检索出错: %s", res.String())
		return nil, errors.New("failed to search sessions")
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	hits := make([]model.SessionSearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, model.SessionSearchHit{SessionDocument: h.Source, Score: h.Score})
	}
	return hits, nil
}

// SessionIndex 把包级函数绑定到某个索引上，供业务层以接口形式依赖。
type SessionIndex struct {
	IndexName string
}

func (i SessionIndex) Index(ctx context.Context, doc model.SessionDocument) error {
	return IndexSession(ctx, i.IndexName, doc)
}

func (i SessionIndex) Search(ctx context.Context, query string, size int) ([]model.SessionSearchHit, error) {
	return SearchSessions(ctx, i.IndexName, query, size)
}
