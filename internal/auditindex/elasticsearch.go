// internal/auditindex/elasticsearch.go
package auditindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	commonerrors "bias-audit-harness/internal/common/errors"
	"bias-audit-harness/internal/common/logger"
	"bias-audit-harness/internal/models"
)

// SearchIndexer mirrors evidence records into an Elasticsearch index,
// keyed by execution id so re-indexing a record is idempotent.
type SearchIndexer struct {
	client    *elasticsearch.Client
	indexName string
	log       logger.Logger
}

// NewSearchIndexer wraps an Elasticsearch client and a target index.
func NewSearchIndexer(client *elasticsearch.Client, indexName string, log logger.Logger) *SearchIndexer {
	return &SearchIndexer{client: client, indexName: indexName, log: log}
}

// Index writes one evidence record as a document.
func (s *SearchIndexer) Index(ctx context.Context, record models.EvidenceRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return commonerrors.NewIndexWriteError(err)
	}

	req := esapi.IndexRequest{
		Index:      s.indexName,
		DocumentID: record.ExecutionContext.ExecutionID,
		Body:       bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return commonerrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return commonerrors.NewIndexWriteError(fmt.Errorf("index response: %s", res.Status()))
	}

	if s.log != nil {
		s.log.Debug("evidence record indexed", map[string]interface{}{
			"index":        s.indexName,
			"execution_id": record.ExecutionContext.ExecutionID,
		})
	}
	return nil
}
