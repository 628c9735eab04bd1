// Package tickets keeps a searchable copy of grievance tickets in
// Elasticsearch. The backend stays the owner of ticket status; the index is
// refreshed from its replies.
package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"loan-portal/internal/common/database"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/models"
)

// Mapping keeps identifiers as keywords so term filters match exactly.
const Mapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "transactionId": {"type": "keyword"},
      "userId":        {"type": "keyword"},
      "category":      {"type": "keyword"},
      "sub_category":  {"type": "keyword"},
      "status":        {"type": "keyword"},
      "shortDesc":     {"type": "text"},
      "longDesc":      {"type": "text"},
      "imageUrl":      {"type": "keyword", "index": false},
      "createdAt":     {"type": "date"},
      "updatedAt":     {"type": "date"}
    }
  }
}`

type Index struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewIndex(es *database.ElasticsearchClient, index string, log logger.Logger) *Index {
	return &Index{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "ticket-index", "index": index}),
	}
}

// Ensure creates the index with Mapping when it does not exist.
func (i *Index) Ensure(ctx context.Context) error {
	return i.es.EnsureIndex(ctx, i.index, Mapping)
}

// Put indexes t under its id, replacing any previous copy.
func (i *Index) Put(ctx context.Context, t *models.Ticket) error {
	if t.ID == "" {
		return fmt.Errorf("ticket id is required")
	}
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}

	res, err := i.es.Client.Index(i.index, bytes.NewReader(body),
		i.es.Client.Index.WithContext(ctx),
		i.es.Client.Index.WithDocumentID(t.ID),
		i.es.Client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("index ticket %s: %w", t.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index ticket %s: %s", t.ID, readError(res.Body, res.Status()))
	}

	i.logger.Debug("ticket indexed", map[string]interface{}{"ticketId": t.ID})
	return nil
}

// UpdateStatus patches the status of an indexed ticket.
func (i *Index) UpdateStatus(ctx context.Context, id, status string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"doc": map[string]interface{}{"status": status},
	})

	res, err := i.es.Client.Update(i.index, id, bytes.NewReader(body),
		i.es.Client.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("update ticket %s: %s", id, readError(res.Body, res.Status()))
	}
	return nil
}

// Query filters tickets. Empty fields are ignored; Text matches the descriptions.
type Query struct {
	UserID        string
	TransactionID string
	Status        string
	Category      string
	Text          string
	From          int
	Size          int
}

type Result struct {
	Tickets []models.Ticket `json:"tickets"`
	Total   int             `json:"total"`
}

// Search returns matching tickets, newest first.
func (i *Index) Search(ctx context.Context, q Query) (*Result, error) {
	if q.Size <= 0 {
		q.Size = 20
	}
	body, _ := json.Marshal(buildSearch(q))

	res, err := i.es.Client.Search(
		i.es.Client.Search.WithContext(ctx),
		i.es.Client.Search.WithIndex(i.index),
		i.es.Client.Search.WithBody(bytes.NewReader(body)),
		i.es.Client.Search.WithFrom(q.From),
		i.es.Client.Search.WithSize(q.Size),
	)
	if err != nil {
		return nil, fmt.Errorf("search tickets: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search tickets: %s", readError(res.Body, res.Status()))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Ticket `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &Result{Total: parsed.Hits.Total.Value, Tickets: make([]models.Ticket, 0, len(parsed.Hits.Hits))}
	for _, h := range parsed.Hits.Hits {
		out.Tickets = append(out.Tickets, h.Source)
	}
	return out, nil
}

func buildSearch(q Query) map[string]interface{} {
	var filters []interface{}
	term := func(field, value string) {
		if value != "" {
			filters = append(filters, map[string]interface{}{
				"term": map[string]interface{}{field: value},
			})
		}
	}
	term("userId", q.UserID)
	term("transactionId", q.TransactionID)
	term("status", q.Status)
	term("category", q.Category)

	boolQuery := map[string]interface{}{}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if strings.TrimSpace(q.Text) != "" {
		boolQuery["must"] = []interface{}{map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"shortDesc^2", "longDesc"},
			},
		}}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort":  []interface{}{map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}}},
	}
}

func readError(body io.Reader, status string) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	if len(raw) == 0 {
		return status
	}
	return status + ": " + strings.TrimSpace(string(raw))
}
