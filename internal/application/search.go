package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/craftfolio/mailroom/internal/domain/entity"
)

// DeliveryIndexer mirrors terminal delivery records into Elasticsearch for
// the admin email-history search. Indexing is best-effort; the delivery
// log in Postgres stays the source of truth.
type DeliveryIndexer struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func (x *DeliveryIndexer) IndexJob(ctx context.Context, job entity.EmailJob) error {
	if x == nil || x.ES == nil || x.Index == "" {
		return nil
	}
	doc := map[string]any{
		"job_id":      job.ID,
		"recipient":   job.To,
		"template_id": job.TemplateID,
		"category":    string(job.Category),
		"campaign_id": job.CampaignID,
		"user_id":     job.UserID,
		"status":      string(job.Status),
		"attempts":    job.Attempts,
		"error":       job.Error,
		"created_at":  job.CreatedAt.Format(time.RFC3339Nano),
	}
	if job.SentAt != nil {
		doc["sent_at"] = job.SentAt.Format(time.RFC3339Nano)
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: x.Index, DocumentID: job.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		if x.Logger != nil {
			x.Logger.WithError(err).WithField("job_id", job.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && x.Logger != nil {
		x.Logger.WithField("status", res.Status()).WithField("job_id", job.ID).Warn("es index response error")
	}
	return nil
}

// Search runs a multi_match over recipient and template id.
func (x *DeliveryIndexer) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if x == nil || x.ES == nil || x.Index == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"recipient^2", "template_id", "campaign_id"},
			},
		},
		"size": size,
		"sort": []map[string]any{{"created_at": map[string]any{"order": "desc", "unmapped_type": "date"}}},
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := x.ES.Search(
		x.ES.Search.WithContext(c),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
