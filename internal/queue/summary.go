package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/logger"
	"github.com/DerwenAI/dylifo/pkg/pipeline"
)

// SummaryRequest is the body of a summary_queue message. Document may be
// the resolution output itself or a JSON string holding it.
type SummaryRequest struct {
	ID       string          `json:"id"`
	Path     string          `json:"path,omitempty" validate:"required_without=Document"`
	Document json.RawMessage `json:"document,omitempty"`
}

// SummaryResult is published to narrative_queue on success and to the dead
// letter queue on permanent failure.
type SummaryResult struct {
	ID         string              `json:"id"`
	Status     string              `json:"status"`
	Narrative  string              `json:"narrative,omitempty"`
	Result     *pipeline.Result    `json:"result,omitempty"`
	Error      string              `json:"error,omitempty"`
	ErrorClass pipeline.ErrorClass `json:"error_class,omitempty"`
	FinishedAt time.Time           `json:"finished_at"`
}

var errEmptyRequest = errors.New("summary request needs a path or a document")

// ParseSummaryRequest decodes body and assigns an ID when none is given.
func ParseSummaryRequest(body []byte) (*SummaryRequest, error) {
	req := new(SummaryRequest)
	if err := json.Unmarshal(body, req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		id, err := util.NewID()
		if err != nil {
			return nil, err
		}
		req.ID = id
	}
	if req.Path == "" && len(bytes.TrimSpace(req.Document)) == 0 {
		return nil, errEmptyRequest
	}
	return req, nil
}

// Raw returns the embedded document, unquoting it when it was sent as a
// JSON string.
func (r *SummaryRequest) Raw() []byte {
	doc := bytes.TrimSpace(r.Document)
	if len(doc) > 0 && doc[0] == '"' {
		var s string
		if err := json.Unmarshal(doc, &s); err == nil {
			return []byte(s)
		}
	}
	return doc
}

// ProcessSummaryMessage runs the pipeline for one message and publishes the
// result to narrative_queue. The returned error decides between retry and
// dead lettering.
func ProcessSummaryMessage(ctx context.Context, p *pipeline.Pipeline, ch Publisher, body []byte) error {
	req, err := ParseSummaryRequest(body)
	if err != nil {
		return err
	}

	var res *pipeline.Result
	if req.Path != "" {
		res, err = p.RunPath(ctx, req.Path)
	} else {
		res, err = p.Run(ctx, req.Raw())
	}
	if err != nil {
		return err
	}

	out := SummaryResult{
		ID:         req.ID,
		Status:     "completed",
		Narrative:  res.Text(),
		Result:     res,
		FinishedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := PublishFIFO(ctx, ch, NarrativeQueue, data, nil); err != nil {
		return err
	}

	logger.Info("[Queue] Summary published", "id", req.ID, "narratives", len(res.Narratives))
	return nil
}

// FailureResult builds the dead letter body for a message that failed with err.
func FailureResult(body []byte, err error) []byte {
	id := ""
	if req, perr := ParseSummaryRequest(body); perr == nil {
		id = req.ID
	}
	data, merr := json.Marshal(SummaryResult{
		ID:         id,
		Status:     "failed",
		Error:      err.Error(),
		ErrorClass: pipeline.Classify(err),
		FinishedAt: time.Now().UTC(),
	})
	if merr != nil {
		return body
	}
	return data
}
