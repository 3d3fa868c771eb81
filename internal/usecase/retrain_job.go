package usecase

import (
	"context"
	"fmt"

	"github.com/lblaseygg/minty/pkg/queue"
)

const retrainMsgType = "model.retrain"

// RetrainPayload names the symbol whose model should be rebuilt.
type RetrainPayload struct {
	Symbol string `json:"symbol"`
}

// Retrainer rebuilds a model from fresh history.
type Retrainer interface {
	Retrain(ctx context.Context, symbol string) error
}

// RetrainJob drains background retrain requests from the queue.
type RetrainJob struct {
	retrainer Retrainer
}

func NewRetrainJob(retrainer Retrainer) *RetrainJob {
	return &RetrainJob{retrainer: retrainer}
}

func (j *RetrainJob) Name() string { return "model_retrain" }
func (j *RetrainJob) Type() string { return retrainMsgType }

func (j *RetrainJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RetrainPayload](payload)
	if err != nil {
		return fmt.Errorf("retrain payload: %w", err)
	}
	if p.Symbol == "" {
		return fmt.Errorf("retrain payload: empty symbol")
	}
	return j.retrainer.Retrain(ctx, p.Symbol)
}

var _ queue.Job = (*RetrainJob)(nil)

// QueueRefresher bridges the model registry's refresh requests onto the
// background queue.
type QueueRefresher struct {
	q queue.QueueService
}

func NewQueueRefresher(q queue.QueueService) *QueueRefresher {
	return &QueueRefresher{q: q}
}

func (r *QueueRefresher) EnqueueRetrain(ctx context.Context, symbol string) error {
	return r.q.PublishMessage(ctx, retrainMsgType, RetrainPayload{Symbol: symbol})
}
