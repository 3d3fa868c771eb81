package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	domrepo "github.com/lblaseygg/minty/internal/domain/repository"
	pkgkafka "github.com/lblaseygg/minty/pkg/kafka"
)

// FillsHandler consumes fill events from Kafka and appends them to the
// ClickHouse audit archive.
type FillsHandler struct {
	topic   string
	archive domrepo.FillArchive
	metrics domrepo.Metrics
}

func NewFillsHandler(topic string, archive domrepo.FillArchive, metrics domrepo.Metrics) *FillsHandler {
	return &FillsHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *FillsHandler) Topic() string { return h.topic }

func (h *FillsHandler) Handle(ctx context.Context, b []byte) error {
	var f models.Fill
	if err := json.Unmarshal(b, &f); err != nil {
		h.metrics.RecordError("fill_unmarshal")
		return err
	}

	start := time.Now()
	if err := h.archive.Store(ctx, &f); err != nil {
		h.metrics.RecordError("fill_archive")
		return err
	}
	h.metrics.RecordLatency("fill_archive", time.Since(start).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*FillsHandler)(nil)
