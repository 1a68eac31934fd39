package usecase

import (
	"context"
	"encoding/json"

	"Screener/internal/domain/models"
	domrepo "Screener/internal/domain/repository"
	pkgkafka "Screener/pkg/kafka"
	"Screener/pkg/logger"
)

// KafkaRunsHandler consumes run requests from the runs topic, so upstream
// schedulers can trigger screens without touching the HTTP API. Results flow
// through the configured sink; the message itself carries no reply channel.
type KafkaRunsHandler struct {
	topic   string
	service *ScreenService
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewKafkaRunsHandler(topic string, service *ScreenService, metrics domrepo.Metrics, log *logger.Logger) *KafkaRunsHandler {
	return &KafkaRunsHandler{topic: topic, service: service, metrics: metrics, log: log}
}

func (h *KafkaRunsHandler) Topic() string { return h.topic }

// incoming message schema: {screen, from, to, on_error}
func (h *KafkaRunsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Screen  string `json:"screen"`
		From    string `json:"from"`
		To      string `json:"to"`
		OnError string `json:"on_error"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	_, err := h.service.Run(ctx, m.Screen, &models.RunScreenRequest{
		From:    m.From,
		To:      m.To,
		OnError: m.OnError,
	})
	if err != nil {
		h.metrics.RecordError("consumer_run")
		h.log.Error("kafka run request failed",
			logger.String("screen", m.Screen), logger.Error(err))
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaRunsHandler)(nil)
