package journal

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stockpulse/pkg/models"
)

type tick struct {
	seq    uint64
	at     time.Time
	stocks []models.Stock
}

// Publisher journals every tick to Kafka, one message per stock keyed by
// symbol. It sits behind the hub as a tick observer and never blocks it.
type Publisher struct {
	logger  *zap.Logger
	writer  KafkaWriter
	ticks   chan tick
	dropped atomic.Int64
}

func NewPublisher(logger *zap.Logger, writer KafkaWriter, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 16
	}
	return &Publisher{
		logger: logger,
		writer: writer,
		ticks:  make(chan tick, buffer),
	}
}

// Observe queues a tick. When Kafka falls behind, ticks are dropped: the
// next one carries the full state anyway.
func (p *Publisher) Observe(seq uint64, at time.Time, stocks []models.Stock) {
	select {
	case p.ticks <- tick{seq: seq, at: at, stocks: stocks}:
	default:
		p.dropped.Add(1)
		p.logger.Warn("Dropping journal tick", zap.Uint64("seq", seq))
	}
}

func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("Journal publisher started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-p.ticks:
			p.write(ctx, t)
		}
	}
}

func (p *Publisher) write(ctx context.Context, t tick) {
	msgs := make([]kafka.Message, 0, len(t.stocks))
	for _, st := range t.stocks {
		payload, err := json.Marshal(models.StockUpdate{
			Seq:       t.seq,
			Timestamp: t.at.UnixMicro(),
			Stock:     st,
		})
		if err != nil {
			p.logger.Error("JSON Marshal Error", zap.Error(err))
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(st.Symbol), // Key ensures partition ordering
			Value: payload,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("Kafka Write Error", zap.Error(err), zap.Uint64("seq", t.seq))
		return
	}
	p.logger.Debug("Journaled tick", zap.Uint64("seq", t.seq), zap.Int("stocks", len(msgs)))
}

// Close flushes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
