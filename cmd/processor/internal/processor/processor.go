package processor

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stockpulse/pkg/config"
	"github.com/shubham-shewale/stockpulse/pkg/models"
)

const (
	SnapshotKeyPrefix  = "stock:"
	PriceChannelPrefix = "prices."

	workerBuffer = 100
)

func SnapshotKey(id string) string { return SnapshotKeyPrefix + id }

func PriceChannel(symbol string) string { return PriceChannelPrefix + strings.ToUpper(symbol) }

// Processor folds the tick journal into Redis: the latest update per stock
// under stock:<id>, and a publish on prices.<SYMBOL> for live listeners.
type Processor struct {
	logger     Logger
	rdb        RedisClient
	reader     KafkaReader
	numWorkers int
	ttl        time.Duration

	dropped atomic.Int64
	written atomic.Int64
}

func NewProcessor(cfg *config.Config, logger Logger, rdb RedisClient, reader KafkaReader) *Processor {
	workers := cfg.Processor.NumWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		logger:     logger,
		rdb:        rdb,
		reader:     reader,
		numWorkers: workers,
		ttl:        cfg.Processor.SnapshotTTL,
	}
}

// Run consumes until ctx is cancelled or the reader gives out, then drains
// the workers.
func (p *Processor) Run(ctx context.Context) error {
	workerChans := make([]chan []byte, p.numWorkers)
	var wg sync.WaitGroup

	for i := range p.numWorkers {
		workerChans[i] = make(chan []byte, workerBuffer)
		wg.Add(1)
		go p.worker(i, workerChans[i], &wg)
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		p.logger.Info("Processor Started", zap.Int("workers", p.numWorkers))
		for {
			m, err := p.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
					return
				}
				p.logger.Error("Kafka Read Error", zap.Error(err))
				continue
			}

			// Same symbol, same worker: dedup state stays local
			workerID := getWorkerID(m.Key, p.numWorkers)

			select {
			case workerChans[workerID] <- m.Value:
			case <-ctx.Done():
				return
			default:
				p.dropped.Add(1)
				p.logger.Warn("Dropping slow packet", zap.String("key", string(m.Key)), zap.Int("worker_id", workerID))
			}
		}
	}()

	select {
	case <-ctx.Done():
		p.logger.Info("Shutdown signal received, stopping processor...")
	case <-readerDone:
		p.logger.Info("Journal reader stopped")
	}
	<-readerDone

	for _, ch := range workerChans {
		close(ch)
	}
	p.logger.Info("Waiting for workers to drain...")
	wg.Wait()

	return nil
}

// Dropped counts journal records skipped because their worker was full.
func (p *Processor) Dropped() int64 { return p.dropped.Load() }

// Written counts updates that reached Redis.
func (p *Processor) Written() int64 { return p.written.Load() }

func (p *Processor) worker(id int, msgs <-chan []byte, wg *sync.WaitGroup) {
	defer wg.Done()
	ctx := context.Background()

	// only correct because sharding is deterministic
	lastSeq := make(map[string]uint64)

	for payload := range msgs {
		var update models.StockUpdate
		if err := json.Unmarshal(payload, &update); err != nil {
			p.logger.Error("JSON Unmarshal Error", zap.Error(err))
			continue
		}
		if update.Stock.ID == "" {
			p.logger.Warn("Skipping update without stock id", zap.Uint64("seq", update.Seq))
			continue
		}

		if last, seen := lastSeq[update.Stock.ID]; seen && update.Seq <= last {
			p.logger.Debug("Skipping duplicate update",
				zap.String("stock", update.Stock.ID), zap.Uint64("seq", update.Seq), zap.Uint64("last_seq", last))
			continue
		}

		pipe := p.rdb.Pipeline()
		pipe.Set(ctx, SnapshotKey(update.Stock.ID), payload, p.ttl)
		pipe.Publish(ctx, PriceChannel(update.Stock.Symbol), payload)

		if _, err := pipe.Exec(ctx); err != nil {
			p.logger.Error("Redis Pipeline Error", zap.Error(err), zap.String("symbol", update.Stock.Symbol))
			continue
		}
		lastSeq[update.Stock.ID] = update.Seq
		p.written.Add(1)
		p.logger.Debug("Processed", zap.String("symbol", update.Stock.Symbol), zap.Int("worker_id", id), zap.Uint64("seq", update.Seq))
	}
}

func getWorkerID(key []byte, numWorkers int) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32() % uint32(numWorkers))
}
