package webhookqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"github.com/HandyCommerce/ShopBridge/app/repository"
)

const (
	// DefaultSweepInterval is how often the processor scans for
	// unlocked queue items.
	DefaultSweepInterval = 30 * time.Second

	sweepBatchSize = 50
	handlerTimeout = 60 * time.Second
)

// Handler processes one decoded webhook event. A non-nil error leaves
// the item in the queue for a later sweep; there is no retry cap, an
// item disappears only once some attempt succeeds.
type Handler func(ctx context.Context, payload *EventPayload) error

// Processor drains the webhook queue in the background. Multiple
// processors (or app instances) may sweep the same table; the claim
// flag in the repository decides who works an item.
type Processor struct {
	queue    repository.WebhookQueueRepository
	handlers map[string]Handler
	interval time.Duration

	ticker  *time.Ticker
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewProcessor creates a processor over the given queue. Pass zero to
// use the default sweep interval.
func NewProcessor(queue repository.WebhookQueueRepository, handlers map[string]Handler, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Processor{
		queue:    queue,
		handlers: handlers,
		interval: interval,
	}
}

// Start validates the handler registry and launches the sweep worker.
func (p *Processor) Start() error {
	for _, event := range RequiredEvents {
		if _, ok := p.handlers[event]; !ok {
			return fmt.Errorf("webhookqueue: no handler registered for event %s", event)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)
	p.running = true

	p.wg.Add(1)
	go p.sweepWorker()

	log.Infof("[WebhookQueue] Started (sweep interval: %s)", p.interval)
	return nil
}

// Stop halts the sweep worker and waits for an in-flight sweep to
// finish.
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.ticker.Stop()
	close(p.stopCh)
	p.running = false
	p.wg.Wait()

	log.Info("[WebhookQueue] Stopped")
}

// IsRunning returns whether the processor is currently running.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) sweepWorker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			log.Info("[WebhookQueue] Sweep worker stopping")
			return
		case <-p.ticker.C:
			if err := p.ProcessOnce(); err != nil {
				log.Errorf("[WebhookQueue] Sweep error: %v", err)
			}
		}
	}
}

// ProcessOnce runs a single sweep: list unlocked items, claim each one
// and dispatch it. Items whose claim is lost to a concurrent sweep are
// skipped without error.
func (p *Processor) ProcessOnce() error {
	items, err := p.queue.ListUnlocked(models.QueueItemTypeShopWebhook, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("list queue items: %w", err)
	}

	for _, item := range items {
		won, err := p.queue.Claim(item.ID)
		if err != nil {
			log.Errorf("[WebhookQueue] Claim failed for item %d: %v", item.ID, err)
			continue
		}
		if !won {
			continue
		}
		p.processItem(item)
	}
	return nil
}

// processItem dispatches one claimed item. Success deletes it; handler
// failure unlocks it so a later sweep retries. Items that can never be
// processed (undecodable payload, unknown event) are dropped with an
// error log since retrying them is pointless.
func (p *Processor) processItem(item models.WebhookQueueItem) {
	payload, err := DecodePayload(item.Payload)
	if err != nil {
		log.Errorf("[WebhookQueue] Dropping item %d (%s): undecodable payload: %v", item.ID, item.UUID, err)
		p.deleteItem(item)
		return
	}

	handler, ok := p.handlers[payload.Event]
	if !ok {
		log.Errorf("[WebhookQueue] Dropping item %d (%s): no handler for event %s", item.ID, item.UUID, payload.Event)
		p.deleteItem(item)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := handler(ctx, payload); err != nil {
		log.Errorf("[WebhookQueue] Event %s for %s failed (attempt %d): %v", payload.Event, payload.ShopDomain, item.Attempts, err)
		if uerr := p.queue.Unlock(item.ID); uerr != nil {
			log.Errorf("[WebhookQueue] Unlock failed for item %d: %v", item.ID, uerr)
		}
		return
	}

	log.Infof("[WebhookQueue] Event %s for %s processed", payload.Event, payload.ShopDomain)
	p.deleteItem(item)
}

func (p *Processor) deleteItem(item models.WebhookQueueItem) {
	if err := p.queue.Delete(item.ID); err != nil {
		log.Errorf("[WebhookQueue] Delete failed for item %d: %v", item.ID, err)
	}
}
