package kafka

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer: writer async dengan inbox channel; Publish tidak pernah blok di
// network, loop di belakang yang flush.
type Producer struct {
	w         *kafka.Writer
	inbox     chan kafka.Message
	closeCh   chan struct{}
	closeOnce sync.Once
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				// Close() bisa saja sudah menutup inbox; closeInbox idempoten,
				// jadi shutdown cancel-dulu atau Close-dulu dua-duanya aman.
				p.closeInbox()
				for m := range p.inbox {
					p.write(m)
				}
				_ = p.w.Close()
				close(p.closeCh)
				return
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.w.Close()
					close(p.closeCh)
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Producer) closeInbox() {
	p.closeOnce.Do(func() { close(p.inbox) })
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		// emisi "at least once": transisi sudah commit, cukup log utk
		// rekonsiliasi, jangan drop diam-diam
		log.Printf("kafka write failed: topic=%s key=%s: %v", p.w.Topic, m.Key, err)
	}
}

func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Close tutup inbox supaya loop flush sisa pesan lalu exit.
func (p *Producer) Close() { p.closeInbox() }

// WaitClosed tunggu loop selesai drain.
func (p *Producer) WaitClosed() { <-p.closeCh }
