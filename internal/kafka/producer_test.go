package kafka

import (
	"context"
	"testing"
	"time"
)

// Shutdown urutan Close() lalu cancel(): loop bisa kebagian branch ctx.Done
// setelah inbox sudah ditutup; dua-duanya harus exit bersih, bukan panic
// karena double close.
func TestShutdownCloseThenCancel(t *testing.T) {
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewProducer([]string{"localhost:9092"}, "test.topic", 8)
		p.Start(ctx)

		p.Close()
		cancel()
		waitClosed(t, p)
	}
}

func TestShutdownCancelThenClose(t *testing.T) {
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewProducer([]string{"localhost:9092"}, "test.topic", 8)
		p.Start(ctx)

		cancel()
		p.Close() // idempoten walau loop sudah menutup inbox
		waitClosed(t, p)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewProducer([]string{"localhost:9092"}, "test.topic", 8)
	p.Start(ctx)

	p.Close()
	p.Close()
	waitClosed(t, p)
}

func waitClosed(t *testing.T, p *Producer) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		p.WaitClosed()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer loop did not exit")
	}
}
