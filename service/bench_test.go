package service

import (
	"context"
	"testing"

	"mini-lpc/channel"
	"mini-lpc/loadbalance"
	"mini-lpc/registry"
)

func setupWorker(b *testing.B) *Worker[int, int] {
	w := NewWorker[int, int]("echo", double)
	if err := w.Start(); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { w.Shutdown(context.Background()) })
	return w
}

// 场景1: 单 goroutine 串行调用
func BenchmarkSerialCall(b *testing.B) {
	h := setupWorker(b).Sender()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := Call(h, 1); err != nil {
			b.Fatal(err)
		}
	}
}

// 场景2: 多 goroutine 并发调用，全部排进同一个 inbox
func BenchmarkConcurrentCall(b *testing.B) {
	w := setupWorker(b)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		h := w.Sender()
		defer h.Close()
		for pb.Next() {
			if _, err := Call(h, 1); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// 场景3: 纯 inbox 入队出队（不经过 worker）
func BenchmarkInbox(b *testing.B) {
	tx, rx := channel.NewInbox[int](0)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := tx.Send(i); err != nil {
			b.Fatal(err)
		}
		if _, err := rx.TryRecv(); err != nil {
			b.Fatal(err)
		}
	}
}

// 场景4: 负载均衡选择开销
func BenchmarkConsistentHashPick(b *testing.B) {
	bal := loadbalance.NewConsistentHashBalancer()
	instances := []registry.ServiceInstance{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := bal.Pick("user-123", instances); err != nil {
			b.Fatal(err)
		}
	}
}
