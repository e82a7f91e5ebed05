package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/aditya/rideshare/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func startBroker(t *testing.T, addr string) *RedisBroker {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	b := NewRedisBroker(client, NewHub(8), logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go b.Run(ctx)

	select {
	case <-b.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("broker did not subscribe")
	}
	return b
}

func TestRedisBrokerFansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	nodeA := startBroker(t, mr.Addr())
	nodeB := startBroker(t, mr.Addr())

	sender := nodeA.Subscribe(RideTopic("r1"))
	remote := nodeB.Subscribe(RideTopic("r1"))

	if err := nodeA.Publish(context.Background(), RideTopic("r1"), Message{Origin: sender.ID, Payload: frame("hello")}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := receive(t, remote)
	if string(got.Payload) != string(frame("hello")) {
		t.Errorf("payload = %s", got.Payload)
	}
	expectNothing(t, sender)
}
