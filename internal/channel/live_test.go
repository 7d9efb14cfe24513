package channel

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// TestLiveChannelConnection joins a meeting on a running relay and prints the
// first few events. Skipped unless MEETSYNC_LIVE_ADDR and MEETSYNC_LIVE_MEETING
// are set.
func TestLiveChannelConnection(t *testing.T) {
	addr := os.Getenv("MEETSYNC_LIVE_ADDR")
	meetingID := os.Getenv("MEETSYNC_LIVE_MEETING")
	if addr == "" || meetingID == "" {
		t.Skip("no live channel configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	fmt.Println("Connected to", addr)

	if err := client.Join(meetingID); err != nil {
		t.Fatalf("join: %v", err)
	}

	events := make(chan Envelope, 3)
	go func() {
		defer close(events)
		for i := 0; i < 3; i++ {
			ev, err := client.Next()
			if err != nil {
				return
			}
			events <- ev
		}
	}()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Printf("Event: %s meeting=%q\n", ev.Event, ev.MeetingID())
		case <-timeout:
			fmt.Println("No more events within 5s")
			return
		}
	}
}
