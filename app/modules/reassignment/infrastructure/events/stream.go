package reassignmentevents

import (
	"errors"
	"fmt"
	"time"

	nc "github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream holding reassignment events.
	StreamName = "VENUE_REASSIGNMENT"
	// StreamSubjects matches every reassignment topic.
	StreamSubjects = "venue.reassignment.>"

	streamMaxAge = 7 * 24 * time.Hour
)

// EnsureStream creates the reassignment stream when it does not exist yet.
func EnsureStream(natsURL string) error {
	conn, err := nc.Connect(natsURL, nc.Name("venue-engine-provisioner"), nc.Timeout(10*time.Second))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer conn.Close()

	js, err := conn.JetStream()
	if err != nil {
		return fmt.Errorf("failed to open JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(StreamName); err == nil {
		return nil
	} else if !errors.Is(err, nc.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", StreamName, err)
	}

	if _, err := js.AddStream(&nc.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{StreamSubjects},
		Retention: nc.LimitsPolicy,
		Storage:   nc.FileStorage,
		MaxAge:    streamMaxAge,
	}); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}
	return nil
}
