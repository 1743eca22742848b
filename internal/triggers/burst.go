package triggers

import (
	"context"
	"fmt"
	"time"

	"warden/internal/suspension"
)

// Burst thresholds: three or more submissions by one user inside a trailing
// hour fires the detector.
const (
	burstWindow    = time.Hour
	burstThreshold = 3
)

// BurstDetector flags rapid-fire submission behavior.
type BurstDetector struct {
	window ActivityWindow
}

func NewBurstDetector(window ActivityWindow) *BurstDetector {
	return &BurstDetector{window: window}
}

func (d *BurstDetector) Name() string { return "burst" }

func (d *BurstDetector) Detect(ctx context.Context, event SubmissionEvent) (Finding, bool, error) {
	count, err := d.window.RecordAndCount(ctx, event.UserID.String(), event.OccurredAt, burstWindow)
	if err != nil {
		return Finding{}, false, err
	}
	if count < burstThreshold {
		return Finding{}, false, nil
	}
	return Finding{
		Category: suspension.ReasonBurst,
		Details:  fmt.Sprintf("%d submissions within %s", count, burstWindow),
	}, true, nil
}
