package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bioflow/internal/model"
	"bioflow/internal/telemetry"

	"go.uber.org/zap"
)

// ErrPollDeadline is returned when a schedule's MaxElapsed ceiling is hit
// before the job reaches a terminal status.
var ErrPollDeadline = errors.New("poll deadline exceeded before a terminal status")

// Tier maps a stretch of elapsed polling time to a sleep interval.
type Tier struct {
	Until    time.Duration
	Interval time.Duration
}

// Schedule is the tiered sleep plan for status polling. Tier thresholds are
// in elapsed-time space: elapsed accumulates the sleep amounts, not the
// iteration count. MaxElapsed of zero means no ceiling; cancellation then
// only comes from the context.
type Schedule struct {
	Tiers      []Tier
	Final      time.Duration
	MaxElapsed time.Duration
}

// DefaultSchedule is the remote API's documented cadence: poll every second
// for the first 10 seconds, every 10 seconds until the first minute, then
// once a minute.
func DefaultSchedule() Schedule {
	return Schedule{
		Tiers: []Tier{
			{Until: 10 * time.Second, Interval: time.Second},
			{Until: 60 * time.Second, Interval: 10 * time.Second},
		},
		Final: 60 * time.Second,
	}
}

// interval picks the sleep amount for the given elapsed polling time.
func (s Schedule) interval(elapsed time.Duration) time.Duration {
	for _, t := range s.Tiers {
		if elapsed < t.Until {
			return t.Interval
		}
	}
	return s.Final
}

// JobFailedError reports a job that reached the error terminal status.
type JobFailedError struct {
	Status int
	Body   []byte
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job failed: remote API returned terminal status %d", e.Status)
}

// Poll blocks until a GET against statusURL returns one of the two terminal
// statuses, sleeping between attempts per the client's schedule. It returns
// the accumulated sleep time. Intermediate statuses other than the two
// terminals never stop the loop.
func (c *Client) Poll(ctx context.Context, statusURL string, okStatus, errStatus int) (time.Duration, error) {
	var elapsed time.Duration
	for {
		interval := c.schedule.interval(elapsed)
		if c.schedule.MaxElapsed > 0 && elapsed+interval > c.schedule.MaxElapsed {
			return elapsed, ErrPollDeadline
		}
		if err := c.sleep(ctx, interval); err != nil {
			return elapsed, err
		}
		elapsed += interval

		status, err := c.statusCode(ctx, statusURL)
		if err != nil {
			return elapsed, err
		}
		if status == okStatus || status == errStatus {
			if c.metrics != nil {
				c.metrics.ObservePollDuration(elapsed.Seconds())
			}
			return elapsed, nil
		}
	}
}

// CheckJob polls the job's status endpoint until it terminates and, on
// success, returns the output file descriptors the terminal response lists.
// A job that ends on the error terminal yields a *JobFailedError.
func (c *Client) CheckJob(ctx context.Context, token string) ([]model.OutputFile, time.Duration, error) {
	statusURL := c.baseURL + "retrieve/status/" + token

	elapsed, err := c.Poll(ctx, statusURL, http.StatusOK, http.StatusInternalServerError)
	if err != nil {
		return nil, elapsed, err
	}

	resp, err := c.Get(ctx, statusURL)
	if err != nil {
		return nil, elapsed, err
	}

	telemetry.Logger.Info("Job terminated",
		zap.String("token", token),
		zap.Int("status", resp.Status),
		zap.Duration("elapsed", elapsed),
		zap.ByteString("body", resp.Body),
	)

	if resp.Status != http.StatusOK {
		return nil, elapsed, &JobFailedError{Status: resp.Status, Body: resp.Body}
	}

	var terminal struct {
		OutputFiles []model.OutputFile `json:"output_files"`
	}
	if err := resp.Decode(&terminal); err != nil {
		return nil, elapsed, fmt.Errorf("failed to decode status response: %w", err)
	}
	return terminal.OutputFiles, elapsed, nil
}
