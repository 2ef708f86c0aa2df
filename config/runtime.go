package config

import (
	"os"
	"strconv"
	"time"
)

type RuntimeConfig struct {
	// InvocationBudget bounds one worker invocation end to end. When the
	// incoming context already carries a deadline, that deadline wins.
	// Default: 2m
	InvocationBudget time.Duration

	// SafetyBuffer is subtracted from the remaining budget before it is
	// divided across the items of a batch, leaving room to finalize.
	// Default: 10s
	SafetyBuffer time.Duration

	// MaxBatch is the number of work items requested per queue receive.
	// Default: 5
	MaxBatch int

	// AudioURLTTL is the validity window of presigned audio clip URLs.
	// Default: 1h
	AudioURLTTL time.Duration

	// ThreadTTL sets the expiry stamp written on new threads.
	// Default: 90 days
	ThreadTTL time.Duration

	// HistoryLimit caps how many prior messages are replayed into the
	// prompt transcript.
	// Default: 200
	HistoryLimit int

	// ReceiveWait is the long-poll window per queue receive.
	// Default: 20s
	ReceiveWait time.Duration
}

func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		InvocationBudget: 2 * time.Minute,
		SafetyBuffer:     10 * time.Second,
		MaxBatch:         5,
		AudioURLTTL:      time.Hour,
		ThreadTTL:        90 * 24 * time.Hour,
		HistoryLimit:     200,
		ReceiveWait:      20 * time.Second,
	}
}

func NewRuntimeConfigFromEnv() *RuntimeConfig {
	c := NewRuntimeConfig()
	if v, err := time.ParseDuration(os.Getenv("INVOCATION_BUDGET")); err == nil {
		c.InvocationBudget = v
	}
	if v, err := time.ParseDuration(os.Getenv("SAFETY_BUFFER")); err == nil {
		c.SafetyBuffer = v
	}
	if v, err := strconv.Atoi(os.Getenv("MAX_BATCH")); err == nil && v > 0 {
		c.MaxBatch = v
	}
	return c
}
