package workers

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"
)

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically samples the length and capacity of buffered
// channels. Reading len and cap never blocks, so sampling does not interfere with
// producers. When less than lowCapacityThreshold slots are left it warns: the
// archive bus starts dropping messages once it is full.
type ChannelCapacityWorker struct {
	log                  *slog.Logger
	channels             []NamedChannel
	metricInterval       time.Duration
	lowCapacityThreshold int
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel,
	metricInterval time.Duration, lowCapacityThreshold int) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:                  log,
		channels:             channels,
		metricInterval:       metricInterval,
		lowCapacityThreshold: lowCapacityThreshold,
	}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel sampling")
			return nil
		case <-ticker.C:
			for _, nc := range w.channels {
				w.Sample(nc)
			}
		}
	}
}

// Sample reports how many slots are left in one channel.
// It returns -1 for anything that is not a buffered channel.
func (w ChannelCapacityWorker) Sample(nc NamedChannel) int {
	v := reflect.ValueOf(nc.Channel)
	if v.Kind() != reflect.Chan {
		w.log.Error("Provided object is not a channel", "name", nc.Name)
		return -1
	}
	capacity, length := v.Cap(), v.Len()
	if capacity <= 0 {
		// In case of unbuffered channel
		return -1
	}
	w.log.Debug(fmt.Sprintf("Channel %s usage: %d / %d", nc.Name, length, capacity))
	left := capacity - length
	if left <= w.lowCapacityThreshold {
		w.log.Warn("Channel close to saturation", "name", nc.Name, "left", left, "capacity", capacity)
	}
	return left
}
