// Package statsd emits the engine's runtime metrics. Only this file touches
// the datadog client, so swapping the metrics backend stays a one-file
// change; anything implementing ddstatsd.ClientInterface can stand in.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

// Client returns the active statsd client. Before Init, and after Close,
// this is a no-op client, so emitting metrics is always safe.
func Client() ddstatsd.ClientInterface {
	return client
}

// EmitTickStat emits the duration of one phase of the tick.
func EmitTickStat(start time.Time, phase string) {
	if err := Client().Timing("tick", time.Since(start), []string{phase}, 1); err != nil {
		log.Logger.Warn().Msgf("tick stat dropped: %v", err)
	}
}

// EmitEntityCountStat emits the number of live entities after a tick.
func EmitEntityCountStat(count int) {
	if err := Client().Gauge("entities", float64(count), nil, 1); err != nil {
		log.Logger.Warn().Msgf("entity count stat dropped: %v", err)
	}
}

// Init points the package at a statsd agent. Metric names are prefixed with
// "azimuth" and every emission carries the given tags.
func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("statsd address is empty")
	}
	opts := []ddstatsd.Option{
		ddstatsd.WithNamespace("azimuth"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}
	c, err := ddstatsd.New(address, opts...)
	if err != nil {
		return err
	}
	client = c
	return nil
}

// Close flushes any buffered metrics and restores the no-op client.
func Close() error {
	err := client.Close()
	client = &ddstatsd.NoOpClient{}
	return err
}
