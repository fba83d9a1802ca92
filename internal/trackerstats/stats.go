// Package trackerstats tracks serving statistics for the tracker HTTP
// server: request counts, response latency percentiles, and swarm
// churn, exposed for the /stats endpoint in both nested and flattened
// JSON form.
package trackerstats

import (
	"time"

	"github.com/pushrax/faststats"
	"github.com/pushrax/flatjson"
)

// Event identifies one kind of countable occurrence recorded via
// RecordEvent.
const (
	Announce = iota
	HandledRequest
	ErroredRequest
	ClientError

	NewSeeder
	NewLeecher
	RemovedPeer
)

// PercentileTimes holds the running latency percentiles for announce
// handling.
type PercentileTimes struct {
	P50 *faststats.Percentile
	P90 *faststats.Percentile
	P95 *faststats.Percentile
}

// Stats accumulates tracker serving statistics. All mutation happens
// on the single goroutine started by New; RecordEvent/RecordTiming are
// safe to call from any goroutine.
type Stats struct {
	Started time.Time `json:"started"`

	Announces       uint64 `json:"trackerAnnounces"`
	RequestsHandled uint64 `json:"requestsHandled"`
	RequestsErrored uint64 `json:"requestsErrored"`
	ClientErrors    uint64 `json:"requestsBad"`

	TorrentsTouched uint64 `json:"torrentsTouched"`
	SeedersJoined   uint64 `json:"seedersJoined"`
	LeechersJoined  uint64 `json:"leechersJoined"`
	PeersRemoved    uint64 `json:"peersRemoved"`

	ResponseTime PercentileTimes `json:"responseTime"`

	events             chan int
	responseTimeEvents chan time.Duration
	flattened          flatjson.Map
}

// New constructs a Stats with the given event-channel buffer size and
// starts its single consuming goroutine.
func New(bufferSize int) *Stats {
	s := &Stats{
		Started:            time.Now(),
		events:             make(chan int, bufferSize),
		responseTimeEvents: make(chan time.Duration, bufferSize),
		ResponseTime: PercentileTimes{
			P50: faststats.NewPercentile(0.5),
			P90: faststats.NewPercentile(0.9),
			P95: faststats.NewPercentile(0.95),
		},
	}

	s.flattened = flatjson.Flatten(s)

	go s.run()
	return s
}

// Flattened returns a flat key/value view of Stats suitable for
// ?flatten=1 rendering.
func (s *Stats) Flattened() flatjson.Map {
	return s.flattened
}

// Uptime returns how long this Stats instance has been running.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.Started)
}

// RecordEvent broadcasts a countable occurrence.
func (s *Stats) RecordEvent(event int) {
	s.events <- event
}

// RecordTiming broadcasts an announce-handling latency sample.
func (s *Stats) RecordTiming(d time.Duration) {
	s.responseTimeEvents <- d
}

// Close stops the consuming goroutine. Must not be followed by further
// RecordEvent/RecordTiming calls.
func (s *Stats) Close() {
	close(s.events)
}

func (s *Stats) run() {
	for {
		select {
		case event, ok := <-s.events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case d := <-s.responseTimeEvents:
			ms := float64(d) / float64(time.Millisecond)
			s.ResponseTime.P50.AddSample(ms)
			s.ResponseTime.P90.AddSample(ms)
			s.ResponseTime.P95.AddSample(ms)
		}
	}
}

func (s *Stats) handleEvent(event int) {
	switch event {
	case Announce:
		s.Announces++
	case HandledRequest:
		s.RequestsHandled++
	case ErroredRequest:
		s.RequestsErrored++
	case ClientError:
		s.ClientErrors++
	case NewSeeder:
		s.SeedersJoined++
		s.TorrentsTouched++
	case NewLeecher:
		s.LeechersJoined++
		s.TorrentsTouched++
	case RemovedPeer:
		s.PeersRemoved++
	}
}
