package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/anhkiet307/swapstation/core/metrics"
	"github.com/anhkiet307/swapstation/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDispatchAttempt writes one dispatch_attempt point.
func (s *InfluxSink) RecordDispatchAttempt(ev coremetrics.DispatchAttemptEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_attempt").
		AddTag("attempt_id", ev.AttemptID).
		AddTag("station_id", strconv.FormatInt(ev.StationID, 10)).
		AddTag("state", ev.State).
		AddTag("component", "dispatch_manager")
	if ev.Violation != "" {
		p = p.AddTag("violation", ev.Violation)
	}
	p = p.AddField("source_id", ev.SourceID).
		AddField("target_id", ev.TargetID).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSlotState writes a snapshot of a slot.
func (s *InfluxSink) RecordSlotState(ev coremetrics.SlotStateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v := ev.Slot
	p := write.NewPointWithMeasurement("pinslot_state").
		AddTag("slot_id", strconv.FormatInt(v.ID, 10)).
		AddTag("station_id", strconv.FormatInt(v.StationID, 10))
	if ev.Component != "" {
		p = p.AddTag("component", ev.Component)
	}
	p = p.AddTag("attempt_id", ev.AttemptID).
		AddField("charge_percent", round3(v.ChargePercent)).
		AddField("health_percent", round3(v.HealthPercent)).
		AddField("status", string(v.Status)).
		AddField("version", v.Version).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
