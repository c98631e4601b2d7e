package mqtt

import (
	"context"
	"path"

	"github.com/goccy/go-json"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// Topic suffixes below the configured prefix.
const (
	WeatherTopic = "weather"
	CyclingTopic = "cycling"
)

// Publisher sends snapshot summaries through a Client.
type Publisher struct {
	client Client
	prefix string
	retain bool
	log    logger.Logger
}

// NewPublisher returns a Publisher writing below prefix.
func NewPublisher(c Client, prefix string, retain bool) *Publisher {
	return &Publisher{
		client: c,
		prefix: prefix,
		retain: retain,
		log:    logger.Global().Module("mqtt"),
	}
}

// Topic joins the prefix and suffix.
func (p *Publisher) Topic(suffix string) string {
	return path.Join(p.prefix, suffix)
}

// PublishSnapshot publishes the weather and cycling messages of snap. A
// disconnected client triggers one connect attempt first. Both messages are
// attempted; the errors are joined.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap *weather.WeatherSnapshot) error {
	if snap == nil {
		return errors.Newf("nil snapshot").
			Component("mqtt").
			Category(errors.CategoryValidation).
			Build()
	}

	if !p.client.IsConnected() {
		if err := p.client.Connect(ctx); err != nil {
			p.log.Warn("broker unavailable, skipping publish", logger.Error(err))
			return err
		}
	}

	var errs []error
	if err := p.publishJSON(ctx, WeatherTopic, NewWeatherMessage(snap)); err != nil {
		errs = append(errs, err)
	}
	if err := p.publishJSON(ctx, CyclingTopic, NewCyclingMessage(snap.Cycling)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *Publisher) publishJSON(ctx context.Context, suffix string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", suffix).
			Build()
	}
	return p.client.Publish(ctx, p.Topic(suffix), payload, p.retain)
}

// Close disconnects the client.
func (p *Publisher) Close() {
	p.client.Disconnect()
}
