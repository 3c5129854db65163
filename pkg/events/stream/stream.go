// Copyright 2018-2022 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

// Package stream provides streaming clients used by `Consume` and `Publish`
// methods.
package stream

import (
	"encoding/json"
	"os"
	"reflect"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go-micro.dev/v4/events"

	"github.com/go-micro/plugins/v4/events/natsjs"
)

// NatsConfig configures the nats (jetstream) client.
type NatsConfig struct {
	// Address of the nats server.
	Address string `mapstructure:"address"`
	// ClusterID of the jetstream cluster to join.
	ClusterID string `mapstructure:"cluster_id"`
	// MaxRetryTime bounds the connect retries, in seconds.
	MaxRetryTime int `mapstructure:"max_retry_time"`
}

func (c *NatsConfig) init() {
	if c.Address == "" {
		c.Address = "127.0.0.1:4222"
	}
	if c.ClusterID == "" {
		c.ClusterID = "permgraph-cluster"
	}
	if c.MaxRetryTime == 0 {
		c.MaxRetryTime = 300
	}
}

// ParseNatsConfig decodes a raw config map into a NatsConfig with defaults
// applied.
func ParseNatsConfig(m map[string]interface{}) (*NatsConfig, error) {
	c := &NatsConfig{}
	if err := mapstructure.Decode(m, c); err != nil {
		return nil, errors.Wrap(err, "stream: error decoding conf")
	}
	c.init()
	return c, nil
}

// NatsFromConfig builds a nats streaming client from a raw config map.
func NatsFromConfig(m map[string]interface{}) (events.Stream, error) {
	c, err := ParseNatsConfig(m)
	if err != nil {
		return nil, err
	}
	return Nats(c)
}

// Nats returns a nats streaming client.
// It retries exponentially to connect to the configured server, giving up
// after the configured retry time.
func Nats(c *NatsConfig) (events.Stream, error) {
	c.init()
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Duration(c.MaxRetryTime) * time.Second
	l := zerolog.New(os.Stderr).With().Timestamp().Str("pkg", "events").Logger()

	var stream events.Stream
	o := func() error {
		s, err := natsjs.NewStream(
			natsjs.Address(c.Address),
			natsjs.ClusterID(c.ClusterID),
		)
		if err != nil {
			l.Error().Err(err).Str("address", c.Address).Msg("can't connect to nats (jetstream) server, retrying")
		}
		stream = s
		return err
	}

	if err := backoff.Retry(o, b); err != nil {
		return nil, errors.Wrap(err, "stream: error connecting to nats")
	}
	return stream, nil
}

// Chan is a channel based streaming client.
// Useful for tests or in memory applications.
type Chan [2]chan interface{}

// Publish implementation
func (ch Chan) Publish(_ string, msg interface{}, _ ...events.PublishOption) error {
	go func() {
		ch[0] <- msg
	}()
	return nil
}

// Consume implementation
func (ch Chan) Consume(_ string, _ ...events.ConsumeOption) (<-chan events.Event, error) {
	evch := make(chan events.Event)
	go func() {
		for {
			e := <-ch[1]
			if e == nil {
				// channel closed
				return
			}
			b, _ := json.Marshal(e)
			evname := reflect.TypeOf(e).String()
			evch <- events.Event{
				Payload:  b,
				Metadata: map[string]string{"eventtype": evname},
			}
		}
	}()
	return evch, nil
}
