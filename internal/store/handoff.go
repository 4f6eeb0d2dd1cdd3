package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-evaluator/internal/schemas"
	"github.com/jonathan/resume-evaluator/internal/types"
)

// Channel names where a result set was published.
type Channel string

const (
	ChannelPrimary  Channel = "primary"
	ChannelFallback Channel = "fallback"
)

// Handoff publishes result sets for a single consumer.
type Handoff struct {
	primary  KV
	fallback KV
	logger   *logrus.Entry
}

// NewHandoff creates a Handoff. primary may be nil, in which case every set goes
// to the fallback. fallback must not be nil.
func NewHandoff(primary, fallback KV, logger *logrus.Entry) *Handoff {
	if logger == nil {
		logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return &Handoff{primary: primary, fallback: fallback, logger: logger}
}

// Publish validates set, stores a backup copy under KeyBackup on the fallback and
// then stores it under KeyResults on the primary. If the primary is missing or
// rejects the value it is stored under KeyResults on the fallback instead. The
// KeyResults copy on the other channel is removed so readers never see an
// older set.
func (h *Handoff) Publish(set *types.SearchResultSet) (Channel, error) {
	if err := schemas.ValidateResultSet(set); err != nil {
		return "", fmt.Errorf("result set failed validation: %w", err)
	}

	data, err := json.Marshal(set)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result set: %w", err)
	}

	if err := h.fallback.Put(KeyBackup, data); err != nil {
		h.logger.WithField("err", err).Warn("failed to save results backup")
	}

	if h.primary != nil {
		err := h.primary.Put(KeyResults, data)
		if err == nil {
			h.logger.WithField("bytes", len(data)).Debug("results published to primary store")
			h.drop(h.fallback, "fallback")
			return ChannelPrimary, nil
		}
		if errors.Is(err, ErrTooLarge) {
			h.logger.WithField("bytes", len(data)).Info("results too large for primary store, using fallback")
		} else {
			h.logger.WithField("err", err).Warn("primary store unavailable, using fallback")
		}
	}

	if err := h.fallback.Put(KeyResults, data); err != nil {
		return "", fmt.Errorf("failed to publish results: %w", err)
	}
	h.logger.WithField("bytes", len(data)).Debug("results published to fallback store")
	if h.primary != nil {
		h.drop(h.primary, "primary")
	}
	return ChannelFallback, nil
}

// drop removes a superseded KeyResults value from kv.
func (h *Handoff) drop(kv KV, channel string) {
	if err := kv.Delete(KeyResults); err != nil && !errors.Is(err, ErrNotFound) {
		h.logger.WithFields(logrus.Fields{"channel": channel, "err": err}).Warn("failed to remove superseded results")
	}
}

// Peek returns the most recent result set without removing it. It checks the
// primary, then the fallback, then the backup copy.
func (h *Handoff) Peek() (*types.SearchResultSet, error) {
	type source struct {
		kv  KV
		key string
	}
	sources := []source{{h.fallback, KeyResults}, {h.fallback, KeyBackup}}
	if h.primary != nil {
		sources = append([]source{{h.primary, KeyResults}}, sources...)
	}

	for _, src := range sources {
		data, err := src.kv.Get(src.key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			h.logger.WithFields(logrus.Fields{"key": src.key, "err": err}).Warn("failed to read results")
			continue
		}

		var set types.SearchResultSet
		if err := json.Unmarshal(data, &set); err != nil {
			h.logger.WithFields(logrus.Fields{"key": src.key, "err": err}).Warn("stored results are not valid JSON")
			continue
		}
		return &set, nil
	}
	return nil, ErrNotFound
}

// Consume returns the most recent result set like Peek and then removes every
// stored copy, so each set is read once.
func (h *Handoff) Consume() (*types.SearchResultSet, error) {
	set, err := h.Peek()
	if err != nil {
		return nil, err
	}
	if err := h.clear(); err != nil {
		h.logger.WithField("err", err).Warn("failed to clean up stored results")
	}
	return set, nil
}

func (h *Handoff) clear() error {
	var result *multierror.Error
	if h.primary != nil {
		if err := h.primary.Delete(KeyResults); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, key := range []string{KeyResults, KeyBackup} {
		if err := h.fallback.Delete(key); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Close closes both stores.
func (h *Handoff) Close() error {
	var result *multierror.Error
	if h.primary != nil {
		if err := h.primary.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := h.fallback.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
