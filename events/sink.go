package events

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// LogrusSink logs every event with its fields flattened, the same
// structured-logging texture the rest of the service applies to state
// transitions.
type LogrusSink struct {
	Logger *log.Logger
}

// NewLogrusSink returns a LogrusSink using logger, falling back to the
// logrus standard logger when logger is nil.
func NewLogrusSink(logger *log.Logger) *LogrusSink {
	return &LogrusSink{Logger: logger}
}

func (s *LogrusSink) entry() *log.Entry {
	if s.Logger != nil {
		return log.NewEntry(s.Logger)
	}
	return log.NewEntry(log.StandardLogger())
}

func (s *LogrusSink) Emit(e Event) {
	switch v := e.(type) {
	case QueueAuthorityUpdated:
		s.entry().WithFields(log.Fields{
			"queue_id": v.QueueID, "old_authority": v.OldAuthority, "new_authority": v.NewAuthority,
		}).Info("queue authority updated")
	case QueueFeeTypeAdded:
		s.entry().WithFields(log.Fields{"queue_id": v.QueueID, "coin_type": v.CoinType}).Info("fee coin added")
	case QueueFeeTypeRemoved:
		s.entry().WithFields(log.Fields{"queue_id": v.QueueID, "coin_type": v.CoinType}).Info("fee coin removed")
	case OracleOverridden:
		s.entry().WithFields(log.Fields{
			"queue_id": v.QueueID, "oracle_id": v.OracleID, "expires_at_ms": v.ExpiresAtMs,
		}).Info("oracle overridden")
	case FeedDropped:
		s.entry().WithFields(log.Fields{
			"feed_id": v.FeedID, "got_samples": v.GotSamples, "want_samples": v.WantSamples,
		}).Warn("feed dropped: insufficient committee samples")
	case QuoteRejected:
		s.entry().WithFields(log.Fields{
			"consumer_id": v.ConsumerID, "feed_id": v.FeedID, "reason": v.Reason,
		}).Debug("quote rejected")
	case QuoteVerified:
		s.entry().WithFields(log.Fields{
			"feed_id": v.FeedID, "slot": v.Slot, "timestamp_ms": v.TimestampMs,
			"queue_id": v.QueueID, "oracles": len(v.Oracles),
		}).Info("quote verified")
	case SignatureInvalid:
		s.entry().WithFields(log.Fields{
			"oracle_id": v.OracleID, "signature": fmt.Sprintf("%x", v.Signature),
		}).Warn("signature invalid")
	case AggregatorAuthorityUpdated:
		s.entry().WithFields(log.Fields{
			"aggregator_id": v.AggregatorID, "old_authority": v.OldAuthority, "new_authority": v.NewAuthority,
		}).Info("aggregator authority updated")
	case QueueCreated:
		s.entry().WithFields(log.Fields{
			"queue_id": v.QueueID, "authority": v.Authority, "name": v.Name,
		}).Info("queue created")
	case AggregateUpdated:
		s.entry().WithFields(log.Fields{
			"aggregator_id": v.AggregatorID, "feed_hash": v.FeedHash,
			"result": v.Result, "mean": v.Mean, "stdev": v.Stdev, "populated": v.Populated,
		}).Info("aggregate updated")
	default:
		s.entry().WithField("event", e).Warn("unrecognized event type")
	}
}
