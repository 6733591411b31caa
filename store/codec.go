package store

import (
	"encoding/hex"
	"encoding/json"
	"math/big"

	"github.com/holiman/uint256"

	"oraclecore.dev/verifier/aggregator"
	"oraclecore.dev/verifier/coreerr"
	"oraclecore.dev/verifier/decimal"
	"oraclecore.dev/verifier/oracle"
	"oraclecore.dev/verifier/queue"
	"oraclecore.dev/verifier/quoteverifier"
)

// decimalDTO is the JSON-safe encoding of a decimal.Decimal: the
// magnitude as a decimal string (uint256.Int has no json.Marshaler this
// pack exposes) plus the sign flag.
type decimalDTO struct {
	Magnitude string `json:"magnitude"`
	Neg       bool   `json:"neg"`
}

func encodeDecimal(d decimal.Decimal) decimalDTO {
	mag, neg := d.Unpack()
	return decimalDTO{Magnitude: mag.ToBig().String(), Neg: neg}
}

func decodeDecimal(dto decimalDTO) (decimal.Decimal, error) {
	bi, ok := new(big.Int).SetString(dto.Magnitude, 10)
	if !ok {
		return decimal.Decimal{}, coreerr.Newf(coreerr.EInvalidLength, "store: malformed decimal magnitude %q", dto.Magnitude)
	}
	if !decimal.Fits128(bi) {
		return decimal.Decimal{}, coreerr.New(coreerr.EInvalidLength, "store: decimal magnitude overflows 128 bits")
	}
	mag, _ := uint256.FromBig(bi)
	return decimal.New(mag, dto.Neg)
}

// oracleDTO mirrors oracle.Oracle for bbolt persistence.
type oracleDTO struct {
	ID             string   `json:"id"`
	QueueID        string   `json:"queue_id"`
	OracleKey      string   `json:"oracle_key"`
	Secp256k1Key   string   `json:"secp256k1_key"`
	MrEnclave      string   `json:"mr_enclave"`
	ExpirationMs   uint64   `json:"expiration_time_ms"`
	LastOverrideMs uint64   `json:"last_override_ms"`
	ValidAttests   []string `json:"valid_attestations"`
}

func encodeOracle(o *oracle.Oracle) oracleDTO {
	id := o.ID()
	queueID := o.QueueID()
	oracleKey := o.OracleKey()
	secp := o.Secp256k1Key()
	mr := o.MrEnclave()
	attests := o.ValidAttestations()
	out := make([]string, len(attests))
	for i, a := range attests {
		out[i] = hex.EncodeToString(a[:])
	}
	return oracleDTO{
		ID:             hex.EncodeToString(id[:]),
		QueueID:        hex.EncodeToString(queueID[:]),
		OracleKey:      hex.EncodeToString(oracleKey[:]),
		Secp256k1Key:   hex.EncodeToString(secp[:]),
		MrEnclave:      hex.EncodeToString(mr[:]),
		ExpirationMs:   o.ExpirationTimeMs(),
		LastOverrideMs: o.LastOverrideMs(),
		ValidAttests:   out,
	}
}

func decodeOracle(dto oracleDTO) (*oracle.Oracle, error) {
	id, err := decodeHex32(dto.ID, "oracle.id")
	if err != nil {
		return nil, err
	}
	queueID, err := decodeHex32(dto.QueueID, "oracle.queue_id")
	if err != nil {
		return nil, err
	}
	oracleKey, err := decodeHex32(dto.OracleKey, "oracle.oracle_key")
	if err != nil {
		return nil, err
	}
	secp, err := decodeHex64(dto.Secp256k1Key, "oracle.secp256k1_key")
	if err != nil {
		return nil, err
	}
	mr, err := decodeHex32(dto.MrEnclave, "oracle.mr_enclave")
	if err != nil {
		return nil, err
	}
	attests := make([][32]byte, len(dto.ValidAttests))
	for i, s := range dto.ValidAttests {
		a, err := decodeHex32(s, "oracle.valid_attestations[]")
		if err != nil {
			return nil, err
		}
		attests[i] = a
	}
	return oracle.Restore(id, queueID, oracleKey, secp, mr, dto.ExpirationMs, dto.LastOverrideMs, attests), nil
}

// queueDTO mirrors queue.Queue for bbolt persistence.
type queueDTO struct {
	ID                     string            `json:"id"`
	QueueKey               string            `json:"queue_key"`
	Authority              string            `json:"authority"`
	Name                   string            `json:"name"`
	Fee                    uint64            `json:"fee"`
	FeeRecipient           string            `json:"fee_recipient"`
	MinAttestations        uint32            `json:"min_attestations"`
	OracleValidityLengthMs uint64            `json:"oracle_validity_length_ms"`
	GuardianQueueID        string            `json:"guardian_queue_id"`
	IsGuardian             bool              `json:"is_guardian"`
	CreatedAtMs            uint64            `json:"created_at_ms"`
	LastQueueOverrideMs    uint64            `json:"last_queue_override_ms"`
	ExistingOracles        map[string]string `json:"existing_oracles"`
	FeeTypes               []string          `json:"fee_types"`
}

func encodeQueue(q *queue.Queue) queueDTO {
	id := q.ID()
	key := q.QueueKey()
	guardian := q.GuardianQueueID()
	existing := q.ExistingOracles()
	out := make(map[string]string, len(existing))
	for oracleID, oracleKey := range existing {
		out[hex.EncodeToString(oracleID[:])] = hex.EncodeToString(oracleKey[:])
	}
	return queueDTO{
		ID:                     hex.EncodeToString(id[:]),
		QueueKey:               hex.EncodeToString(key[:]),
		Authority:              q.Authority(),
		Name:                   q.Name(),
		Fee:                    q.Fee(),
		FeeRecipient:           q.FeeRecipient(),
		MinAttestations:        q.MinAttestations(),
		OracleValidityLengthMs: q.OracleValidityLengthMs(),
		GuardianQueueID:        hex.EncodeToString(guardian[:]),
		IsGuardian:             q.IsGuardian(),
		CreatedAtMs:            q.CreatedAtMs(),
		LastQueueOverrideMs:    q.LastQueueOverrideMs(),
		ExistingOracles:        out,
		FeeTypes:               q.FeeTypes(),
	}
}

func decodeQueue(dto queueDTO) (*queue.Queue, error) {
	id, err := decodeHex32(dto.ID, "queue.id")
	if err != nil {
		return nil, err
	}
	key, err := decodeHex32(dto.QueueKey, "queue.queue_key")
	if err != nil {
		return nil, err
	}
	guardian, err := decodeHex32(dto.GuardianQueueID, "queue.guardian_queue_id")
	if err != nil {
		return nil, err
	}
	existing := make(map[[32]byte][32]byte, len(dto.ExistingOracles))
	for oracleIDHex, oracleKeyHex := range dto.ExistingOracles {
		oracleID, err := decodeHex32(oracleIDHex, "queue.existing_oracles key")
		if err != nil {
			return nil, err
		}
		oracleKey, err := decodeHex32(oracleKeyHex, "queue.existing_oracles value")
		if err != nil {
			return nil, err
		}
		existing[oracleID] = oracleKey
	}
	return queue.Restore(
		id, key, dto.Authority, dto.Name, dto.Fee, dto.FeeRecipient,
		dto.MinAttestations, dto.OracleValidityLengthMs, guardian, dto.IsGuardian,
		dto.CreatedAtMs, dto.LastQueueOverrideMs, existing, dto.FeeTypes,
	), nil
}

// aggregatorDTO mirrors aggregator.Aggregator for bbolt persistence.
type aggregatorDTO struct {
	ID                  string        `json:"id"`
	Authority           string        `json:"authority"`
	QueueID             string        `json:"queue_id"`
	FeedHash            string        `json:"feed_hash"`
	Name                string        `json:"name"`
	CreatedAtMs         uint64        `json:"created_at_ms"`
	MaxStalenessSeconds uint64        `json:"max_staleness_seconds"`
	MaxVariance         uint64        `json:"max_variance"`
	MinResponses        uint32        `json:"min_responses"`
	Results             []responseDTO `json:"results"`
	Filled              []bool        `json:"filled"`
	CurrIdx             int           `json:"curr_idx"`
	Populated           int           `json:"populated"`
	HasSummary          bool          `json:"has_summary"`
	Summary             summaryDTO    `json:"summary"`
}

type responseDTO struct {
	OracleID    string     `json:"oracle_id"`
	Value       decimalDTO `json:"value"`
	TimestampMs uint64     `json:"timestamp_ms"`
}

type summaryDTO struct {
	Result         float64 `json:"result"`
	Mean           float64 `json:"mean"`
	Range          float64 `json:"range"`
	Stdev          float64 `json:"stdev"`
	MinResult      float64 `json:"min_result"`
	MaxResult      float64 `json:"max_result"`
	MinTimestampMs uint64  `json:"min_timestamp_ms"`
	MaxTimestampMs uint64  `json:"max_timestamp_ms"`
}

func encodeAggregator(a *aggregator.Aggregator) (aggregatorDTO, error) {
	id := a.ID()
	queueID := a.QueueID()
	feedHash := a.FeedHash()
	results, filled, currIdx, populated := a.RingSnapshot()
	resultDTOs := make([]responseDTO, len(results))
	for i, r := range results {
		resultDTOs[i] = responseDTO{
			OracleID:    hex.EncodeToString(r.OracleID[:]),
			Value:       encodeDecimal(r.Value),
			TimestampMs: r.TimestampMs,
		}
	}
	summary, hasSummary := a.CurrentResult()
	return aggregatorDTO{
		ID:                  hex.EncodeToString(id[:]),
		Authority:           a.Authority(),
		QueueID:             hex.EncodeToString(queueID[:]),
		FeedHash:            hex.EncodeToString(feedHash[:]),
		Name:                a.Name(),
		CreatedAtMs:         a.CreatedAtMs(),
		MaxStalenessSeconds: a.MaxStalenessSeconds(),
		MaxVariance:         a.MaxVariance(),
		MinResponses:        a.MinResponses(),
		Results:             resultDTOs,
		Filled:              filled,
		CurrIdx:             currIdx,
		Populated:           populated,
		HasSummary:          hasSummary,
		Summary: summaryDTO{
			Result: summary.Result, Mean: summary.Mean, Range: summary.Range,
			Stdev: summary.Stdev, MinResult: summary.MinResult, MaxResult: summary.MaxResult,
			MinTimestampMs: summary.MinTimestampMs, MaxTimestampMs: summary.MaxTimestampMs,
		},
	}, nil
}

func decodeAggregator(dto aggregatorDTO) (*aggregator.Aggregator, error) {
	id, err := decodeHex32(dto.ID, "aggregator.id")
	if err != nil {
		return nil, err
	}
	queueID, err := decodeHex32(dto.QueueID, "aggregator.queue_id")
	if err != nil {
		return nil, err
	}
	feedHash, err := decodeHex32(dto.FeedHash, "aggregator.feed_hash")
	if err != nil {
		return nil, err
	}
	results := make([]aggregator.Response, len(dto.Results))
	for i, r := range dto.Results {
		d, err := decodeDecimal(r.Value)
		if err != nil {
			return nil, err
		}
		oracleID, err := decodeHex32(r.OracleID, "aggregator.results[].oracle_id")
		if err != nil {
			return nil, err
		}
		results[i] = aggregator.Response{OracleID: oracleID, Value: d, TimestampMs: r.TimestampMs}
	}
	summary := aggregator.Summary{
		Result: dto.Summary.Result, Mean: dto.Summary.Mean, Range: dto.Summary.Range,
		Stdev: dto.Summary.Stdev, MinResult: dto.Summary.MinResult, MaxResult: dto.Summary.MaxResult,
		MinTimestampMs: dto.Summary.MinTimestampMs, MaxTimestampMs: dto.Summary.MaxTimestampMs,
	}
	return aggregator.Restore(
		id, dto.Authority, queueID, feedHash, dto.Name, dto.CreatedAtMs,
		dto.MaxStalenessSeconds, dto.MaxVariance, dto.MinResponses,
		results, dto.Filled, dto.CurrIdx, dto.Populated, summary, dto.HasSummary,
	), nil
}

// quoteVerifierDTO mirrors quoteverifier.QuoteVerifier for bbolt persistence.
type quoteVerifierDTO struct {
	ID      string                `json:"id"`
	QueueID string                `json:"queue_id"`
	Quotes  map[string]quoteEntry `json:"quotes"`
}

type quoteEntry struct {
	Value       decimalDTO `json:"value"`
	TimestampMs uint64     `json:"timestamp_ms"`
	Slot        uint64     `json:"slot"`
}

func encodeQuoteVerifier(v *quoteverifier.QuoteVerifier) quoteVerifierDTO {
	id := v.ID()
	queueID := v.QueueID()
	quotes := v.Quotes()
	out := make(map[string]quoteEntry, len(quotes))
	for feedID, q := range quotes {
		out[hex.EncodeToString(feedID[:])] = quoteEntry{
			Value:       encodeDecimal(q.Value),
			TimestampMs: q.TimestampMs,
			Slot:        q.Slot,
		}
	}
	return quoteVerifierDTO{ID: hex.EncodeToString(id[:]), QueueID: hex.EncodeToString(queueID[:]), Quotes: out}
}

func decodeQuoteVerifier(dto quoteVerifierDTO) (*quoteverifier.QuoteVerifier, error) {
	id, err := decodeHex32(dto.ID, "quoteverifier.id")
	if err != nil {
		return nil, err
	}
	queueID, err := decodeHex32(dto.QueueID, "quoteverifier.queue_id")
	if err != nil {
		return nil, err
	}
	quotes := make(map[[32]byte]quoteverifier.Quote, len(dto.Quotes))
	for feedIDHex, entry := range dto.Quotes {
		feedID, err := decodeHex32(feedIDHex, "quoteverifier.quotes key")
		if err != nil {
			return nil, err
		}
		value, err := decodeDecimal(entry.Value)
		if err != nil {
			return nil, err
		}
		quotes[feedID] = quoteverifier.Quote{FeedID: feedID, Value: value, TimestampMs: entry.TimestampMs, Slot: entry.Slot}
	}
	return quoteverifier.Restore(id, queueID, quotes), nil
}

func decodeHex32(s string, name string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return out, coreerr.Newf(coreerr.EInvalidLength, "store: %s must decode to 32 bytes", name)
	}
	copy(out[:], b)
	return out, nil
}

func decodeHex64(s string, name string) ([64]byte, error) {
	var out [64]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 64 {
		return out, coreerr.Newf(coreerr.EInvalidLength, "store: %s must decode to 64 bytes", name)
	}
	copy(out[:], b)
	return out, nil
}

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshal(b []byte, v any) error {
	return json.Unmarshal(b, v)
}
