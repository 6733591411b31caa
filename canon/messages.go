package canon

import (
	"oraclecore.dev/verifier/coreerr"
	"oraclecore.dev/verifier/decimal"
)

// FeedInput is one positional entry of a consensus-message committee
// submission: a feed id, its quoted value, and the
// minimum committee size required to admit it.
type FeedInput struct {
	FeedID           [32]byte
	Value            decimal.Decimal
	MinOracleSamples uint8
}

// BuildConsensusMessage assembles the exact byte buffer signed by the
// off-chain committee over a multi-feed submission:
//
//	slot (u64 LE, 8) || timestamp_seconds (u64 LE, 8) ||
//	for each feed: feed_id (32) || value as i128 LE (16) || min_oracle_samples (1)
//
// Total length = 16 + N*49.
func BuildConsensusMessage(slot uint64, timestampSeconds uint64, feeds []FeedInput) []byte {
	buf := make([]byte, 0, 16+len(feeds)*49)
	buf = appendU64LE(buf, slot)
	buf = appendU64LE(buf, timestampSeconds)
	for _, f := range feeds {
		buf = append(buf, f.FeedID[:]...)
		enc := f.Value.EncodeI128LE()
		buf = append(buf, enc[:]...)
		buf = appendU8(buf, f.MinOracleSamples)
	}
	return buf
}

// BuildUpdateMessage assembles the exact byte buffer signed by a single
// oracle over an aggregator update:
//
//	queue_key (32) || feed_hash (32) || value as i128 LE (16) ||
//	slothash (32) || max_variance (u64 LE, 8) || min_responses (u32 LE, 4) ||
//	timestamp (u64 LE, 8)
//
// Total length = 132. Each 32-byte component is length-checked before
// any byte is appended.
func BuildUpdateMessage(
	queueKey []byte,
	feedHash []byte,
	value decimal.Decimal,
	slothash []byte,
	maxVariance uint64,
	minResponses uint32,
	timestamp uint64,
) ([]byte, error) {
	if len(queueKey) != 32 {
		return nil, coreerr.Newf(coreerr.EWrongQueueLength, "queue_key must be 32 bytes, got %d", len(queueKey))
	}
	if len(feedHash) != 32 {
		return nil, coreerr.Newf(coreerr.EWrongFeedHashLength, "feed_hash must be 32 bytes, got %d", len(feedHash))
	}
	if len(slothash) != 32 {
		return nil, coreerr.Newf(coreerr.EWrongSlothashLength, "slothash must be 32 bytes, got %d", len(slothash))
	}

	buf := make([]byte, 0, 132)
	buf = append(buf, queueKey...)
	buf = append(buf, feedHash...)
	enc := value.EncodeI128LE()
	buf = append(buf, enc[:]...)
	buf = append(buf, slothash...)
	buf = appendU64LE(buf, maxVariance)
	buf = appendU32LE(buf, minResponses)
	buf = appendU64LE(buf, timestamp)
	return buf, nil
}

// CheckSecp256k1KeyLength validates the 64-byte uncompressed X||Y encoding
// used for oracle public keys.
func CheckSecp256k1KeyLength(key []byte) error {
	if len(key) != 64 {
		return coreerr.Newf(coreerr.EWrongSecp256k1KeyLength, "secp256k1_key must be 64 bytes, got %d", len(key))
	}
	return nil
}

// CheckMrEnclaveLength validates the 32-byte enclave measurement encoding.
func CheckMrEnclaveLength(mrEnclave []byte) error {
	if len(mrEnclave) != 32 {
		return coreerr.Newf(coreerr.EWrongMrEnclaveLength, "mr_enclave must be 32 bytes, got %d", len(mrEnclave))
	}
	return nil
}

// CheckOracleIDLength validates a 32-byte oracle identifier encoding.
func CheckOracleIDLength(id []byte) error {
	if len(id) != 32 {
		return coreerr.Newf(coreerr.EWrongOracleIDLength, "oracle_id must be 32 bytes, got %d", len(id))
	}
	return nil
}
