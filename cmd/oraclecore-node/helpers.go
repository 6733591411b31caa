package main

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"oraclecore.dev/verifier/decimal"
)

// buildFeeds converts the wire-shaped submit-quotes feed list into the
// parallel arrays quotesubmit.Dispatch expects.
func buildFeeds(feeds []submitQuotesFeed) ([][32]byte, []*uint256.Int, []bool, []uint8, error) {
	feedIDs := make([][32]byte, len(feeds))
	values := make([]*uint256.Int, len(feeds))
	valuesNeg := make([]bool, len(feeds))
	minSamples := make([]uint8, len(feeds))
	for i, f := range feeds {
		id, err := decodeHex32(f.FeedIDHex)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("feed %d: %w", i, err)
		}
		feedIDs[i] = id
		values[i] = new(uint256.Int).SetUint64(f.Value)
		valuesNeg[i] = f.ValueNeg
		minSamples[i] = f.MinOracleSamples
	}
	return feedIDs, values, valuesNeg, minSamples, nil
}

// decimalFromUint64 mirrors client.FeedSubmission.DecimalOf for the
// single-value case submit-result needs.
func decimalFromUint64(v uint64, neg bool) decimal.Decimal {
	return decimal.FromUint64(v, neg)
}

func writeJSONOrFail(enc *json.Encoder, v any) int {
	if err := enc.Encode(v); err != nil {
		fmt.Println(err)
		return 1
	}
	return 0
}
