// Command gen-quote-fixtures is the conformance-fixture generator for
// the canonical message and signature formats: a single stdin-JSON
// request, stdout-JSON-response binary with no subcommand framework, so
// fixture generation can be driven from any conformance harness
// regardless of language.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"oraclecore.dev/verifier/canon"
	"oraclecore.dev/verifier/coreerr"
	"oraclecore.dev/verifier/cryptoprovider"
	"oraclecore.dev/verifier/decimal"
	"oraclecore.dev/verifier/sigverify"
)

// FeedInputJSON is the wire shape of one consensus-message feed entry.
type FeedInputJSON struct {
	FeedIDHex        string `json:"feed_id"`
	Value            uint64 `json:"value"`
	ValueNeg         bool   `json:"value_neg"`
	MinOracleSamples uint8  `json:"min_oracle_samples"`
}

// Request is the single stdin-decoded request shape, fields populated
// according to op.
type Request struct {
	Op string `json:"op"`

	// build-consensus-digest
	Slot             uint64          `json:"slot,omitempty"`
	TimestampSeconds uint64          `json:"timestamp_seconds,omitempty"`
	Feeds            []FeedInputJSON `json:"feeds,omitempty"`

	// build-update-digest
	QueueKeyHex  string `json:"queue_key,omitempty"`
	FeedHashHex  string `json:"feed_hash,omitempty"`
	Value        uint64 `json:"value,omitempty"`
	ValueNeg     bool   `json:"value_neg,omitempty"`
	SlothashHex  string `json:"slothash,omitempty"`
	MaxVariance  uint64 `json:"max_variance,omitempty"`
	MinResponses uint32 `json:"min_responses,omitempty"`
	Timestamp    uint64 `json:"timestamp,omitempty"`

	// sign-and-verify
	DigestHex  string `json:"digest,omitempty"`
	PrivKeyHex string `json:"priv_key,omitempty"`
}

// Response is the single flat response shape: an Ok flag, an Err code on
// failure, and whichever payload fields the op populated.
type Response struct {
	Ok           bool   `json:"ok"`
	Err          string `json:"err,omitempty"`
	MessageHex   string `json:"message_hex,omitempty"`
	DigestHex    string `json:"digest,omitempty"`
	SignatureHex string `json:"signature_hex,omitempty"`
	PubKeyHex    string `json:"pub_key_hex,omitempty"`
	PrivKeyHex   string `json:"priv_key_hex,omitempty"`
	Valid        bool   `json:"valid,omitempty"`
}

func writeResp(w io.Writer, resp Response) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

func errResp(w io.Writer, err error) {
	if ce, ok := err.(*coreerr.CoreError); ok {
		writeResp(w, Response{Ok: false, Err: string(ce.Code)})
		return
	}
	writeResp(w, Response{Ok: false, Err: err.Error()})
}

func decodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return out, fmt.Errorf("expected 32-byte hex, got %q", s)
	}
	copy(out[:], b)
	return out, nil
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResp(os.Stdout, Response{Ok: false, Err: fmt.Sprintf("bad request: %v", err)})
		return
	}

	switch req.Op {
	case "build-consensus-digest":
		feeds := make([]canon.FeedInput, 0, len(req.Feeds))
		for _, f := range req.Feeds {
			id, err := decodeHex32(f.FeedIDHex)
			if err != nil {
				writeResp(os.Stdout, Response{Ok: false, Err: "bad feed_id"})
				return
			}
			feeds = append(feeds, canon.FeedInput{
				FeedID:           id,
				Value:            decimal.FromUint64(f.Value, f.ValueNeg),
				MinOracleSamples: f.MinOracleSamples,
			})
		}
		msg := canon.BuildConsensusMessage(req.Slot, req.TimestampSeconds, feeds)
		digest := canon.Digest(msg)
		writeResp(os.Stdout, Response{Ok: true, MessageHex: hex.EncodeToString(msg), DigestHex: hex.EncodeToString(digest[:])})
		return

	case "build-update-digest":
		queueKey, err := hex.DecodeString(req.QueueKeyHex)
		if err != nil {
			writeResp(os.Stdout, Response{Ok: false, Err: "bad queue_key"})
			return
		}
		feedHash, err := hex.DecodeString(req.FeedHashHex)
		if err != nil {
			writeResp(os.Stdout, Response{Ok: false, Err: "bad feed_hash"})
			return
		}
		slothash, err := hex.DecodeString(req.SlothashHex)
		if err != nil {
			writeResp(os.Stdout, Response{Ok: false, Err: "bad slothash"})
			return
		}
		msg, err := canon.BuildUpdateMessage(queueKey, feedHash, decimal.FromUint64(req.Value, req.ValueNeg), slothash, req.MaxVariance, req.MinResponses, req.Timestamp)
		if err != nil {
			errResp(os.Stdout, err)
			return
		}
		digest := canon.Digest(msg)
		writeResp(os.Stdout, Response{Ok: true, MessageHex: hex.EncodeToString(msg), DigestHex: hex.EncodeToString(digest[:])})
		return

	case "sign-and-verify":
		digest, err := decodeHex32(req.DigestHex)
		if err != nil {
			writeResp(os.Stdout, Response{Ok: false, Err: "bad digest"})
			return
		}

		var signer *cryptoprovider.Secp256k1Signer
		if req.PrivKeyHex != "" {
			privBytes, err := hex.DecodeString(req.PrivKeyHex)
			if err != nil || len(privBytes) != 32 {
				writeResp(os.Stdout, Response{Ok: false, Err: "bad priv_key"})
				return
			}
			priv := secp256k1.PrivKeyFromBytes(privBytes)
			signer = cryptoprovider.NewSecp256k1Signer(priv)
		} else {
			signer, err = cryptoprovider.GenerateSecp256k1Signer()
			if err != nil {
				errResp(os.Stdout, err)
				return
			}
		}

		sig, err := signer.Sign(digest)
		if err != nil {
			errResp(os.Stdout, err)
			return
		}
		pub := signer.PublicKey()
		valid, err := sigverify.Check(digest, sig, pub)
		if err != nil {
			errResp(os.Stdout, err)
			return
		}
		writeResp(os.Stdout, Response{
			Ok:           true,
			SignatureHex: hex.EncodeToString(sig),
			PubKeyHex:    hex.EncodeToString(pub[:]),
			Valid:        valid,
		})
		return

	default:
		writeResp(os.Stdout, Response{Ok: false, Err: "unknown op"})
		return
	}
}
