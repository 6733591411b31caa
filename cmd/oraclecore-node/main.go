// Command oraclecore-node drives the verifier's live pipelines against
// a store.DB: os.Args[1] command dispatch into per-command flag.FlagSet
// parsers, each taking --context-json for the structured request a
// single flag can't express.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"oraclecore.dev/verifier/aggregator"
	"oraclecore.dev/verifier/events"
	"oraclecore.dev/verifier/node"
	"oraclecore.dev/verifier/oracle"
	"oraclecore.dev/verifier/quotesubmit"
	"oraclecore.dev/verifier/quoteverifier"
	"oraclecore.dev/verifier/store"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: oraclecore-node <command> [args]")
	fmt.Fprintln(os.Stderr, "commands: submit-quotes --config <path> --context-json <path> | verify-quotes --config <path> --context-json <path> | submit-result --config <path> --context-json <path>")
}

func loadConfig(path string) (node.Config, error) {
	if path == "" {
		return node.DefaultConfig(), nil
	}
	return node.LoadConfigFile(path)
}

func configureLogging(cfg node.Config) {
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
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

func decodeHex65(s string) ([65]byte, error) {
	var out [65]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 65 {
		return out, fmt.Errorf("expected 65-byte hex, got %q", s)
	}
	copy(out[:], b)
	return out, nil
}

func readContext(path string, v any) error {
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-supplied CLI argument, not attacker input.
	if err != nil {
		return fmt.Errorf("read --context-json: %w", err)
	}
	return json.Unmarshal(raw, v)
}

// --- submit-quotes ---

type submitQuotesFeed struct {
	FeedIDHex        string `json:"feed_id"`
	Value            uint64 `json:"value"`
	ValueNeg         bool   `json:"value_neg"`
	MinOracleSamples uint8  `json:"min_oracle_samples"`
}

type submitQuotesContext struct {
	QueueIDHex       string             `json:"queue_id"`
	CommitteeSize    int                `json:"committee_size"`
	Feeds            []submitQuotesFeed `json:"feeds"`
	SignaturesHex    []string           `json:"signatures"`
	Slot             uint64             `json:"slot"`
	TimestampSeconds uint64             `json:"timestamp_seconds"`
	OracleIDsHex     []string           `json:"oracle_ids"`
	NowMs            uint64             `json:"now_ms"`
}

func cmdSubmitQuotesMain(argv []string) int {
	fs := flag.NewFlagSet("submit-quotes", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a node.Config JSON file")
	contextPath := fs.String("context-json", "", "path to a submit-quotes request JSON file")
	_ = fs.Parse(argv)
	if *contextPath == "" {
		fmt.Fprintln(os.Stderr, "missing required flag: --context-json")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}
	configureLogging(cfg)

	var ctx submitQuotesContext
	if err := readContext(*contextPath, &ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	queueID, err := decodeHex32(ctx.QueueIDHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	q, ok, err := db.GetQueue(queueID)
	if err != nil || !ok {
		fmt.Fprintln(os.Stderr, "queue not found:", ctx.QueueIDHex)
		return 1
	}

	feedIDs, valuesU, valuesNeg, minSamples, err := buildFeeds(ctx.Feeds)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	oracles := make([]*oracle.Oracle, len(ctx.OracleIDsHex))
	for i, h := range ctx.OracleIDsHex {
		id, err := decodeHex32(h)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		o, ok, err := db.GetOracle(id)
		if err != nil || !ok {
			fmt.Fprintln(os.Stderr, "oracle not found:", h)
			return 1
		}
		oracles[i] = o
	}

	signatures := make([][65]byte, len(ctx.SignaturesHex))
	for i, h := range ctx.SignaturesHex {
		sig, err := decodeHex65(h)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		signatures[i] = sig
	}

	sink := events.NewLogrusSink(nil)
	bundle, invalid, err := quotesubmit.Dispatch(ctx.CommitteeSize, feedIDs, valuesU, valuesNeg, minSamples, signatures, ctx.Slot, ctx.TimestampSeconds, oracles, q, ctx.NowMs, sink)
	if err != nil {
		fmt.Fprintln(os.Stderr, "submit-quotes error:", err)
		return 1
	}

	out := struct {
		Bundle  *quotesubmit.Quotes       `json:"bundle"`
		Invalid []events.SignatureInvalid `json:"invalid_signatures"`
	}{bundle, invalid}
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	return writeJSONOrFail(enc, out)
}

// --- verify-quotes ---

type verifyQuotesBundleQuote struct {
	FeedIDHex   string `json:"feed_id"`
	Value       uint64 `json:"value"`
	ValueNeg    bool   `json:"value_neg"`
	TimestampMs uint64 `json:"timestamp_ms"`
	Slot        uint64 `json:"slot"`
}

type verifyQuotesBundle struct {
	QueueIDHex   string                    `json:"queue_id"`
	OracleIDsHex []string                  `json:"oracles"`
	Quotes       []verifyQuotesBundleQuote `json:"quotes"`
}

type verifyQuotesContext struct {
	VerifierIDHex string             `json:"verifier_id"`
	Bundle        verifyQuotesBundle `json:"bundle"`
	NowMs         uint64             `json:"now_ms"`
}

func (b verifyQuotesBundle) toQuotesBundle() (*quotesubmit.Quotes, error) {
	queueID, err := decodeHex32(b.QueueIDHex)
	if err != nil {
		return nil, fmt.Errorf("bundle queue_id: %w", err)
	}
	oracles := make([][32]byte, len(b.OracleIDsHex))
	for i, h := range b.OracleIDsHex {
		id, err := decodeHex32(h)
		if err != nil {
			return nil, fmt.Errorf("bundle oracle %d: %w", i, err)
		}
		oracles[i] = id
	}
	quotes := make([]quotesubmit.Quote, len(b.Quotes))
	for i, q := range b.Quotes {
		id, err := decodeHex32(q.FeedIDHex)
		if err != nil {
			return nil, fmt.Errorf("bundle quote %d: %w", i, err)
		}
		quotes[i] = quotesubmit.Quote{
			FeedID:      id,
			Value:       decimalFromUint64(q.Value, q.ValueNeg),
			TimestampMs: q.TimestampMs,
			Slot:        q.Slot,
		}
	}
	return &quotesubmit.Quotes{QueueID: queueID, Oracles: oracles, Quotes: quotes}, nil
}

func cmdVerifyQuotesMain(argv []string) int {
	fs := flag.NewFlagSet("verify-quotes", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a node.Config JSON file")
	contextPath := fs.String("context-json", "", "path to a verify-quotes request JSON file")
	_ = fs.Parse(argv)
	if *contextPath == "" {
		fmt.Fprintln(os.Stderr, "missing required flag: --context-json")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}
	configureLogging(cfg)

	var ctx verifyQuotesContext
	if err := readContext(*contextPath, &ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	verifierID, err := decodeHex32(ctx.VerifierIDHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	bundle, err := ctx.Bundle.toQuotesBundle()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	v, ok, err := db.GetQuoteVerifier(verifierID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !ok {
		v = quoteverifier.New(verifierID, bundle.QueueID)
	}

	sink := events.NewLogrusSink(nil)
	if err := v.VerifyQuotes(bundle, ctx.NowMs, sink); err != nil {
		fmt.Fprintln(os.Stderr, "verify-quotes error:", err)
		return 1
	}
	if err := db.PutQuoteVerifier(v); err != nil {
		fmt.Fprintln(os.Stderr, "persist verifier:", err)
		return 1
	}
	fmt.Println("OK")
	return 0
}

// --- submit-result ---

type submitResultContext struct {
	AggregatorIDHex  string `json:"aggregator_id"`
	QueueIDHex       string `json:"queue_id"`
	OracleIDHex      string `json:"oracle_id"`
	Value            uint64 `json:"value"`
	ValueNeg         bool   `json:"value_neg"`
	TimestampSeconds uint64 `json:"timestamp_seconds"`
	SignatureHex     string `json:"signature"`
	NowMs            uint64 `json:"now_ms"`
	FeeCoinType      string `json:"fee_coin_type"`
	FeeCoinBalance   uint64 `json:"fee_coin_balance"`
}

func cmdSubmitResultMain(argv []string) int {
	fs := flag.NewFlagSet("submit-result", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a node.Config JSON file")
	contextPath := fs.String("context-json", "", "path to a submit-result request JSON file")
	_ = fs.Parse(argv)
	if *contextPath == "" {
		fmt.Fprintln(os.Stderr, "missing required flag: --context-json")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}
	configureLogging(cfg)

	var ctx submitResultContext
	if err := readContext(*contextPath, &ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	aggregatorID, err := decodeHex32(ctx.AggregatorIDHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	queueID, err := decodeHex32(ctx.QueueIDHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	oracleID, err := decodeHex32(ctx.OracleIDHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	sig, err := decodeHex65(ctx.SignatureHex)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	a, ok, err := db.GetAggregator(aggregatorID)
	if err != nil || !ok {
		fmt.Fprintln(os.Stderr, "aggregator not found:", ctx.AggregatorIDHex)
		return 1
	}
	q, ok, err := db.GetQueue(queueID)
	if err != nil || !ok {
		fmt.Fprintln(os.Stderr, "queue not found:", ctx.QueueIDHex)
		return 1
	}
	o, ok, err := db.GetOracle(oracleID)
	if err != nil || !ok {
		fmt.Fprintln(os.Stderr, "oracle not found:", ctx.OracleIDHex)
		return 1
	}

	value := decimalFromUint64(ctx.Value, ctx.ValueNeg)
	feeCoin := &aggregator.Coin{Type: ctx.FeeCoinType, Balance: ctx.FeeCoinBalance}
	sink := events.NewLogrusSink(nil)
	if err := a.SubmitResult(q, value, ctx.TimestampSeconds, o, sig, ctx.NowMs, feeCoin, sink); err != nil {
		fmt.Fprintln(os.Stderr, "submit-result error:", err)
		return 1
	}
	if err := db.PutAggregator(a); err != nil {
		fmt.Fprintln(os.Stderr, "persist aggregator:", err)
		return 1
	}

	if summary, has := a.CurrentResult(); has {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		return writeJSONOrFail(enc, summary)
	}
	fmt.Println("OK")
	return 0
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	command := os.Args[1]
	argv := os.Args[2:]
	exitCode := 0
	switch command {
	case "submit-quotes":
		exitCode = cmdSubmitQuotesMain(argv)
	case "verify-quotes":
		exitCode = cmdVerifyQuotesMain(argv)
	case "submit-result":
		exitCode = cmdSubmitResultMain(argv)
	default:
		fmt.Fprintln(os.Stderr, "unknown command")
		printUsage()
		exitCode = 2
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
