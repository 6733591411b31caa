// Command oraclecore-admin is the governance-side CLI for queue and
// aggregator administration: one urfave/cli subcommand per governance
// operation, run against a store.DB opened from --datadir.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"oraclecore.dev/verifier/aggregator"
	"oraclecore.dev/verifier/events"
	"oraclecore.dev/verifier/node"
	"oraclecore.dev/verifier/oracle"
	"oraclecore.dev/verifier/queue"
	"oraclecore.dev/verifier/store"
)

var datadirFlag = &cli.StringFlag{
	Name:  "datadir",
	Usage: "data directory holding kv.db",
	Value: node.DefaultDataDir(),
}

func openStore(c *cli.Context) (*store.DB, error) {
	return store.Open(c.String("datadir"))
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

func decodeHex64(s string) ([64]byte, error) {
	var out [64]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 64 {
		return out, fmt.Errorf("expected 64-byte hex, got %q", s)
	}
	copy(out[:], b)
	return out, nil
}

func main() {
	app := &cli.App{
		Name:  "oraclecore-admin",
		Usage: "governance operations for oracle queues and aggregators",
		Flags: []cli.Flag{datadirFlag},
		Commands: []*cli.Command{
			queueCreateCmd,
			queueSetAuthorityCmd,
			queueAddFeeCoinCmd,
			queueRemoveFeeCoinCmd,
			queueOverrideOracleCmd,
			aggregatorInitCmd,
			aggregatorSetConfigsCmd,
			aggregatorSetAuthorityCmd,
			stateInitCmd,
			verifierDeleteCmd,
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("oraclecore-admin failed")
		os.Exit(1)
	}
}

var queueCreateCmd = &cli.Command{
	Name:  "queue-create",
	Usage: "create a new queue registry",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
		&cli.StringFlag{Name: "queue-key", Required: true},
		&cli.StringFlag{Name: "authority", Required: true},
		&cli.StringFlag{Name: "name"},
		&cli.Uint64Flag{Name: "fee"},
		&cli.StringFlag{Name: "fee-recipient"},
		&cli.UintFlag{Name: "min-attestations", Required: true},
		&cli.Uint64Flag{Name: "oracle-validity-length-ms", Required: true},
		&cli.StringFlag{Name: "guardian-queue-id"},
		&cli.BoolFlag{Name: "is-guardian"},
		&cli.Uint64Flag{Name: "created-at-ms", Required: true},
	},
	Action: func(c *cli.Context) error {
		id, err := decodeHex32(c.String("id"))
		if err != nil {
			return err
		}
		queueKey, err := decodeHex32(c.String("queue-key"))
		if err != nil {
			return err
		}
		var guardian [32]byte
		if g := c.String("guardian-queue-id"); g != "" {
			guardian, err = decodeHex32(g)
			if err != nil {
				return err
			}
		}
		q, err := queue.New(
			id, queueKey, c.String("authority"), c.String("name"),
			c.Uint64("fee"), c.String("fee-recipient"),
			uint32(c.Uint("min-attestations")), c.Uint64("oracle-validity-length-ms"),
			guardian, c.Bool("is-guardian"), c.Uint64("created-at-ms"),
		)
		if err != nil {
			return err
		}
		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PutQueue(q); err != nil {
			return err
		}
		events.NewLogrusSink(nil).Emit(events.QueueCreated{QueueID: id, Authority: q.Authority(), Name: q.Name()})
		return nil
	},
}

var queueSetAuthorityCmd = &cli.Command{
	Name:  "queue-set-authority",
	Usage: "rotate a queue's authority",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
		&cli.StringFlag{Name: "caller", Required: true},
		&cli.StringFlag{Name: "new-authority", Required: true},
	},
	Action: func(c *cli.Context) error {
		return withQueue(c, c.String("id"), func(db *store.DB, q *queue.Queue) error {
			if err := q.SetAuthority(c.String("caller"), c.String("new-authority"), events.NewLogrusSink(nil)); err != nil {
				return err
			}
			return db.PutQueue(q)
		})
	},
}

var queueAddFeeCoinCmd = &cli.Command{
	Name:  "queue-add-fee-coin",
	Usage: "register an accepted fee coin type",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
		&cli.StringFlag{Name: "caller", Required: true},
		&cli.StringFlag{Name: "coin-type", Required: true},
	},
	Action: func(c *cli.Context) error {
		return withQueue(c, c.String("id"), func(db *store.DB, q *queue.Queue) error {
			if err := q.AddFeeCoin(c.String("caller"), c.String("coin-type"), events.NewLogrusSink(nil)); err != nil {
				return err
			}
			return db.PutQueue(q)
		})
	},
}

var queueRemoveFeeCoinCmd = &cli.Command{
	Name:  "queue-remove-fee-coin",
	Usage: "remove an accepted fee coin type",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
		&cli.StringFlag{Name: "caller", Required: true},
		&cli.StringFlag{Name: "coin-type", Required: true},
	},
	Action: func(c *cli.Context) error {
		return withQueue(c, c.String("id"), func(db *store.DB, q *queue.Queue) error {
			if err := q.RemoveFeeCoin(c.String("caller"), c.String("coin-type"), events.NewLogrusSink(nil)); err != nil {
				return err
			}
			return db.PutQueue(q)
		})
	},
}

var queueOverrideOracleCmd = &cli.Command{
	Name:  "queue-override-oracle",
	Usage: "re-attest a committee member (the only path that changes its key material)",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "queue-id", Required: true},
		&cli.StringFlag{Name: "caller", Required: true},
		&cli.StringFlag{Name: "oracle-id", Required: true},
		&cli.StringFlag{Name: "oracle-key", Required: true},
		&cli.StringFlag{Name: "secp256k1-key", Required: true},
		&cli.StringFlag{Name: "mr-enclave", Required: true},
		&cli.Uint64Flag{Name: "new-expiration-ms", Required: true},
		&cli.Uint64Flag{Name: "now-ms", Required: true},
	},
	Action: func(c *cli.Context) error {
		queueID, err := decodeHex32(c.String("queue-id"))
		if err != nil {
			return err
		}
		oracleID, err := decodeHex32(c.String("oracle-id"))
		if err != nil {
			return err
		}
		oracleKey, err := decodeHex32(c.String("oracle-key"))
		if err != nil {
			return err
		}
		secp, err := decodeHex64(c.String("secp256k1-key"))
		if err != nil {
			return err
		}
		mrEnclave, err := decodeHex32(c.String("mr-enclave"))
		if err != nil {
			return err
		}

		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()

		q, ok, err := db.GetQueue(queueID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("queue %s not found", c.String("queue-id"))
		}

		o, ok, err := db.GetOracle(oracleID)
		if err != nil {
			return err
		}
		if !ok {
			o = oracle.Init(oracleID, oracleKey, queueID)
		}

		nowMs := c.Uint64("now-ms")
		newExpiry := c.Uint64("new-expiration-ms")
		if err := q.OverrideOracle(c.String("caller"), o, secp, mrEnclave, newExpiry, nowMs); err != nil {
			return err
		}
		if err := db.PutOracle(o); err != nil {
			return err
		}
		if err := db.PutQueue(q); err != nil {
			return err
		}
		events.NewLogrusSink(nil).Emit(events.OracleOverridden{QueueID: queueID, OracleID: oracleID, ExpiresAtMs: newExpiry})
		return db.RecordOverride(store.OverrideAuditEntry{
			QueueID:     queueID,
			OracleID:    oracleID,
			AppliedAtMs: nowMs,
			NewExpiryMs: newExpiry,
		})
	},
}

var aggregatorInitCmd = &cli.Command{
	Name:  "aggregator-init",
	Usage: "create a new feed aggregator",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
		&cli.StringFlag{Name: "authority", Required: true},
		&cli.StringFlag{Name: "queue-id", Required: true},
		&cli.StringFlag{Name: "feed-hash", Required: true},
		&cli.StringFlag{Name: "name"},
		&cli.Uint64Flag{Name: "created-at-ms", Required: true},
		&cli.IntFlag{Name: "min-sample-size", Required: true},
		&cli.Uint64Flag{Name: "max-staleness-seconds", Required: true},
		&cli.Uint64Flag{Name: "max-variance", Required: true},
		&cli.UintFlag{Name: "min-responses", Required: true},
	},
	Action: func(c *cli.Context) error {
		id, err := decodeHex32(c.String("id"))
		if err != nil {
			return err
		}
		queueID, err := decodeHex32(c.String("queue-id"))
		if err != nil {
			return err
		}
		feedHash, err := decodeHex32(c.String("feed-hash"))
		if err != nil {
			return err
		}
		a, err := aggregator.New(
			id, c.String("authority"), queueID, feedHash, c.String("name"),
			c.Uint64("created-at-ms"), c.Int("min-sample-size"),
			c.Uint64("max-staleness-seconds"), c.Uint64("max-variance"),
			uint32(c.Uint("min-responses")),
		)
		if err != nil {
			return err
		}
		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.PutAggregator(a)
	},
}

var aggregatorSetConfigsCmd = &cli.Command{
	Name:  "aggregator-set-configs",
	Usage: "update an aggregator's staleness/variance/responses gates",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
		&cli.StringFlag{Name: "caller", Required: true},
		&cli.Uint64Flag{Name: "max-staleness-seconds", Required: true},
		&cli.Uint64Flag{Name: "max-variance", Required: true},
		&cli.UintFlag{Name: "min-responses", Required: true},
	},
	Action: func(c *cli.Context) error {
		return withAggregator(c, c.String("id"), func(db *store.DB, a *aggregator.Aggregator) error {
			if err := a.SetConfigs(c.String("caller"), c.Uint64("max-staleness-seconds"), c.Uint64("max-variance"), uint32(c.Uint("min-responses"))); err != nil {
				return err
			}
			return db.PutAggregator(a)
		})
	},
}

var aggregatorSetAuthorityCmd = &cli.Command{
	Name:  "aggregator-set-authority",
	Usage: "rotate an aggregator's authority",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
		&cli.StringFlag{Name: "caller", Required: true},
		&cli.StringFlag{Name: "new-authority", Required: true},
	},
	Action: func(c *cli.Context) error {
		return withAggregator(c, c.String("id"), func(db *store.DB, a *aggregator.Aggregator) error {
			if err := a.SetAuthority(c.String("caller"), c.String("new-authority"), events.NewLogrusSink(nil)); err != nil {
				return err
			}
			return db.PutAggregator(a)
		})
	},
}

func withQueue(c *cli.Context, idHex string, fn func(db *store.DB, q *queue.Queue) error) error {
	id, err := decodeHex32(idHex)
	if err != nil {
		return err
	}
	db, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()
	q, ok, err := db.GetQueue(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("queue %s not found", idHex)
	}
	return fn(db, q)
}

func withAggregator(c *cli.Context, idHex string, fn func(db *store.DB, a *aggregator.Aggregator) error) error {
	id, err := decodeHex32(idHex)
	if err != nil {
		return err
	}
	db, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()
	a, ok, err := db.GetAggregator(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("aggregator %s not found", idHex)
	}
	return fn(db, a)
}

var stateInitCmd = &cli.Command{
	Name:  "state-init",
	Usage: "record the deployment's oracle queue, guardian queue, and package id",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "oracle-queue", Required: true},
		&cli.StringFlag{Name: "guardian-queue", Required: true},
		&cli.StringFlag{Name: "package-id", Required: true},
	},
	Action: func(c *cli.Context) error {
		oracleQueue, err := decodeHex32(c.String("oracle-queue"))
		if err != nil {
			return err
		}
		guardianQueue, err := decodeHex32(c.String("guardian-queue"))
		if err != nil {
			return err
		}
		packageID, err := decodeHex32(c.String("package-id"))
		if err != nil {
			return err
		}
		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.PutState(store.State{
			OracleQueueID:     oracleQueue,
			GuardianQueueID:   guardianQueue,
			OnDemandPackageID: packageID,
		})
	},
}

var verifierDeleteCmd = &cli.Command{
	Name:  "verifier-delete",
	Usage: "delete a consumer's quote verifier and its stored quotes",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
	},
	Action: func(c *cli.Context) error {
		id, err := decodeHex32(c.String("id"))
		if err != nil {
			return err
		}
		db, err := openStore(c)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.DeleteQuoteVerifier(id)
	},
}
