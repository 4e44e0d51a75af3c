// Package mongo provides a store adapter on MongoDB via the official
// driver.
//
// Units of work map to multi-document transactions on a session. MongoDB
// detects write conflicts between concurrent transactions and the driver
// retries the transient loser, so read-modify-write sequences on the same
// account or credit line never interleave. Requires a replica set (or a
// single-node replica set locally).
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	bankcore "github.com/moltbot/bankcore"
	"github.com/moltbot/bankcore/account"
	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
	"github.com/moltbot/bankcore/id"
	"github.com/moltbot/bankcore/report"
	"github.com/moltbot/bankcore/store"
)

// Collection names.
const (
	colAccounts  = "accounts"
	colEntries   = "ledger_entries"
	colEscrows   = "escrows"
	colLines     = "credit_lines"
	colCreditTxs = "credit_transactions"
)

// Store is a MongoDB-backed store.Store implementation.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// Open connects to the MongoDB deployment at uri and uses database name.
func Open(uri, name string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	return &Store{client: client, db: client.Database(name)}, nil
}

// Migrate creates the indexes the adapter depends on. Safe to run
// repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colEntries: {
			{Keys: bson.D{{Key: "from_account", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "to_account", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "credit_line_id", Value: 1}}},
			{
				Keys: bson.D{{Key: "idempotency_key", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$gt": ""}}),
			},
		},
		colEscrows: {
			{Keys: bson.D{{Key: "creator_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "counterparty_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colLines: {
			{Keys: bson.D{{Key: "grantor_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "grantee_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{
				Keys: bson.D{{Key: "grantor_id", Value: 1}, {Key: "grantee_id", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "active"}),
			},
		},
		colCreditTxs: {
			{Keys: bson.D{{Key: "credit_line_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: migrate %s: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the deployment is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", bankcore.ErrStoreUnavailable, err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// RunInTx runs fn inside a multi-document transaction. The driver retries
// transient conflicts; an exhausted deadline surfaces as ErrLockTimeout.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, &mongoTx{s: s})
	})
	if mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return bankcore.ErrLockTimeout
	}
	return err
}

// ──────────────────────────────────────────────────
// Unit of work
// ──────────────────────────────────────────────────

// mongoTx issues all operations with the session-bound context it receives,
// which is what scopes them to the transaction.
type mongoTx struct {
	s *Store
}

func (t *mongoTx) AccountForUpdate(ctx context.Context, principalID string) (*account.Account, error) {
	seed := docFromAccount(account.New(principalID))
	res := t.s.db.Collection(colAccounts).FindOneAndUpdate(ctx,
		bson.M{"_id": principalID},
		bson.M{"$setOnInsert": seed},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After))

	var doc accountDoc
	if err := res.Decode(&doc); err != nil {
		return nil, fmt.Errorf("mongo: claim account: %w", err)
	}
	return doc.account(), nil
}

func (t *mongoTx) SetBalance(ctx context.Context, principalID string, balance int64) error {
	res, err := t.s.db.Collection(colAccounts).UpdateOne(ctx,
		bson.M{"_id": principalID},
		bson.M{"$set": bson.M{"balance": balance, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("mongo: set balance: %w", err)
	}
	if res.MatchedCount == 0 {
		return bankcore.ErrAccountNotFound
	}
	return nil
}

func (t *mongoTx) AppendEntry(ctx context.Context, e *entry.Entry) error {
	_, err := t.s.db.Collection(colEntries).InsertOne(ctx, docFromEntry(e))
	if err != nil {
		return fmt.Errorf("mongo: append entry: %w", err)
	}
	return nil
}

func (t *mongoTx) EntryByIdempotencyKey(ctx context.Context, key string) (*entry.Entry, error) {
	if key == "" {
		return nil, nil
	}
	var doc entryDoc
	err := t.s.db.Collection(colEntries).FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: entry by key: %w", err)
	}
	return doc.entry()
}

func (t *mongoTx) CreateEscrow(ctx context.Context, e *escrow.Escrow) error {
	_, err := t.s.db.Collection(colEscrows).InsertOne(ctx, docFromEscrow(e))
	if err != nil {
		return fmt.Errorf("mongo: create escrow: %w", err)
	}
	return nil
}

func (t *mongoTx) EscrowForUpdate(ctx context.Context, escrowID id.EscrowID) (*escrow.Escrow, error) {
	var doc escrowDoc
	err := t.s.db.Collection(colEscrows).FindOne(ctx, bson.M{"_id": escrowID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, bankcore.ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: load escrow: %w", err)
	}
	return doc.escrow()
}

func (t *mongoTx) UpdateEscrow(ctx context.Context, e *escrow.Escrow) error {
	res, err := t.s.db.Collection(colEscrows).UpdateOne(ctx,
		bson.M{"_id": e.ID.String()},
		bson.M{"$set": bson.M{
			"status":      string(e.Status),
			"description": e.Description,
			"updated_at":  e.UpdatedAt,
		}})
	if err != nil {
		return fmt.Errorf("mongo: update escrow: %w", err)
	}
	if res.MatchedCount == 0 {
		return bankcore.ErrEscrowNotFound
	}
	return nil
}

func (t *mongoTx) CreateCreditLine(ctx context.Context, l *credit.Line) error {
	_, err := t.s.db.Collection(colLines).InsertOne(ctx, docFromLine(l))
	if mongo.IsDuplicateKeyError(err) {
		return bankcore.ErrCreditLineExists
	}
	if err != nil {
		return fmt.Errorf("mongo: create credit line: %w", err)
	}
	return nil
}

func (t *mongoTx) CreditLineForUpdate(ctx context.Context, lineID id.CreditLineID) (*credit.Line, error) {
	var doc lineDoc
	err := t.s.db.Collection(colLines).FindOne(ctx, bson.M{"_id": lineID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, bankcore.ErrCreditLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: load credit line: %w", err)
	}
	return doc.line()
}

func (t *mongoTx) UpdateCreditLine(ctx context.Context, l *credit.Line) error {
	res, err := t.s.db.Collection(colLines).UpdateOne(ctx,
		bson.M{"_id": l.ID.String()},
		bson.M{"$set": bson.M{
			"limit_amount": l.LimitAmount,
			"used_amount":  l.UsedAmount,
			"status":       string(l.Status),
			"updated_at":   l.UpdatedAt,
		}})
	if err != nil {
		return fmt.Errorf("mongo: update credit line: %w", err)
	}
	if res.MatchedCount == 0 {
		return bankcore.ErrCreditLineNotFound
	}
	return nil
}

func (t *mongoTx) HasActiveCreditLine(ctx context.Context, grantorID, granteeID string) (bool, error) {
	n, err := t.s.db.Collection(colLines).CountDocuments(ctx, bson.M{
		"status":     string(credit.StatusActive),
		"grantor_id": grantorID,
		"grantee_id": granteeID,
	})
	if err != nil {
		return false, fmt.Errorf("mongo: count credit lines: %w", err)
	}
	return n > 0, nil
}

func (t *mongoTx) AppendCreditTransaction(ctx context.Context, ct *credit.Transaction) error {
	_, err := t.s.db.Collection(colCreditTxs).InsertOne(ctx, docFromCreditTx(ct))
	if err != nil {
		return fmt.Errorf("mongo: append credit transaction: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// nonCreditEntry matches entries that moved account balances, excluding the
// obligation-only credit entries.
var nonCreditEntry = bson.M{"$or": bson.A{
	bson.M{"credit_line_id": ""},
	bson.M{"credit_line_id": bson.M{"$exists": false}},
}}

func (s *Store) GetAccount(ctx context.Context, principalID string) (*account.Account, error) {
	var doc accountDoc
	err := s.db.Collection(colAccounts).FindOne(ctx, bson.M{"_id": principalID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, bankcore.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get account: %w", err)
	}
	return doc.account(), nil
}

func (s *Store) EntriesByPrincipal(ctx context.Context, principalID string, opts entry.ListOpts) ([]*entry.Entry, int64, error) {
	return s.listEntries(ctx, opts, bson.M{"$or": bson.A{
		bson.M{"from_account": principalID},
		bson.M{"to_account": principalID},
	}})
}

func (s *Store) EntriesByCreditLine(ctx context.Context, lineID id.CreditLineID, opts entry.ListOpts) ([]*entry.Entry, int64, error) {
	return s.listEntries(ctx, opts, bson.M{"credit_line_id": lineID.String()})
}

func (s *Store) Entries(ctx context.Context, opts entry.ListOpts) ([]*entry.Entry, int64, error) {
	return s.listEntries(ctx, opts, bson.M{})
}

func (s *Store) listEntries(ctx context.Context, opts entry.ListOpts, filter bson.M) ([]*entry.Entry, int64, error) {
	opts = opts.Normalize()
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	col := s.db.Collection(colEntries)

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: count entries: %w", err)
	}

	cur, err := col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(opts.Offset())).
		SetLimit(int64(opts.Limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: list entries: %w", err)
	}
	defer cur.Close(ctx)

	var out []*entry.Entry
	for cur.Next(ctx) {
		var doc entryDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("mongo: decode entry: %w", err)
		}
		e, err := doc.entry()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, cur.Err()
}

func (s *Store) GetEscrow(ctx context.Context, escrowID id.EscrowID) (*escrow.Escrow, error) {
	var doc escrowDoc
	err := s.db.Collection(colEscrows).FindOne(ctx, bson.M{"_id": escrowID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, bankcore.ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get escrow: %w", err)
	}
	return doc.escrow()
}

func (s *Store) EscrowsByPrincipal(ctx context.Context, principalID string) ([]*escrow.Escrow, error) {
	cur, err := s.db.Collection(colEscrows).Find(ctx,
		bson.M{"$or": bson.A{
			bson.M{"creator_id": principalID},
			bson.M{"counterparty_id": principalID},
		}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list escrows: %w", err)
	}
	defer cur.Close(ctx)

	var out []*escrow.Escrow
	for cur.Next(ctx) {
		var doc escrowDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode escrow: %w", err)
		}
		e, err := doc.escrow()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

func (s *Store) GetCreditLine(ctx context.Context, lineID id.CreditLineID) (*credit.Line, error) {
	var doc lineDoc
	err := s.db.Collection(colLines).FindOne(ctx, bson.M{"_id": lineID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, bankcore.ErrCreditLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get credit line: %w", err)
	}
	return doc.line()
}

func (s *Store) CreditLinesByGrantor(ctx context.Context, principalID string) ([]*credit.Line, error) {
	return s.listLines(ctx, bson.M{"grantor_id": principalID})
}

func (s *Store) CreditLinesByGrantee(ctx context.Context, principalID string) ([]*credit.Line, error) {
	return s.listLines(ctx, bson.M{"grantee_id": principalID})
}

func (s *Store) listLines(ctx context.Context, filter bson.M) ([]*credit.Line, error) {
	cur, err := s.db.Collection(colLines).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list credit lines: %w", err)
	}
	defer cur.Close(ctx)

	var out []*credit.Line
	for cur.Next(ctx) {
		var doc lineDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode credit line: %w", err)
		}
		l, err := doc.line()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, cur.Err()
}

func (s *Store) ActiveUsedBetween(ctx context.Context, grantorID, granteeID string) (int64, error) {
	cur, err := s.db.Collection(colLines).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status":     string(credit.StatusActive),
			"grantor_id": grantorID,
			"grantee_id": granteeID,
		}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "used": bson.M{"$sum": "$used_amount"}}}},
	})
	if err != nil {
		return 0, fmt.Errorf("mongo: sum used credit: %w", err)
	}
	defer cur.Close(ctx)

	var agg struct {
		Used int64 `bson:"used"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&agg); err != nil {
			return 0, fmt.Errorf("mongo: decode used credit: %w", err)
		}
	}
	return agg.Used, cur.Err()
}

func (s *Store) CreditTransactions(ctx context.Context, lineID id.CreditLineID, opts credit.ListOpts) ([]*credit.Transaction, int64, error) {
	opts = opts.Normalize()
	col := s.db.Collection(colCreditTxs)
	filter := bson.M{"credit_line_id": lineID.String()}

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: count credit transactions: %w", err)
	}

	cur, err := col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(opts.Offset())).
		SetLimit(int64(opts.Limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: list credit transactions: %w", err)
	}
	defer cur.Close(ctx)

	var out []*credit.Transaction
	for cur.Next(ctx) {
		var doc creditTxDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("mongo: decode credit transaction: %w", err)
		}
		ct, err := doc.transaction()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ct)
	}
	return out, total, cur.Err()
}

func (s *Store) NetworkStats(ctx context.Context) (*report.NetworkStats, error) {
	stats := &report.NetworkStats{}

	var err error
	if stats.TotalAccounts, err = s.db.Collection(colAccounts).CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("mongo: count accounts: %w", err)
	}

	var entryAgg struct {
		Volume int64 `bson:"volume"`
	}
	if err := s.aggregateOne(ctx, colEntries, mongo.Pipeline{
		{{Key: "$match", Value: nonCreditEntry}},
		{{Key: "$group", Value: bson.M{"_id": nil, "volume": bson.M{"$sum": "$amount"}}}},
	}, &entryAgg); err != nil {
		return nil, err
	}
	stats.TotalVolume = entryAgg.Volume

	var escrowAgg struct {
		Total  int64 `bson:"total"`
		Active int64 `bson:"active"`
		Value  int64 `bson:"value"`
	}
	if err := s.aggregateOne(ctx, colEscrows, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": 1},
			"active": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", "active"}}, 1, 0}}},
			"value": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", "active"}}, "$amount", 0}}},
		}}},
	}, &escrowAgg); err != nil {
		return nil, err
	}
	stats.TotalEscrows = escrowAgg.Total
	stats.ActiveEscrows = escrowAgg.Active
	stats.ActiveEscrowValue = escrowAgg.Value

	var lineAgg struct {
		Count  int64 `bson:"count"`
		Limits int64 `bson:"limits"`
		Used   int64 `bson:"used"`
	}
	if err := s.aggregateOne(ctx, colLines, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": string(credit.StatusActive)}}},
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"count":  bson.M{"$sum": 1},
			"limits": bson.M{"$sum": "$limit_amount"},
			"used":   bson.M{"$sum": "$used_amount"},
		}}},
	}, &lineAgg); err != nil {
		return nil, err
	}
	stats.ActiveCreditLines = lineAgg.Count
	stats.TotalCreditLimit = lineAgg.Limits
	stats.TotalCreditUsed = lineAgg.Used

	var txAgg struct {
		Count  int64 `bson:"count"`
		Volume int64 `bson:"volume"`
	}
	if err := s.aggregateOne(ctx, colCreditTxs, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"count":  bson.M{"$sum": 1},
			"volume": bson.M{"$sum": "$amount"},
		}}},
	}, &txAgg); err != nil {
		return nil, err
	}
	stats.CreditTransactions = txAgg.Count
	stats.CreditVolume = txAgg.Volume

	return stats, nil
}

// aggregateOne runs a single-result aggregation, leaving dest untouched
// when the pipeline matches nothing.
func (s *Store) aggregateOne(ctx context.Context, col string, pipeline mongo.Pipeline, dest any) error {
	cur, err := s.db.Collection(col).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("mongo: aggregate %s: %w", col, err)
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		if err := cur.Decode(dest); err != nil {
			return fmt.Errorf("mongo: decode %s aggregate: %w", col, err)
		}
	}
	return cur.Err()
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]report.LeaderboardRow, error) {
	cur, err := s.db.Collection(colEntries).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: nonCreditEntry}},
		{{Key: "$project", Value: bson.M{
			"amount":     1,
			"principals": bson.A{"$from_account", "$to_account"},
		}}},
		{{Key: "$unwind", Value: "$principals"}},
		{{Key: "$match", Value: bson.M{"principals": bson.M{"$nin": bson.A{nil, ""}}}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$principals",
			"volume": bson.M{"$sum": "$amount"},
			"count":  bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "volume", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: leaderboard: %w", err)
	}
	defer cur.Close(ctx)

	var out []report.LeaderboardRow
	for cur.Next(ctx) {
		var doc struct {
			PrincipalID string `bson:"_id"`
			Volume      int64  `bson:"volume"`
			Count       int64  `bson:"count"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode leaderboard row: %w", err)
		}
		out = append(out, report.LeaderboardRow{
			Rank:             len(out) + 1,
			PrincipalID:      doc.PrincipalID,
			TotalVolume:      doc.Volume,
			TransactionCount: doc.Count,
		})
	}
	return out, cur.Err()
}

func (s *Store) TrustStats(ctx context.Context, principalID string) (*report.TrustStats, error) {
	stats := &report.TrustStats{}

	// LinesReceived counts active lines only; draw and repay history spans
	// every line ever received.
	cur, err := s.db.Collection(colLines).Find(ctx,
		bson.M{"grantee_id": principalID},
		options.Find().SetProjection(bson.M{"_id": 1, "status": 1}))
	if err != nil {
		return nil, fmt.Errorf("mongo: trust lines: %w", err)
	}
	var lineIDs bson.A
	for cur.Next(ctx) {
		var doc struct {
			ID     string `bson:"_id"`
			Status string `bson:"status"`
		}
		if err := cur.Decode(&doc); err != nil {
			cur.Close(ctx)
			return nil, fmt.Errorf("mongo: decode trust line: %w", err)
		}
		lineIDs = append(lineIDs, doc.ID)
		if doc.Status == string(credit.StatusActive) {
			stats.LinesReceived++
		}
	}
	if err := cur.Err(); err != nil {
		cur.Close(ctx)
		return nil, err
	}
	cur.Close(ctx)

	if len(lineIDs) == 0 {
		return stats, nil
	}

	agg, err := s.db.Collection(colCreditTxs).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"credit_line_id": bson.M{"$in": lineIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$type",
			"count":  bson.M{"$sum": 1},
			"amount": bson.M{"$sum": "$amount"},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: trust transactions: %w", err)
	}
	defer agg.Close(ctx)

	for agg.Next(ctx) {
		var doc struct {
			Type   string `bson:"_id"`
			Count  int64  `bson:"count"`
			Amount int64  `bson:"amount"`
		}
		if err := agg.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode trust aggregate: %w", err)
		}
		switch credit.TransactionType(doc.Type) {
		case credit.TransactionDraw:
			stats.TotalDraws = doc.Count
			stats.TotalDrawAmount = doc.Amount
		case credit.TransactionRepay:
			stats.TotalRepays = doc.Count
			stats.TotalRepayAmount = doc.Amount
		}
	}
	return stats, agg.Err()
}
