package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hysteriabot/m/v2/app/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	AccountsCollection = "accounts"
	SettingsCollection = "settings"

	paymentSettingsID = "payment"
	helpMessageID     = "help"

	// legacyTimeLayout is how the first bot version wrote purchase dates.
	legacyTimeLayout = "2006-01-02 15:04:05"
)

// Client is a mongo client
type Client struct {
	*mongo.Client
	dbName string
}

type MongoClient interface {
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context, rp *readpref.ReadPref) error

	AppendAccountRecord(ctx context.Context, rec models.AccountRecord) error
	GetAccountRecords(ctx context.Context, chatID int64) ([]models.AccountRecord, error)
	GetAllAccountRecords(ctx context.Context) (map[int64][]models.AccountRecord, error)
	RenameAccountRecord(ctx context.Context, oldName, newName string) (bool, error)

	GetPaymentSettings(ctx context.Context) (*models.PaymentSettings, error)
	SavePaymentSettings(ctx context.Context, s models.PaymentSettings) error
	GetHelpMessage(ctx context.Context) (string, error)
	SaveHelpMessage(ctx context.Context, text string) error
}

// NewClient creates a new mongo client
func NewClient(connection, dbName string) *Client {
	return &Client{
		Client: mustConnect(connection),
		dbName: dbName,
	}
}

// mustConnect connects to mongo and panics on error
func mustConnect(connection string) *mongo.Client {
	client, err := mongo.NewClient(options.Client().ApplyURI(connection).SetMaxConnecting(25))
	if err != nil {
		logrus.WithError(err).Panic("failed to create mongo client")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		logrus.WithError(err).Panic("failed to connect to mongo")
	}

	return client
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.Database(c.dbName).Collection(name)
}

func (c *Client) AppendAccountRecord(ctx context.Context, rec models.AccountRecord) error {
	filter := bson.M{"_id": rec.ChatID}
	update := bson.M{"$push": bson.M{"accounts": toMongoRecord(rec)}}
	_, err := c.collection(AccountsCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("AppendAccountRecord: failed to push record %s: %w", rec.AccountName, err)
	}
	return nil
}

func (c *Client) GetAccountRecords(ctx context.Context, chatID int64) ([]models.AccountRecord, error) {
	var doc models.MongoChatAccounts
	err := c.collection(AccountsCollection).FindOne(ctx, bson.M{"_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.AccountRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetAccountRecords: failed to find chat %d: %w", chatID, err)
	}
	return fromMongoChat(doc), nil
}

func (c *Client) GetAllAccountRecords(ctx context.Context) (map[int64][]models.AccountRecord, error) {
	cursor, err := c.collection(AccountsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("GetAllAccountRecords: failed to query accounts: %w", err)
	}
	var docs []models.MongoChatAccounts
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("GetAllAccountRecords: failed to decode accounts: %w", err)
	}
	all := make(map[int64][]models.AccountRecord, len(docs))
	for _, doc := range docs {
		all[doc.ChatID] = fromMongoChat(doc)
	}
	return all, nil
}

func (c *Client) RenameAccountRecord(ctx context.Context, oldName, newName string) (bool, error) {
	filter := bson.M{"accounts.account_name": oldName}
	update := bson.M{"$set": bson.M{"accounts.$.account_name": newName}}
	res, err := c.collection(AccountsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("RenameAccountRecord: failed to rename %s: %w", oldName, err)
	}
	return res.MatchedCount > 0, nil
}

func (c *Client) GetPaymentSettings(ctx context.Context) (*models.PaymentSettings, error) {
	var doc models.MongoPaymentSettings
	err := c.collection(SettingsCollection).FindOne(ctx, bson.M{"_id": paymentSettingsID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetPaymentSettings: failed to find settings: %w", err)
	}
	settings := &models.PaymentSettings{
		MerchantID: doc.MerchantID,
		PaymentKey: doc.PaymentKey,
		Enabled:    doc.Enabled,
		Prices:     map[models.PlanID]decimal.Decimal{},
	}
	for plan, raw := range doc.Prices {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			logrus.Warnf("GetPaymentSettings: ignoring bad price %q for %s", raw, plan)
			continue
		}
		settings.Prices[models.PlanID(plan)] = price
	}
	return settings, nil
}

func (c *Client) SavePaymentSettings(ctx context.Context, s models.PaymentSettings) error {
	doc := models.MongoPaymentSettings{
		ID:         paymentSettingsID,
		MerchantID: s.MerchantID,
		PaymentKey: s.PaymentKey,
		Enabled:    s.Enabled,
		Prices:     map[string]string{},
	}
	for plan, price := range s.Prices {
		doc.Prices[string(plan)] = price.String()
	}
	_, err := c.collection(SettingsCollection).ReplaceOne(ctx, bson.M{"_id": paymentSettingsID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("SavePaymentSettings: failed to save settings: %w", err)
	}
	return nil
}

func (c *Client) GetHelpMessage(ctx context.Context) (string, error) {
	var doc models.MongoHelpMessage
	err := c.collection(SettingsCollection).FindOne(ctx, bson.M{"_id": helpMessageID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("GetHelpMessage: failed to find help message: %w", err)
	}
	return doc.Text, nil
}

func (c *Client) SaveHelpMessage(ctx context.Context, text string) error {
	doc := models.MongoHelpMessage{ID: helpMessageID, Text: text}
	_, err := c.collection(SettingsCollection).ReplaceOne(ctx, bson.M{"_id": helpMessageID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("SaveHelpMessage: failed to save help message: %w", err)
	}
	return nil
}

func toMongoRecord(rec models.AccountRecord) models.MongoAccountRecord {
	m := models.MongoAccountRecord{
		AccountName:  rec.AccountName,
		Plan:         string(rec.PlanID),
		PurchasedAt:  rec.PurchasedAt.UTC().Format(time.RFC3339),
		QuotaGB:      rec.QuotaGB,
		DurationDays: rec.DurationDays,
		IsDiagnostic: rec.IsDiagnostic,
		SettlementID: rec.SettlementID,
	}
	if !rec.PriceUSD.IsZero() {
		m.PriceUSD = rec.PriceUSD.String()
	}
	return m
}

func fromMongoChat(doc models.MongoChatAccounts) []models.AccountRecord {
	records := make([]models.AccountRecord, 0, len(doc.Accounts))
	for _, m := range doc.Accounts {
		rec := models.AccountRecord{
			ChatID:       doc.ChatID,
			AccountName:  m.AccountName,
			PlanID:       models.PlanID(m.Plan),
			QuotaGB:      m.QuotaGB,
			DurationDays: m.DurationDays,
			IsDiagnostic: m.IsDiagnostic,
			SettlementID: m.SettlementID,
		}
		if t, err := time.Parse(time.RFC3339, m.PurchasedAt); err == nil {
			rec.PurchasedAt = t
		} else if t, err := time.ParseInLocation(legacyTimeLayout, m.PurchasedAt, time.Local); err == nil {
			rec.PurchasedAt = t
		}
		if m.PriceUSD != "" {
			if price, err := decimal.NewFromString(m.PriceUSD); err == nil {
				rec.PriceUSD = price
			}
		}
		records = append(records, rec)
	}
	return records
}
