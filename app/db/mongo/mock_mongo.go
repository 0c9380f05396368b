package mongo

import (
	"context"
	"errors"
	"sync"

	"hysteriabot/m/v2/app/models"

	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MockMongoDBClient is an in-memory stand-in for the MongoDB client.
type MockMongoDBClient struct {
	MongoClient

	mu       sync.Mutex
	accounts map[int64][]models.AccountRecord
	payment  *models.PaymentSettings
	help     string

	// FailAppend makes AppendAccountRecord fail, to exercise reconciliation
	// logging.
	FailAppend bool
	PingErr    error
}

func NewMockMongoDBClient() *MockMongoDBClient {
	return &MockMongoDBClient{
		accounts: map[int64][]models.AccountRecord{},
	}
}

func (m *MockMongoDBClient) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return m.PingErr
}

func (m *MockMongoDBClient) Disconnect(ctx context.Context) error {
	return nil
}

func (m *MockMongoDBClient) AppendAccountRecord(ctx context.Context, rec models.AccountRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppend {
		return errors.New("mock append failure")
	}
	m.accounts[rec.ChatID] = append(m.accounts[rec.ChatID], rec)
	return nil
}

func (m *MockMongoDBClient) GetAccountRecords(ctx context.Context, chatID int64) ([]models.AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AccountRecord{}, m.accounts[chatID]...), nil
}

func (m *MockMongoDBClient) GetAllAccountRecords(ctx context.Context) (map[int64][]models.AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make(map[int64][]models.AccountRecord, len(m.accounts))
	for chatID, records := range m.accounts {
		all[chatID] = append([]models.AccountRecord{}, records...)
	}
	return all, nil
}

func (m *MockMongoDBClient) RenameAccountRecord(ctx context.Context, oldName, newName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for chatID, records := range m.accounts {
		for i := range records {
			if records[i].AccountName == oldName {
				m.accounts[chatID][i].AccountName = newName
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *MockMongoDBClient) GetPaymentSettings(ctx context.Context) (*models.PaymentSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payment == nil {
		return nil, nil
	}
	c := m.payment.Copy()
	return &c, nil
}

func (m *MockMongoDBClient) SavePaymentSettings(ctx context.Context, s models.PaymentSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := s.Copy()
	m.payment = &c
	return nil
}

func (m *MockMongoDBClient) GetHelpMessage(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.help, nil
}

func (m *MockMongoDBClient) SaveHelpMessage(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.help = text
	return nil
}
