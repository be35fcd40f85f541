package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/entitlement"
)

// logger for model conversion errors (silent failures are logged for debugging)
var modelLogger = zap.L().Named("persistence.models")

// BankConnectionModel is the persistence model for the BankConnection aggregate.
type BankConnectionModel struct {
	AccountAggregateModel
	ItemID             string `gorm:"type:varchar(100);not null;uniqueIndex:idx_connections_account_item"`
	AccessToken        string `gorm:"type:text;not null"`
	InstitutionName    string `gorm:"type:varchar(200);not null"`
	BilledProductsJSON string `gorm:"column:billed_products;type:jsonb;not null;default:'[]'"`
	RemovalFlag        bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (BankConnectionModel) TableName() string {
	return "bank_connections"
}

// BankConnectionModelFromDomain converts a domain BankConnection to its persistence model
func BankConnectionModelFromDomain(conn *entitlement.BankConnection) *BankConnectionModel {
	model := &BankConnectionModel{
		ItemID:          conn.ItemID,
		AccessToken:     conn.AccessToken,
		InstitutionName: conn.InstitutionName,
		RemovalFlag:     conn.RemovalFlag,
	}
	model.FromDomainAccountAggregateRoot(conn.AccountAggregateRoot)

	products, err := json.Marshal(conn.BilledProducts)
	if err != nil {
		modelLogger.Warn("failed to marshal billed products",
			zap.String("connection_id", conn.ID.String()),
			zap.Error(err))
		products = []byte("[]")
	}
	model.BilledProductsJSON = string(products)

	return model
}

// ToDomain converts the persistence model to a domain BankConnection
func (m *BankConnectionModel) ToDomain() *entitlement.BankConnection {
	conn := &entitlement.BankConnection{
		ItemID:          m.ItemID,
		AccessToken:     m.AccessToken,
		InstitutionName: m.InstitutionName,
		RemovalFlag:     m.RemovalFlag,
		BilledProducts:  make([]entitlement.ProductType, 0),
	}
	m.PopulateAccountAggregateRoot(&conn.AccountAggregateRoot)

	if m.BilledProductsJSON != "" && m.BilledProductsJSON != "[]" {
		var products []entitlement.ProductType
		if err := json.Unmarshal([]byte(m.BilledProductsJSON), &products); err != nil {
			modelLogger.Warn("failed to parse billed_products JSON",
				zap.String("connection_id", m.ID.String()),
				zap.String("raw_json", m.BilledProductsJSON),
				zap.Error(err))
		} else {
			conn.BilledProducts = products
		}
	}

	return conn
}

// TokenWalletModel is the persistence model for the TokenWallet aggregate.
// One row exists per account.
type TokenWalletModel struct {
	AggregateModel
	AccountID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	BalanceTransaction   int       `gorm:"not null;default:0"`
	BalanceInvestment    int       `gorm:"not null;default:0"`
	BalanceSwap          int       `gorm:"not null;default:0"`
	NextLimitTransaction int       `gorm:"not null;default:0"`
	NextLimitInvestment  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (TokenWalletModel) TableName() string {
	return "token_wallets"
}

// TokenWalletModelFromDomain converts a domain TokenWallet to its persistence model
func TokenWalletModelFromDomain(wallet *entitlement.TokenWallet) *TokenWalletModel {
	model := &TokenWalletModel{
		AccountID:            wallet.AccountID,
		BalanceTransaction:   wallet.Balance.Transaction,
		BalanceInvestment:    wallet.Balance.Investment,
		BalanceSwap:          wallet.Balance.Swap,
		NextLimitTransaction: wallet.NextLimits.Transaction,
		NextLimitInvestment:  wallet.NextLimits.Investment,
	}
	model.FromDomainAggregateRoot(wallet.BaseAggregateRoot)
	return model
}

// ToDomain converts the persistence model to a domain TokenWallet
func (m *TokenWalletModel) ToDomain() *entitlement.TokenWallet {
	wallet := &entitlement.TokenWallet{
		Balance: entitlement.TokenBalance{
			Transaction: m.BalanceTransaction,
			Investment:  m.BalanceInvestment,
			Swap:        m.BalanceSwap,
		},
		NextLimits: entitlement.NextCycleLimits{
			Transaction: m.NextLimitTransaction,
			Investment:  m.NextLimitInvestment,
		},
	}
	m.PopulateAggregateRoot(&wallet.BaseAggregateRoot)
	wallet.AccountID = m.AccountID
	return wallet
}

// TokenHistoryModel is the persistence model for the append-only token audit log.
type TokenHistoryModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	AccountID        uuid.UUID `gorm:"type:uuid;not null;index:idx_token_history_account_date"`
	Date             time.Time `gorm:"not null;index:idx_token_history_account_date"`
	TokenType        string    `gorm:"type:varchar(20);not null"`
	Action           string    `gorm:"type:varchar(20);not null"`
	Reason           string    `gorm:"type:varchar(255);not null"`
	ResultingBalance int       `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TokenHistoryModel) TableName() string {
	return "token_history"
}

// TokenHistoryModelFromDomain converts a domain history entry to its persistence model
func TokenHistoryModelFromDomain(entry *entitlement.TokenHistoryEntry) *TokenHistoryModel {
	return &TokenHistoryModel{
		ID:               entry.ID,
		AccountID:        entry.AccountID,
		Date:             entry.Date,
		TokenType:        string(entry.TokenType),
		Action:           string(entry.Action),
		Reason:           entry.Reason,
		ResultingBalance: entry.ResultingBalance,
	}
}

// ToDomain converts the persistence model to a domain history entry
func (m *TokenHistoryModel) ToDomain() entitlement.TokenHistoryEntry {
	return entitlement.TokenHistoryEntry{
		ID:               m.ID,
		AccountID:        m.AccountID,
		Date:             m.Date,
		TokenType:        entitlement.TokenType(m.TokenType),
		Action:           entitlement.TokenAction(m.Action),
		Reason:           m.Reason,
		ResultingBalance: m.ResultingBalance,
	}
}
