package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
)

type bankDetailsBody struct {
	AccountNumber string `json:"account_number" validate:"max=64"`
	BankName      string `json:"bank_name" validate:"max=128"`
	AccountHolder string `json:"account_holder" validate:"max=128"`
}

type createSettlementBody struct {
	Amount      string           `json:"amount" validate:"required,money"`
	Method      string           `json:"method" validate:"required,settlement_method"`
	BankDetails *bankDetailsBody `json:"bank_details,omitempty"`
}

type processSettlementBody struct {
	TransactionReference string `json:"transaction_reference" validate:"required,max=255"`
}

type rejectSettlementBody struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type settlementResponse struct {
	ID                   uuid.UUID              `json:"id"`
	SellerID             uuid.UUID              `json:"seller_id"`
	ShopID               uuid.UUID              `json:"shop_id"`
	Status               enums.SettlementStatus `json:"status"`
	Method               enums.SettlementMethod `json:"method"`
	RequestedAmount      string                 `json:"requested_amount"`
	PlatformFee          string                 `json:"platform_fee"`
	NetAmount            string                 `json:"net_amount"`
	CommissionPercent    string                 `json:"commission_percent"`
	BankName             *string                `json:"bank_name,omitempty"`
	BankAccountLast4     *string                `json:"bank_account_last4,omitempty"`
	BankAccountHolder    *string                `json:"bank_account_holder,omitempty"`
	TransactionReference *string                `json:"transaction_reference,omitempty"`
	FailureReason        *string                `json:"failure_reason,omitempty"`
	RequestedAt          time.Time              `json:"requested_at"`
	ApprovedAt           *time.Time             `json:"approved_at,omitempty"`
	ApprovedBy           *uuid.UUID             `json:"approved_by,omitempty"`
	ProcessedAt          *time.Time             `json:"processed_at,omitempty"`
	ProcessedBy          *uuid.UUID             `json:"processed_by,omitempty"`
	CompletedAt          *time.Time             `json:"completed_at,omitempty"`
	CompletedBy          *uuid.UUID             `json:"completed_by,omitempty"`
	CancelledAt          *time.Time             `json:"cancelled_at,omitempty"`
	CancelledBy          *uuid.UUID             `json:"cancelled_by,omitempty"`
}

func newSettlementResponse(s *models.Settlement) settlementResponse {
	return settlementResponse{
		ID:                   s.ID,
		SellerID:             s.SellerID,
		ShopID:               s.ShopID,
		Status:               s.Status,
		Method:               s.Method,
		RequestedAmount:      s.RequestedAmount.StringFixed(2),
		PlatformFee:          s.PlatformFee.StringFixed(2),
		NetAmount:            s.NetAmount.StringFixed(2),
		CommissionPercent:    s.CommissionPercent.StringFixed(2),
		BankName:             s.BankName,
		BankAccountLast4:     last4(s.BankAccountNumber),
		BankAccountHolder:    s.BankAccountHolder,
		TransactionReference: s.TransactionReference,
		FailureReason:        s.FailureReason,
		RequestedAt:          s.RequestedAt,
		ApprovedAt:           s.ApprovedAt,
		ApprovedBy:           s.ApprovedBy,
		ProcessedAt:          s.ProcessedAt,
		ProcessedBy:          s.ProcessedBy,
		CompletedAt:          s.CompletedAt,
		CompletedBy:          s.CompletedBy,
		CancelledAt:          s.CancelledAt,
		CancelledBy:          s.CancelledBy,
	}
}

func newSettlementResponses(rows []models.Settlement) []settlementResponse {
	out := make([]settlementResponse, 0, len(rows))
	for i := range rows {
		out = append(out, newSettlementResponse(&rows[i]))
	}
	return out
}

// account numbers never leave the service in full
func last4(number *string) *string {
	if number == nil {
		return nil
	}
	value := *number
	if len(value) > 4 {
		value = value[len(value)-4:]
	}
	return &value
}

type settlementListResponse struct {
	Settlements []settlementResponse `json:"settlements"`
	NextCursor  string               `json:"next_cursor,omitempty"`
}

type allocationResponse struct {
	OrderID           uuid.UUID `json:"order_id"`
	OrderAmount       string    `json:"order_amount"`
	Commission        string    `json:"commission"`
	CommissionPercent string    `json:"commission_percent"`
	SettlementAmount  string    `json:"settlement_amount"`
	OrderDeliveredAt  time.Time `json:"order_delivered_at"`
	EligibleAt        time.Time `json:"eligible_at"`
}

func newAllocationResponses(rows []models.OrderSettlement) []allocationResponse {
	out := make([]allocationResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, allocationResponse{
			OrderID:           row.OrderID,
			OrderAmount:       row.OrderAmount.StringFixed(2),
			Commission:        row.Commission.StringFixed(2),
			CommissionPercent: row.CommissionPercent.StringFixed(2),
			SettlementAmount:  row.SettlementAmount.StringFixed(2),
			OrderDeliveredAt:  row.OrderDeliveredAt,
			EligibleAt:        row.EligibleAt,
		})
	}
	return out
}

type settlementDetailResponse struct {
	Settlement  settlementResponse   `json:"settlement"`
	Allocations []allocationResponse `json:"allocations"`
}

type ledgerEntryResponse struct {
	ID                     uuid.UUID             `json:"id"`
	Type                   enums.LedgerEntryType `json:"type"`
	Amount                 string                `json:"amount"`
	SettlementID           *uuid.UUID            `json:"settlement_id,omitempty"`
	OrderID                *uuid.UUID            `json:"order_id,omitempty"`
	AvailableBalance       string                `json:"available_balance"`
	PendingBalance         string                `json:"pending_balance"`
	TotalPendingWithdrawal string                `json:"total_pending_withdrawal"`
	TotalWithdrawn         string                `json:"total_withdrawn"`
	TotalEarned            string                `json:"total_earned"`
	CreatedAt              time.Time             `json:"created_at"`
}

type ledgerListResponse struct {
	Entries    []ledgerEntryResponse `json:"entries"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

func newLedgerEntryResponses(rows []models.BalanceLedgerEntry) []ledgerEntryResponse {
	out := make([]ledgerEntryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, ledgerEntryResponse{
			ID:                     row.ID,
			Type:                   row.Type,
			Amount:                 row.Amount.StringFixed(2),
			SettlementID:           row.SettlementID,
			OrderID:                row.OrderID,
			AvailableBalance:       row.AvailableBalance.StringFixed(2),
			PendingBalance:         row.PendingBalance.StringFixed(2),
			TotalPendingWithdrawal: row.TotalPendingWithdrawal.StringFixed(2),
			TotalWithdrawn:         row.TotalWithdrawn.StringFixed(2),
			TotalEarned:            row.TotalEarned.StringFixed(2),
			CreatedAt:              row.CreatedAt,
		})
	}
	return out
}

type earningResponse struct {
	OrderID           uuid.UUID  `json:"order_id"`
	ShopID            uuid.UUID  `json:"shop_id"`
	OrderAmount       string     `json:"order_amount"`
	Commission        string     `json:"commission"`
	CommissionPercent string     `json:"commission_percent"`
	SettlementAmount  string     `json:"settlement_amount"`
	DeliveredAt       time.Time  `json:"delivered_at"`
	HoldUntil         time.Time  `json:"hold_until"`
	ReleasedAt        *time.Time `json:"released_at,omitempty"`
}

func newEarningResponse(e *models.OrderEarning) earningResponse {
	return earningResponse{
		OrderID:           e.OrderID,
		ShopID:            e.ShopID,
		OrderAmount:       e.OrderAmount.StringFixed(2),
		Commission:        e.Commission.StringFixed(2),
		CommissionPercent: e.CommissionPercent.StringFixed(2),
		SettlementAmount:  e.SettlementAmount.StringFixed(2),
		DeliveredAt:       e.DeliveredAt,
		HoldUntil:         e.HoldUntil,
		ReleasedAt:        e.ReleasedAt,
	}
}
