package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

const merchantNotice = "Your card was saved, but your payout account could not be set up yet. You can finish it later from your profile."

func PaymentMethodToResponse(item *entity.PaymentMethod) *types.PaymentMethodResponse {
	if item == nil {
		return nil
	}

	return &types.PaymentMethodResponse{
		ID:   item.ID,
		Type: item.Type,
		Card: types.CardResponse{
			Brand:    item.Card.Brand,
			Last4:    item.Card.Last4,
			ExpMonth: item.Card.ExpMonth,
			ExpYear:  item.Card.ExpYear,
			Funding:  item.Card.Funding,
		},
		BillingName:    item.BillingDetails.Name,
		BillingCountry: item.BillingDetails.Address.Country,
		IsDefault:      item.IsDefault,
		CreatedAt:      formatTime(item.CreatedAt),
	}
}

func PaymentMethodListToResponse(list *backend.PaymentMethodList) *types.PaymentMethodListResponse {
	resp := &types.PaymentMethodListResponse{PaymentMethods: []*types.PaymentMethodResponse{}}
	if list == nil {
		return resp
	}

	for i := range list.PaymentMethods {
		resp.PaymentMethods = append(resp.PaymentMethods, PaymentMethodToResponse(&list.PaymentMethods[i]))
	}
	resp.HasPaymentMethod = list.HasPaymentMethod || len(list.PaymentMethods) > 0
	if def, ok := list.Default(); ok {
		resp.DefaultPaymentMethodID = def.ID
	}
	return resp
}

func SetupResultToResponse(pm *entity.PaymentMethod, isDefault bool, setupIntentID string, merchantFailed bool) *types.SetupPaymentMethodResponse {
	resp := &types.SetupPaymentMethodResponse{
		PaymentMethod: PaymentMethodToResponse(pm),
		IsDefault:     isDefault,
		SetupIntentID: setupIntentID,
	}
	if merchantFailed {
		resp.MerchantNotice = merchantNotice
	}
	return resp
}

func EscrowToResponse(item *entity.EscrowTransaction) *types.EscrowTransactionResponse {
	if item == nil {
		return nil
	}

	return &types.EscrowTransactionResponse{
		ID:              item.ID,
		FavorID:         item.FavorID,
		TransactionType: item.TransactionType,
		Status:          string(item.Status),
		Amount:          item.Amount.StringFixed(2),
		PlatformFee:     item.PlatformFee.StringFixed(2),
		ProviderAmount:  item.ProviderAmount.StringFixed(2),
		Currency:        item.Currency,
		HoldUntil:       formatTime(item.HoldUntil),
		DisputeReason:   derefString(item.DisputeReason),
		ResolutionNotes: derefString(item.ResolutionNotes),
		CanDispute:      item.CanDispute(),
		CanCancel:       item.CanCancel(),
	}
}

func EscrowListToResponse(list *backend.EscrowList) *types.EscrowListResponse {
	resp := &types.EscrowListResponse{EscrowTransactions: []*types.EscrowTransactionResponse{}}
	if list == nil {
		return resp
	}

	for i := range list.Transactions {
		resp.EscrowTransactions = append(resp.EscrowTransactions, EscrowToResponse(&list.Transactions[i]))
	}
	resp.Page = list.Meta.CurrentPage
	resp.TotalPages = list.Meta.TotalPages
	resp.TotalCount = list.Meta.TotalCount
	return resp
}

func NotificationListToResponse(list *backend.NotificationList) *types.NotificationListResponse {
	resp := &types.NotificationListResponse{Notifications: []entity.Notification{}}
	if list == nil {
		return resp
	}
	if list.Notifications != nil {
		resp.Notifications = list.Notifications
	}
	resp.UnreadCount = list.UnreadCount
	return resp
}

func IntentSnapshotsToResponse(items []*entity.IntentSnapshot) []*types.IntentSnapshotResponse {
	result := make([]*types.IntentSnapshotResponse, 0, len(items))
	for _, item := range items {
		result = append(result, &types.IntentSnapshotResponse{
			AttemptID:     item.AttemptID,
			SetupIntentID: item.SetupIntentID,
			CustomerID:    item.CustomerID,
			Step:          item.Step,
			Outcome:       item.Outcome,
			Error:         derefString(item.ErrorMessage),
			UpdatedAt:     item.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return result
}

func SavedCredentialsToResponse(items []*entity.SavedCredential) []*types.SavedCredentialResponse {
	result := make([]*types.SavedCredentialResponse, 0, len(items))
	for _, item := range items {
		result = append(result, &types.SavedCredentialResponse{
			Email:      item.Email,
			LastUsedAt: item.LastUsedAt.UTC().Format(time.RFC3339),
		})
	}
	return result
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(v *time.Time) string {
	if v == nil || v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
