package service

import (
	"context"
	"fmt"
	"strings"

	"telegram-shop-backend/internal/common/logger"
	"telegram-shop-backend/internal/features/shop/models"
	"telegram-shop-backend/internal/platform/telegram"
)

// messageSender is the delivery primitive the notifier needs.
type messageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
}

// adminNotifier posts new-order announcements to the admin chat.
type adminNotifier struct {
	sender      messageSender
	adminChatID int64
}

func NewAdminNotifier(sender messageSender, adminChatID int64) AdminNotifier {
	return &adminNotifier{sender: sender, adminChatID: adminChatID}
}

func (n *adminNotifier) NotifyNewOrder(ctx context.Context, order *models.Order) {
	if n.adminChatID == 0 {
		return
	}

	if err := n.sender.SendMessage(ctx, n.adminChatID, buildOrderMessage(order), nil); err != nil {
		logger.Warn().Err(err).Int64("order_id", order.ID).Msg("Failed to notify admins about new order")
	}
}

func buildOrderMessage(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 New order #%d\n\n", order.ID)
	fmt.Fprintf(&b, "Buyer: %s (%s)\n", order.FullName, order.Phone)
	fmt.Fprintf(&b, "Delivery: %s", order.DeliveryType)
	if order.DeliveryAddress != "" {
		fmt.Fprintf(&b, ", %s", order.DeliveryAddress)
	}
	b.WriteString("\n\nItems:\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "• %s x%d — %.2f\n", item.ProductName, item.Quantity, item.Price*float64(item.Quantity))
	}
	fmt.Fprintf(&b, "\nTotal: %.2f", order.TotalAmount)
	return b.String()
}
