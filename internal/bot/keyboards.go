package bot

import (
	"fmt"
	"strconv"

	"coffeeshop/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reply keyboard labels.
const (
	labelMenu   = "📋 Menu"
	labelCart   = "🛒 Cart"
	labelOrders = "📦 My orders"
	labelPhone  = "📱 Share phone number"
)

// Callback data. Item and category callbacks carry the id after the prefix.
const (
	cbMenu           = "menu"
	cbCart           = "cart"
	cbClear          = "clear"
	cbCheckout       = "checkout"
	cbOrders         = "orders"
	cbPickup         = "fulfillment_pickup"
	cbDelivery       = "fulfillment_delivery"
	cbCategoryPrefix = "category_"
	cbIncreasePrefix = "increase_"
	cbDecreasePrefix = "decrease_"
	cbRemovePrefix   = "remove_"
	cbCartIncPrefix  = "cart_increase_"
	cbCartDecPrefix  = "cart_decrease_"
	cbNoop           = "noop"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(labelMenu)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(labelCart), tgbotapi.NewKeyboardButton(labelOrders)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(labelPhone)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// categoriesKeyboard lays categories out two per row.
func categoriesKeyboard(categories []domain.Category) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(categories); i += 2 {
		var row []tgbotapi.InlineKeyboardButton
		for _, c := range categories[i:min(i+2, len(categories))] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Label(), cbCategoryPrefix+c.ID))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(labelCart, cbCart)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// itemsKeyboard shows one ➖ name (qty) ➕ row per item.
func itemsKeyboard(items []domain.MenuItem, inCart map[string]int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, it := range items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➖", cbDecreasePrefix+it.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %s (%d)", it.Name, formatPrice(it.PriceCents), inCart[it.ID]), cbNoop),
			tgbotapi.NewInlineKeyboardButtonData("➕", cbIncreasePrefix+it.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Categories", cbMenu),
		tgbotapi.NewInlineKeyboardButtonData(labelCart, cbCart),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func cartKeyboard(lines []domain.CartItemView) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, l := range lines {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌", cbRemovePrefix+l.Item.ID),
			tgbotapi.NewInlineKeyboardButtonData("➖", cbCartDecPrefix+l.Item.ID),
			tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(l.Quantity)+" × "+l.Item.Name, cbNoop),
			tgbotapi.NewInlineKeyboardButtonData("➕", cbCartIncPrefix+l.Item.ID),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Checkout", cbCheckout),
			tgbotapi.NewInlineKeyboardButtonData(labelMenu, cbMenu),
		),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗑 Clear cart", cbClear)),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func emptyCartKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(labelMenu, cbMenu)),
	)
}

func fulfillmentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏃 Pickup", cbPickup),
			tgbotapi.NewInlineKeyboardButtonData("🚚 Delivery", cbDelivery),
		),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Back to cart", cbCart)),
	)
}

func formatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func categoriesBackKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Categories", cbMenu)),
	)
}
