// Package bot is the Telegram channel: it turns updates into calls on the
// identity, cart and order services and renders the replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"strconv"
	"strings"

	"coffeeshop/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the handler needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, ch domain.Channel, principal string, hint domain.ProfileHint) (*domain.Customer, error)
}

type CatalogService interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Category(ctx context.Context, id string) (*domain.Category, error)
	Items(ctx context.Context, categoryID string) ([]domain.MenuItem, error)
	Item(ctx context.Context, id string) (*domain.MenuItem, error)
}

type CartService interface {
	Add(ctx context.Context, customerID, itemID string) (int, error)
	Decrement(ctx context.Context, customerID, itemID string) (int, error)
	Remove(ctx context.Context, customerID, itemID string) error
	Clear(ctx context.Context, customerID string) error
	Snapshot(ctx context.Context, customerID string) (iter.Seq[domain.CartItemView], error)
}

type OrderService interface {
	Checkout(ctx context.Context, customerID string, fulfillment domain.Fulfillment, address string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
}

const recentOrders = 5

const helpText = `/menu browse the menu
/cart show your cart
/orders your recent orders

Share your phone number so staff can find your orders.`

type Handler struct {
	sender   Sender
	states   StateStore
	identity IdentityResolver
	catalog  CatalogService
	carts    CartService
	orders   OrderService
	logger   *log.Logger
}

func NewHandler(sender Sender, states StateStore, identity IdentityResolver, catalog CatalogService, carts CartService, orders OrderService, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Handler{
		sender:   sender,
		states:   states,
		identity: identity,
		catalog:  catalog,
		carts:    carts,
		orders:   orders,
		logger:   logger,
	}
}

// HandleUpdate processes one Telegram update. Only private chats are served.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return h.handleMessage(ctx, update.Message)
	default:
		return nil
	}
}

// Run handles updates from a long-polling channel until ctx is done or the
// channel is closed. Failed updates are logged and skipped.
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := h.HandleUpdate(ctx, update); err != nil {
				h.logger.Printf("bot: handle update update_id=%d error=%v", update.UpdateID, err)
			}
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil || msg.Chat.ID <= 0 || msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if msg.Contact != nil {
		return h.handleContact(ctx, msg)
	}

	cust, err := h.resolve(ctx, chatID, msg.From, "")
	if err != nil {
		return h.fail(chatID, err)
	}

	if msg.IsCommand() {
		h.resetConversation(ctx, chatID)
		switch msg.Command() {
		case "start":
			return h.sendWelcome(chatID, msg.From)
		case "menu":
			return h.showCategories(ctx, chatID, 0)
		case "cart":
			return h.showCart(ctx, chatID, 0, cust)
		case "orders":
			return h.showOrders(ctx, chatID, cust)
		case "help":
			return h.sendText(chatID, helpText)
		default:
			return h.sendText(chatID, "Unknown command. Use /menu, /cart or /orders.")
		}
	}

	switch strings.TrimSpace(msg.Text) {
	case labelMenu:
		h.resetConversation(ctx, chatID)
		return h.showCategories(ctx, chatID, 0)
	case labelCart:
		h.resetConversation(ctx, chatID)
		return h.showCart(ctx, chatID, 0, cust)
	case labelOrders:
		h.resetConversation(ctx, chatID)
		return h.showOrders(ctx, chatID, cust)
	}

	state, err := h.states.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if state != nil && state.Step == stepAwaitingAddress {
		return h.finishDelivery(ctx, chatID, cust, msg.Text)
	}
	return h.sendText(chatID, "Use the buttons below or /menu to start an order.")
}

// handleContact captures the customer's own phone number.
func (h *Handler) handleContact(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	if msg.Contact.UserID != 0 && msg.Contact.UserID != msg.From.ID {
		return h.sendText(chatID, "Please share your own phone number.")
	}
	_, err := h.resolve(ctx, chatID, msg.From, msg.Contact.PhoneNumber)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return h.sendText(chatID, "This phone number already belongs to another customer.")
	case errors.Is(err, domain.ErrValidation):
		return h.sendText(chatID, "That does not look like a phone number.")
	case err != nil:
		return h.fail(chatID, err)
	}
	reply := tgbotapi.NewMessage(chatID, "📞 Phone number saved!")
	reply.ReplyMarkup = mainMenuKeyboard()
	_, err = h.sender.Send(reply)
	return err
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.Message == nil || q.Message.Chat == nil || q.Message.Chat.ID <= 0 || q.From == nil {
		return h.answer(q.ID, "")
	}
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID

	cust, err := h.resolve(ctx, chatID, q.From, "")
	if err != nil {
		_ = h.answer(q.ID, "")
		return h.fail(chatID, err)
	}

	data := q.Data
	switch data {
	case cbMenu, cbCart, cbOrders, cbClear, cbCheckout:
		h.resetConversation(ctx, chatID)
	}
	notice := ""
	switch {
	case data == cbNoop:
	case data == cbMenu:
		err = h.showCategories(ctx, chatID, messageID)
	case data == cbCart:
		err = h.showCart(ctx, chatID, messageID, cust)
	case data == cbOrders:
		err = h.showOrders(ctx, chatID, cust)
	case data == cbClear:
		if err = h.carts.Clear(ctx, cust.ID); err == nil {
			notice = "Cart cleared ✅"
			err = h.showCart(ctx, chatID, messageID, cust)
		}
	case data == cbCheckout:
		err = h.startCheckout(ctx, chatID, messageID, cust)
	case data == cbPickup:
		err = h.placeOrder(ctx, chatID, cust, domain.FulfillmentPickup, "")
	case data == cbDelivery:
		err = h.askAddress(ctx, chatID)
	case strings.HasPrefix(data, cbCategoryPrefix):
		err = h.showItems(ctx, chatID, messageID, cust, strings.TrimPrefix(data, cbCategoryPrefix))
	case strings.HasPrefix(data, cbCartIncPrefix):
		if _, err = h.carts.Add(ctx, cust.ID, strings.TrimPrefix(data, cbCartIncPrefix)); err == nil {
			err = h.showCart(ctx, chatID, messageID, cust)
		}
	case strings.HasPrefix(data, cbCartDecPrefix):
		if _, err = h.carts.Decrement(ctx, cust.ID, strings.TrimPrefix(data, cbCartDecPrefix)); err == nil {
			err = h.showCart(ctx, chatID, messageID, cust)
		}
	case strings.HasPrefix(data, cbRemovePrefix):
		if err = h.carts.Remove(ctx, cust.ID, strings.TrimPrefix(data, cbRemovePrefix)); err == nil {
			notice = "Removed from cart ✅"
			err = h.showCart(ctx, chatID, messageID, cust)
		}
	case strings.HasPrefix(data, cbIncreasePrefix):
		itemID := strings.TrimPrefix(data, cbIncreasePrefix)
		if _, err = h.carts.Add(ctx, cust.ID, itemID); err == nil {
			notice = "Added to cart ✅"
			err = h.refreshItems(ctx, chatID, messageID, cust, itemID)
		}
	case strings.HasPrefix(data, cbDecreasePrefix):
		itemID := strings.TrimPrefix(data, cbDecreasePrefix)
		if _, err = h.carts.Decrement(ctx, cust.ID, itemID); err == nil {
			err = h.refreshItems(ctx, chatID, messageID, cust, itemID)
		}
	default:
		notice = "Unknown action"
	}

	if errors.Is(err, domain.ErrNotFound) {
		notice, err = "This item is no longer available", nil
	}
	if aerr := h.answer(q.ID, notice); aerr != nil {
		h.logger.Printf("bot: answer callback chat_id=%d error=%v", chatID, aerr)
	}
	if err != nil {
		return h.fail(chatID, err)
	}
	return nil
}

func (h *Handler) resolve(ctx context.Context, chatID int64, from *tgbotapi.User, phone string) (*domain.Customer, error) {
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if name == "" {
		name = from.UserName
	}
	return h.identity.Resolve(ctx, domain.ChannelBot, strconv.FormatInt(chatID, 10), domain.ProfileHint{Name: name, Phone: phone})
}

func (h *Handler) sendWelcome(chatID int64, from *tgbotapi.User) error {
	name := from.FirstName
	if name == "" {
		name = "there"
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("👋 Hi %s! Welcome to our coffee shop.\n\nBrowse the menu, fill your cart and check out for pickup or delivery.", name))
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := h.sender.Send(msg)
	return err
}

func (h *Handler) showCategories(ctx context.Context, chatID int64, messageID int) error {
	cats, err := h.catalog.Categories(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return h.render(chatID, messageID, "The menu is not available right now 😔", emptyCartKeyboard())
	}
	return h.render(chatID, messageID, "🍽 Our menu\n\nPick a category:", categoriesKeyboard(cats))
}

func (h *Handler) showItems(ctx context.Context, chatID int64, messageID int, cust *domain.Customer, categoryID string) error {
	cat, err := h.catalog.Category(ctx, categoryID)
	if err != nil {
		return err
	}
	items, err := h.catalog.Items(ctx, categoryID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return h.render(chatID, messageID, fmt.Sprintf("There is nothing in %s yet 😔", cat.Name), categoriesBackKeyboard())
	}
	inCart, err := h.quantities(ctx, cust)
	if err != nil {
		return err
	}
	return h.render(chatID, messageID, cat.Label(), itemsKeyboard(items, inCart))
}

// refreshItems redraws the item keyboard of the category itemID belongs to.
func (h *Handler) refreshItems(ctx context.Context, chatID int64, messageID int, cust *domain.Customer, itemID string) error {
	item, err := h.catalog.Item(ctx, itemID)
	if err != nil {
		return err
	}
	return h.showItems(ctx, chatID, messageID, cust, item.CategoryID)
}

func (h *Handler) quantities(ctx context.Context, cust *domain.Customer) (map[string]int, error) {
	seq, err := h.carts.Snapshot(ctx, cust.ID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for v := range seq {
		out[v.Item.ID] = v.Quantity
	}
	return out, nil
}

func (h *Handler) showCart(ctx context.Context, chatID int64, messageID int, cust *domain.Customer) error {
	seq, err := h.carts.Snapshot(ctx, cust.ID)
	if err != nil {
		return err
	}
	var (
		lines []domain.CartItemView
		total int64
		b     strings.Builder
	)
	b.WriteString("🛒 Your cart\n\n")
	for v := range seq {
		lines = append(lines, v)
		total += v.TotalCents
		fmt.Fprintf(&b, "• %s × %d = %s\n", v.Item.Name, v.Quantity, formatPrice(v.TotalCents))
	}
	if len(lines) == 0 {
		return h.render(chatID, messageID, "🛒 Your cart is empty", emptyCartKeyboard())
	}
	fmt.Fprintf(&b, "\nTotal: %s", formatPrice(total))
	return h.render(chatID, messageID, b.String(), cartKeyboard(lines))
}

func (h *Handler) startCheckout(ctx context.Context, chatID int64, messageID int, cust *domain.Customer) error {
	seq, err := h.carts.Snapshot(ctx, cust.ID)
	if err != nil {
		return err
	}
	empty := true
	for range seq {
		empty = false
		break
	}
	if empty {
		return h.render(chatID, messageID, "🛒 Your cart is empty", emptyCartKeyboard())
	}
	return h.render(chatID, messageID, "How would you like to get your order?", fulfillmentKeyboard())
}

func (h *Handler) askAddress(ctx context.Context, chatID int64) error {
	if err := h.states.Save(ctx, &State{ChatID: chatID, Step: stepAwaitingAddress, Fulfillment: domain.FulfillmentDelivery}); err != nil {
		return err
	}
	return h.sendText(chatID, "🚚 Please send the delivery address.")
}

func (h *Handler) finishDelivery(ctx context.Context, chatID int64, cust *domain.Customer, address string) error {
	if strings.TrimSpace(address) == "" {
		return h.sendText(chatID, "Please send the delivery address as text.")
	}
	return h.placeOrder(ctx, chatID, cust, domain.FulfillmentDelivery, address)
}

// placeOrder ends any pending conversation step whatever the outcome, so a
// later message is never taken for a delivery address.
func (h *Handler) placeOrder(ctx context.Context, chatID int64, cust *domain.Customer, f domain.Fulfillment, address string) error {
	o, err := h.orders.Checkout(ctx, cust.ID, f, address)
	h.resetConversation(ctx, chatID)
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return h.sendText(chatID, "🛒 Your cart is empty")
	case errors.Is(err, domain.ErrValidation):
		return h.sendText(chatID, "That address could not be used. Please choose delivery again.")
	case errors.Is(err, domain.ErrNotFound):
		return h.sendText(chatID, "Some items in your cart are no longer available. Please review your cart.")
	case err != nil:
		return err
	}
	h.logger.Printf("bot: order placed chat_id=%d order_id=%d", chatID, o.ID)
	return h.sendText(chatID, formatOrder(o, "✅ Order placed!"))
}

func (h *Handler) resetConversation(ctx context.Context, chatID int64) {
	if err := h.states.Clear(ctx, chatID); err != nil {
		h.logger.Printf("bot: clear state chat_id=%d error=%v", chatID, err)
	}
}

func (h *Handler) showOrders(ctx context.Context, chatID int64, cust *domain.Customer) error {
	orders, err := h.orders.ListByCustomer(ctx, cust.ID, recentOrders)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return h.sendText(chatID, "You have no orders yet.")
	}
	var b strings.Builder
	b.WriteString("📦 Your recent orders\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "\n#%d · %s · %s · %s", o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.Status, formatPrice(o.TotalCents))
	}
	return h.sendText(chatID, b.String())
}

func formatOrder(o *domain.Order, title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nOrder #%d (%s)\n", title, o.ID, o.Fulfillment)
	for _, l := range o.Lines {
		fmt.Fprintf(&b, "• %s × %d = %s\n", l.ItemName, l.Quantity, formatPrice(l.TotalCents()))
	}
	if o.Address != nil {
		fmt.Fprintf(&b, "Address: %s\n", *o.Address)
	}
	fmt.Fprintf(&b, "Total: %s\nStatus: %s", formatPrice(o.TotalCents), o.Status)
	return b.String()
}

// render edits the message a callback came from, or sends a new one when
// messageID is zero.
func (h *Handler) render(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	if messageID == 0 {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = kb
		_, err := h.sender.Send(msg)
		return err
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb)
	if _, err := h.sender.Request(edit); err != nil && !strings.Contains(err.Error(), "message is not modified") {
		return err
	}
	return nil
}

func (h *Handler) sendText(chatID int64, text string) error {
	_, err := h.sender.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (h *Handler) answer(callbackID, text string) error {
	_, err := h.sender.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// fail tells the user something went wrong and returns err for logging.
func (h *Handler) fail(chatID int64, err error) error {
	if serr := h.sendText(chatID, "Something went wrong 😔 Please try again."); serr != nil {
		h.logger.Printf("bot: notify chat_id=%d error=%v", chatID, serr)
	}
	return err
}
