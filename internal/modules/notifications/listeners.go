package notifications

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/events"
)

// RegisterListeners subscribes the notification writers to the event bus:
// registrations produce a welcome message, executed trades a confirmation.
// Write failures are logged and swallowed so a notification problem can
// never fail the action that triggered it.
func RegisterListeners(bus *events.Bus, service *Service, log zerolog.Logger) {
	log = log.With().Str("component", "notification_listeners").Logger()

	bus.Subscribe(events.UserRegistered, func(e *events.Event) {
		userID, ok := eventInt64(e.Data, "user_id")
		if !ok {
			log.Warn().Msg("Registration event without user id")
			return
		}
		username, _ := e.Data["username"].(string)

		if _, err := service.Send(nil, userID, "Welcome to Papertrade", welcomeBody(username)); err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to write welcome notification")
		}
	})

	bus.Subscribe(events.TradeExecuted, func(e *events.Event) {
		userID, ok := eventInt64(e.Data, "user_id")
		if !ok {
			log.Warn().Msg("Trade event without user id")
			return
		}

		subject, body := tradeMessage(e.Data)
		if _, err := service.Send(nil, userID, subject, body); err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to write trade notification")
		}
	})
}

func welcomeBody(username string) string {
	if username == "" {
		username = "trader"
	}
	return fmt.Sprintf(
		"Hi %s, your account is ready. Your wallet holds virtual starting cash. Pick a symbol and place your first trade.",
		username)
}

func tradeMessage(data map[string]interface{}) (string, string) {
	side, _ := data["side"].(string)
	ticker, _ := data["ticker"].(string)
	shares, _ := data["shares"].(string)
	price, _ := data["price"].(string)
	amount, _ := data["amount"].(string)

	subject := fmt.Sprintf("Trade filled: %s %s", side, ticker)
	body := fmt.Sprintf("Your %s order for %s %s at %s filled, total %s.",
		side, shares, ticker, price, amount)
	if pl, ok := data["realized_pl"].(string); ok {
		body += fmt.Sprintf(" Realized P&L: %s.", pl)
	}
	return subject, body
}

// eventInt64 reads an integer from event data. Typed emissions pass through
// a JSON roundtrip that turns numbers into float64; map emissions may carry
// the original integer types.
func eventInt64(data map[string]interface{}, key string) (int64, bool) {
	switch v := data[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
