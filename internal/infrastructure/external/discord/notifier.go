package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
	"github.com/bourgade-rp/bourgade-hub/pkg/timeutil"
)

// Notifier subscribes to domain events and posts them to the town's Discord
// channel as embeds. Player-facing text is French; delivery failures are
// logged and never propagated back to the command that produced the event.
type Notifier struct {
	client  *Client
	logger  *slog.Logger
	timeout time.Duration
}

// NewNotifier creates a new Notifier.
func NewNotifier(client *Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		client:  client,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// InterestedIn implements shared.EventHandler. Vote toggles are deliberately
// excluded: posting every toggle would flood the channel, quorum is announced
// through the returned event instead.
func (n *Notifier) InterestedIn() []shared.EventType {
	return []shared.EventType{
		shared.EventExpeditionCreated,
		shared.EventExpeditionLocked,
		shared.EventExpeditionDeparted,
		shared.EventExpeditionReturned,
		shared.EventMemberJoined,
		shared.EventMemberLeft,
		shared.EventDayRolled,
	}
}

// Handle implements shared.EventHandler.
func (n *Notifier) Handle(event shared.Event) error {
	embed, ok := n.buildEmbed(event)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	err := n.client.Execute(ctx, WebhookPayload{Embeds: []Embed{embed}})
	if err != nil {
		n.logger.Warn("discord notification dropped",
			"event_type", event.EventType(),
			"expedition_id", event.AggregateID(),
			"error", err,
		)
	}
	return nil
}

// buildEmbed renders one event as an embed.
func (n *Notifier) buildEmbed(event shared.Event) (Embed, bool) {
	timestamp := event.OccurredAt().UTC().Format(time.RFC3339)

	switch e := event.(type) {
	case shared.ExpeditionCreatedEvent:
		return Embed{
			Title:       fmt.Sprintf("Nouvelle expédition : %s", e.Name),
			Description: fmt.Sprintf("Une expédition de %d jours se prépare. Rejoignez-la avant minuit !", e.Duration),
			Color:       ColorCreated,
			Timestamp:   timestamp,
		}, true

	case shared.ExpeditionLockedEvent:
		return Embed{
			Title:       fmt.Sprintf("Expédition verrouillée : %s", e.Name),
			Description: "La composition et les ressources sont figées. Départ au matin.",
			Color:       ColorLocked,
			Fields: []EmbedField{
				{Name: "Participants", Value: fmt.Sprintf("%d", e.MemberCount), Inline: true},
			},
			Timestamp: timestamp,
		}, true

	case shared.ExpeditionDepartedEvent:
		return Embed{
			Title:       fmt.Sprintf("Départ de l'expédition : %s", e.Name),
			Description: "L'expédition a quitté la ville.",
			Color:       ColorDeparted,
			Fields: []EmbedField{
				{Name: "Retour prévu", Value: timeutil.FormatFrench(e.ReturnAt), Inline: true},
			},
			Timestamp: timestamp,
		}, true

	case shared.ExpeditionReturnedEvent:
		return Embed{
			Title:       fmt.Sprintf("Retour de l'expédition : %s", e.Name),
			Description: returnDescription(e.Reason),
			Color:       returnColor(e.Reason),
			Timestamp:   timestamp,
		}, true

	case shared.MemberJoinedEvent:
		desc := fmt.Sprintf("**%s** a rejoint l'expédition.", e.CharacterID)
		if e.ByAdmin {
			desc = fmt.Sprintf("**%s** a été ajouté à l'expédition par un administrateur.", e.CharacterID)
		}
		return Embed{Description: desc, Color: ColorNeutral, Timestamp: timestamp}, true

	case shared.MemberLeftEvent:
		desc := fmt.Sprintf("**%s** a quitté l'expédition.", e.CharacterID)
		if e.ByAdmin {
			desc = fmt.Sprintf("**%s** a été retiré de l'expédition par un administrateur.", e.CharacterID)
		}
		if e.Terminated {
			desc += " L'expédition a été dissoute, ses ressources retournent en ville."
		}
		return Embed{Description: desc, Color: ColorNeutral, Timestamp: timestamp}, true

	case shared.DayRolledEvent:
		return Embed{
			Description: fmt.Sprintf("Jour %d : l'expédition progresse vers **%s**.", e.PathLength, e.Direction),
			Color:       ColorDeparted,
			Timestamp:   timestamp,
		}, true

	default:
		return Embed{}, false
	}
}

func returnDescription(reason shared.ReturnReason) string {
	switch reason {
	case shared.ReturnReasonEmergency:
		return "Retour d'urgence voté par la majorité des participants. Les ressources rapportées sont de retour en ville."
	case shared.ReturnReasonAdmin:
		return "Retour forcé par un administrateur. Les ressources rapportées sont de retour en ville."
	case shared.ReturnReasonAbandoned:
		return "L'expédition a été dissoute faute de participants."
	default:
		return "L'expédition est rentrée à l'issue de son périple. Les ressources rapportées sont de retour en ville."
	}
}

func returnColor(reason shared.ReturnReason) int {
	switch reason {
	case shared.ReturnReasonEmergency, shared.ReturnReasonAdmin:
		return ColorDanger
	case shared.ReturnReasonAbandoned:
		return ColorNeutral
	default:
		return ColorReturned
	}
}
