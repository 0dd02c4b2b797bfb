package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/giftdesk-backend/pkg/enums"
	"github.com/angelmondragon/giftdesk-backend/pkg/mailer"
	"github.com/angelmondragon/giftdesk-backend/pkg/outbox/payloads"
)

// Composer turns a decoded event payload into the emails it should produce.
// An empty slice means nobody needs to hear about it.
type Composer struct {
	dir Directory
}

func NewComposer(dir Directory) *Composer {
	return &Composer{dir: dir}
}

func (c *Composer) Compose(ctx context.Context, payload any) ([]mailer.Message, error) {
	switch p := payload.(type) {
	case *payloads.GiftLinkIssuedEvent:
		return one(render("gift_link_issued", Contact{Email: p.Email, Name: p.Name},
			fmt.Sprintf("You have a gift from %s", p.CampaignName),
			view{CampaignName: p.CampaignName, URL: p.GiftURL, ExpiresAt: p.LinkExpiresAt},
			fmt.Sprintf("%s has a gift waiting for you: %s", p.CampaignName, p.GiftURL)))

	case *payloads.GiftLinkExpiringEvent:
		expires := p.LinkExpiresAt
		return one(render("gift_link_expiring", Contact{Email: p.Email, Name: p.Name},
			fmt.Sprintf("Your %s gift link expires soon", p.CampaignName),
			view{CampaignName: p.CampaignName, URL: p.GiftURL, ExpiresAt: &expires},
			fmt.Sprintf("Choose your gift before %s: %s", expires.UTC().Format(dateLayout), p.GiftURL)))

	case *payloads.GiftRedeemedEvent:
		ref := shortRef(p.OrderID)
		return one(render("gift_redeemed", Contact{Email: p.Email, Name: p.Name},
			"Your gift is on its way",
			view{CampaignName: p.CampaignName, ProductName: p.ProductName, Reference: ref},
			fmt.Sprintf("Thanks for choosing %s. Order reference: %s.", p.ProductName, ref)))

	case *payloads.UserInvitedEvent:
		return one(render("user_invited", Contact{Email: p.Email, Name: p.Name},
			"You have been invited to GiftDesk",
			view{Secret: p.TempPassword},
			fmt.Sprintf("Sign in as %s with the temporary password %s.", p.Email, p.TempPassword)))

	case *payloads.InvoiceGeneratedEvent:
		contacts, err := c.dir.CompanyHR(ctx, p.CompanyID)
		if err != nil {
			return nil, err
		}
		amount := formatMoney(p.TotalAmount.StringFixed(2), p.Currency)
		due := p.DueDate
		out := make([]mailer.Message, 0, len(contacts))
		for _, to := range contacts {
			msg, err := render("invoice_generated", to,
				fmt.Sprintf("Invoice %s", p.InvoiceNumber),
				view{Reference: p.InvoiceNumber, Amount: amount, ExpiresAt: &due},
				fmt.Sprintf("Invoice %s for %s is due by %s.", p.InvoiceNumber, amount, due.UTC().Format(dateLayout)))
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
		}
		return out, nil

	case *payloads.WalletCreditedEvent:
		to, err := c.dir.User(ctx, p.UserID)
		if err != nil || to == nil {
			return nil, err
		}
		amount := formatMoney(p.Amount.StringFixed(2), p.Currency)
		state := "credited"
		subject := "Wallet credited"
		if p.Status != enums.WalletTxCompleted {
			state = "submitted for confirmation and will be added"
			subject = "Wallet top-up received"
		}
		return one(render("wallet_credited", *to, subject,
			view{Amount: amount, State: state},
			fmt.Sprintf("%s was %s to your wallet.", amount, state)))

	case *payloads.VendorAssignedEvent:
		if p.VendorEmail == nil || strings.TrimSpace(*p.VendorEmail) == "" {
			return nil, nil
		}
		ref := shortRef(p.OrderID)
		return one(render("vendor_assigned", Contact{Email: *p.VendorEmail, Name: p.VendorName},
			fmt.Sprintf("New GiftDesk order %s", ref),
			view{Reference: ref},
			fmt.Sprintf("Order %s has been assigned to you for fulfilment.", ref)))

	case *payloads.OrderStatusChangedEvent:
		to, err := c.dir.OrderContact(ctx, p.OrderID)
		if err != nil || to == nil {
			return nil, err
		}
		ref := shortRef(p.OrderID)
		return one(render("order_status_changed", *to,
			fmt.Sprintf("Order %s is %s", ref, p.To),
			view{Reference: ref, State: string(p.To)},
			fmt.Sprintf("Order %s is now %s.", ref, p.To)))
	}
	return nil, fmt.Errorf("no composer for %T", payload)
}

func one(msg mailer.Message, err error) ([]mailer.Message, error) {
	if err != nil {
		return nil, err
	}
	return []mailer.Message{msg}, nil
}

func formatMoney(amount, currency string) string {
	return strings.TrimSpace(currency + " " + amount)
}
