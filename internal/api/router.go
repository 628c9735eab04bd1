package api

import (
	"context"
	"net/http"

	"loan-portal/internal/common/logger"
	"loan-portal/internal/finance"
	"loan-portal/internal/tickets"
	bankdetails "loan-portal/internal/workers/application/bank-details"
	submitapplication "loan-portal/internal/workers/application/submit-application"
	userlogin "loan-portal/internal/workers/auth/user-login"
	userlogout "loan-portal/internal/workers/auth/user-logout"
	usersignup "loan-portal/internal/workers/auth/user-signup"
	trackdisbursal "loan-portal/internal/workers/disbursement/track-disbursal"
	selectoffer "loan-portal/internal/workers/offers/select-offer"
	loandashboard "loan-portal/internal/workers/servicing/loan-dashboard"
	paymentinitiation "loan-portal/internal/workers/servicing/payment-initiation"
	grievanceticket "loan-portal/internal/workers/support/grievance-ticket"
	externalaction "loan-portal/internal/workers/verification/external-action"
	"loan-portal/pkg/registry"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// ==========================
// Step contracts
// ==========================

type SignupStep interface {
	Execute(ctx context.Context, input *usersignup.Input) (*usersignup.Output, error)
}

type LoginStep interface {
	Execute(ctx context.Context, input *userlogin.Input) (*userlogin.Output, error)
}

type LogoutStep interface {
	Execute(ctx context.Context, input *userlogout.Input) (*userlogout.Output, error)
}

type ApplicationStep interface {
	Execute(ctx context.Context, input *submitapplication.Input) (*submitapplication.Output, error)
	CheckSection(section string, input *submitapplication.Input) *submitapplication.SectionResult
}

type BankDetailsStep interface {
	Execute(ctx context.Context, input *bankdetails.Input) (*bankdetails.Output, error)
}

type OffersStep interface {
	Fetch(ctx context.Context, input *selectoffer.FetchInput) (*selectoffer.FetchOutput, error)
	Quote(ctx context.Context, input *selectoffer.QuoteInput) (*finance.Quote, error)
	Execute(ctx context.Context, input *selectoffer.Input) (*selectoffer.Output, error)
}

type ActionStep interface {
	Start(ctx context.Context, input *externalaction.Input) (*externalaction.Output, error)
	Retry(ctx context.Context, input *externalaction.Input) (*externalaction.Output, error)
	Present(ctx context.Context, input *externalaction.Input) (*externalaction.Output, error)
	Status(ctx context.Context, input *externalaction.Input) (*externalaction.Output, error)
	Cancel(ctx context.Context, input *externalaction.Input) (*externalaction.Output, error)
}

type DisbursalStep interface {
	Check(ctx context.Context, input *trackdisbursal.Input) (*trackdisbursal.Output, error)
}

type DashboardStep interface {
	Execute(ctx context.Context, input *loandashboard.Input) (*loandashboard.Output, error)
}

type PaymentStep interface {
	Execute(ctx context.Context, input *paymentinitiation.Input) (*paymentinitiation.Output, error)
}

type TicketStep interface {
	Execute(ctx context.Context, input *grievanceticket.Input) (*grievanceticket.Output, error)
	Status(ctx context.Context, input *grievanceticket.StatusInput) (*grievanceticket.StatusOutput, error)
	List(ctx context.Context, input *grievanceticket.ListInput) (*tickets.Result, error)
}

// Handlers groups the steps served over HTTP. A nil step leaves its routes unmounted.
type Handlers struct {
	Signup      SignupStep
	Login       LoginStep
	Logout      LogoutStep
	Application ApplicationStep
	BankDetails BankDetailsStep
	Offers      OffersStep
	Actions     ActionStep
	Disbursal   DisbursalStep
	Dashboard   DashboardStep
	Payments    PaymentStep
	Tickets     TicketStep
	Flow        *registry.FlowRegistry
	// Observer, when set, receives per-route step measurements.
	Observer StepRecorder
}

// NewRouter builds the browser-facing router.
func NewRouter(h Handlers, allowedOrigins []string, log logger.Logger) http.Handler {
	log = log.WithFields(map[string]interface{}{"component": "api"})
	if h.Flow == nil {
		h.Flow = registry.Default()
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(RequestLogger(log))
	if h.Observer != nil {
		r.Use(ObserveSteps(h.Observer))
	}
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(CORS(allowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/flow", func(w http.ResponseWriter, _ *http.Request) {
			reply(w, h.Flow, nil)
		})

		r.Route("/auth", func(r chi.Router) {
			if h.Signup != nil {
				r.Post("/signup", signup(h.Signup))
			}
			if h.Login != nil {
				r.Post("/login", login(h.Login))
			}
			if h.Logout != nil {
				r.With(RequireSession).Post("/logout", logout(h.Logout))
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireSession)
			if h.Application != nil {
				r.Route("/application", applicationRoutes(h.Application))
			}
			if h.BankDetails != nil {
				r.Post("/bank-details", bankDetails(h.BankDetails))
			}
			if h.Offers != nil {
				r.Route("/offers", offerRoutes(h.Offers))
			}
			if h.Actions != nil {
				r.Route("/actions/{kind}", actionRoutes(h.Actions))
			}
			if h.Disbursal != nil {
				r.Get("/disbursement/status", disbursalStatus(h.Disbursal))
			}
			if h.Dashboard != nil {
				r.Get("/loans", dashboard(h.Dashboard))
			}
			if h.Payments != nil {
				r.Post("/payments/{kind}", payment(h.Payments))
			}
			if h.Tickets != nil {
				r.Route("/tickets", ticketRoutes(h.Tickets))
			}
		})
	})

	return r
}
