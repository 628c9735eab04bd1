package api

import (
	"net/http"
	"strconv"

	"loan-portal/internal/backend"
	"loan-portal/internal/poller"
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

	"github.com/go-chi/chi/v5"
)

// ==========================
// Auth
// ==========================

func signup(step SignupStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in usersignup.Input
		if err := decode(r, &in); err != nil {
			Error(w, err)
			return
		}
		out, err := step.Execute(r.Context(), &in)
		reply(w, out, err)
	}
}

func login(step LoginStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in userlogin.Input
		if err := decode(r, &in); err != nil {
			Error(w, err)
			return
		}
		out, err := step.Execute(r.Context(), &in)
		reply(w, out, err)
	}
}

func logout(step LogoutStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := step.Execute(r.Context(), &userlogout.Input{SessionID: SessionID(r.Context())})
		reply(w, out, err)
	}
}

// ==========================
// Application
// ==========================

func applicationRoutes(step ApplicationStep) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in submitapplication.Input
			if err := decode(r, &in); err != nil {
				Error(w, err)
				return
			}
			in.SessionID = SessionID(r.Context())
			out, err := step.Execute(r.Context(), &in)
			reply(w, out, err)
		})

		// Section checks gate the "next" button; they never call the backend.
		r.Post("/sections/{section}", func(w http.ResponseWriter, r *http.Request) {
			var in submitapplication.Input
			if err := decode(r, &in); err != nil {
				Error(w, err)
				return
			}
			reply(w, step.CheckSection(chi.URLParam(r, "section"), &in), nil)
		})
	}
}

func bankDetails(step BankDetailsStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in bankdetails.Input
		if err := decode(r, &in); err != nil {
			Error(w, err)
			return
		}
		in.SessionID = SessionID(r.Context())
		out, err := step.Execute(r.Context(), &in)
		reply(w, out, err)
	}
}

// ==========================
// Offers
// ==========================

func offerRoutes(step OffersStep) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
			out, err := step.Fetch(r.Context(), &selectoffer.FetchInput{
				SessionID: SessionID(r.Context()),
				Refresh:   refresh,
			})
			reply(w, out, err)
		})

		r.Post("/quote", func(w http.ResponseWriter, r *http.Request) {
			var in selectoffer.QuoteInput
			if err := decode(r, &in); err != nil {
				Error(w, err)
				return
			}
			in.SessionID = SessionID(r.Context())
			out, err := step.Quote(r.Context(), &in)
			reply(w, out, err)
		})

		r.Post("/select", func(w http.ResponseWriter, r *http.Request) {
			var in selectoffer.Input
			if err := decode(r, &in); err != nil {
				Error(w, err)
				return
			}
			in.SessionID = SessionID(r.Context())
			out, err := step.Execute(r.Context(), &in)
			reply(w, out, err)
		})
	}
}

// ==========================
// External actions
// ==========================

func actionRoutes(step ActionStep) func(chi.Router) {
	type call func(*http.Request, *externalaction.Input) (*externalaction.Output, error)

	handle := func(fn call) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var in externalaction.Input
			if r.Method == http.MethodPost {
				if err := decode(r, &in); err != nil {
					Error(w, err)
					return
				}
			}
			in.SessionID = SessionID(r.Context())
			in.Kind = chi.URLParam(r, "kind")
			out, err := fn(r, &in)
			reply(w, out, err)
		}
	}

	return func(r chi.Router) {
		r.Get("/", handle(func(r *http.Request, in *externalaction.Input) (*externalaction.Output, error) {
			return step.Status(r.Context(), in)
		}))
		r.Post("/start", handle(func(r *http.Request, in *externalaction.Input) (*externalaction.Output, error) {
			return step.Start(r.Context(), in)
		}))
		r.Post("/retry", handle(func(r *http.Request, in *externalaction.Input) (*externalaction.Output, error) {
			return step.Retry(r.Context(), in)
		}))
		r.Post("/present", handle(func(r *http.Request, in *externalaction.Input) (*externalaction.Output, error) {
			if in.Mode == "" {
				in.Mode = poller.ModeNewTab
			}
			return step.Present(r.Context(), in)
		}))
		r.Delete("/", handle(func(r *http.Request, in *externalaction.Input) (*externalaction.Output, error) {
			return step.Cancel(r.Context(), in)
		}))
	}
}

// ==========================
// Disbursal & servicing
// ==========================

func disbursalStatus(step DisbursalStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		out, err := step.Check(r.Context(), &trackdisbursal.Input{
			SessionID: SessionID(r.Context()),
			Email:     q.Get("email"),
			Phone:     q.Get("phone"),
		})
		reply(w, out, err)
	}
}

func dashboard(step DashboardStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := step.Execute(r.Context(), &loandashboard.Input{SessionID: SessionID(r.Context())})
		reply(w, out, err)
	}
}

func payment(step PaymentStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in paymentinitiation.Input
		if err := decode(r, &in); err != nil {
			Error(w, err)
			return
		}
		in.SessionID = SessionID(r.Context())
		in.Kind = backend.PaymentKind(chi.URLParam(r, "kind"))
		out, err := step.Execute(r.Context(), &in)
		reply(w, out, err)
	}
}

// ==========================
// Grievances
// ==========================

func ticketRoutes(step TicketStep) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in grievanceticket.Input
			if err := decode(r, &in); err != nil {
				Error(w, err)
				return
			}
			in.SessionID = SessionID(r.Context())
			out, err := step.Execute(r.Context(), &in)
			reply(w, out, err)
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			from, _ := strconv.Atoi(q.Get("from"))
			size, _ := strconv.Atoi(q.Get("size"))
			out, err := step.List(r.Context(), &grievanceticket.ListInput{
				SessionID: SessionID(r.Context()),
				Status:    q.Get("status"),
				Category:  q.Get("category"),
				Text:      q.Get("q"),
				From:      from,
				Size:      size,
			})
			reply(w, out, err)
		})

		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			out, err := step.Status(r.Context(), &grievanceticket.StatusInput{
				SessionID:     SessionID(r.Context()),
				TransactionID: r.URL.Query().Get("transactionId"),
			})
			reply(w, out, err)
		})
	}
}
