// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"loan-portal/internal/api"
	"loan-portal/internal/backend"
	"loan-portal/internal/common/config"
	"loan-portal/internal/common/database"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/formvalidation"
	"loan-portal/internal/poller"
	"loan-portal/internal/session"
	"loan-portal/pkg/registry"

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

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fake Loan Backend
// ==========================

// fakeBackend answers the loan backend endpoints the portal calls. Each
// action kind walks through its status queue one reply per poll; the last
// entry repeats.
type fakeBackend struct {
	mu        sync.Mutex
	statuses  map[string][]string
	forms     map[string]int
	disbursal []string
	srv       *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{
		statuses: map[string][]string{
			config.ActionKYC:       {"PENDING", "SUCCESS"},
			config.ActionEMandate:  {"SUCCESS"},
			config.ActionAgreement: {"SUCCESS"},
		},
		forms:     map[string]int{},
		disbursal: []string{backend.DisbursalPending, backend.DisbursalDone},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", respond(`{"token":"tok-1","userId":"u-1"}`))
	mux.HandleFunc("/application/submit", respond(`{"applicationId":"app-1"}`))
	mux.HandleFunc("/application/transaction", respond(`{"transactionId":"txn-1"}`))
	mux.HandleFunc("/offers", respond(`[{"lenderId":"l-1","lenderName":"Acme Finance","loanAmount":300000,"interestRate":13.5,"term":24,"installmentAmount":14334}]`))
	mux.HandleFunc("/offers/select", respond(`{}`))
	mux.HandleFunc("/bank-details", respond(`{}`))
	mux.HandleFunc("/loans/active", respond(`[{"transactionId":"txn-1","loanDetails":{"amount":300000,"status":"ACTIVE"},"paymentSchedule":[{"installmentNo":1,"dueDate":"2026-09-05","amount":14334,"status":"OVERDUE"}]}]`))
	mux.HandleFunc("/loans/closed", respond(`[]`))
	mux.HandleFunc("/disbursement/status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		msg := f.disbursal[0]
		if len(f.disbursal) > 1 {
			f.disbursal = f.disbursal[1:]
		}
		f.mu.Unlock()

		if msg == backend.DisbursalDone {
			_, _ = w.Write([]byte(`{"message":"Done","loan":{"transactionId":"txn-1","loanDetails":{"amount":300000,"status":"ACTIVE"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"` + msg + `"}`))
	})

	for _, kind := range []string{config.ActionKYC, config.ActionEMandate, config.ActionAgreement} {
		kind := kind
		mux.HandleFunc("/"+kind+"/form", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.forms[kind]++
			n := f.forms[kind]
			f.mu.Unlock()
			writeJSON(w, map[string]string{
				"formUrl": "https://forms.example/" + kind,
				"formId":  kind + "-form-" + strconv.Itoa(n),
			})
		})
		mux.HandleFunc("/"+kind+"/status", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			queue := f.statuses[kind]
			status := queue[0]
			if len(queue) > 1 {
				f.statuses[kind] = queue[1:]
			}
			f.mu.Unlock()

			reply := map[string]string{backend.StatusField(kind): status}
			if status == "REJECTED" {
				reply["reason"] = "Document mismatch"
			}
			writeJSON(w, reply)
		})
	}

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBackend) setStatuses(kind string, statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[kind] = statuses
}

func (f *fakeBackend) formsCreated(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[kind]
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// ==========================
// Portal Under Test
// ==========================

type portal struct {
	srv      *httptest.Server
	backend  *fakeBackend
	trackers *poller.Registry
	redis    *miniredis.Miniredis
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	log := logger.NewNoOpLogger()
	fake := newFakeBackend(t)

	mr := miniredis.RunT(t)
	rc := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = rc.Close() })

	sessions := session.NewStore(rc, config.SessionConfig{TTL: 600})
	trackers := poller.NewRegistry()
	t.Cleanup(trackers.CloseAll)
	flow := registry.Default()
	client := backend.NewFromConfig(config.BackendConfig{BaseURL: fake.srv.URL, Timeout: 2000}, log)

	offersCfg := selectoffer.DefaultConfig()
	offersCfg.RetryDelay = 10 * time.Millisecond

	actionsCfg := externalaction.DefaultConfig()
	actionsCfg.Interval = 20 * time.Millisecond
	actionsCfg.StartWait = 2 * time.Second

	disbursalCfg := trackdisbursal.DefaultConfig()
	disbursalCfg.Notify = false

	router := api.NewRouter(api.Handlers{
		Signup:      usersignup.NewHandler(usersignup.DefaultConfig(), client, sessions, log),
		Login:       userlogin.NewHandler(userlogin.DefaultConfig(), client, sessions, log),
		Logout:      userlogout.NewHandler(userlogout.DefaultConfig(), sessions, trackers, log),
		Application: submitapplication.NewHandler(submitapplication.DefaultConfig(), client, sessions, formvalidation.New(), nil, flow, log),
		BankDetails: bankdetails.NewHandler(bankdetails.DefaultConfig(), client, sessions, nil, flow, log),
		Offers:      selectoffer.NewHandler(offersCfg, client, sessions, selectoffer.HandlerOptions{Cache: rc, Flow: flow}, log),
		Actions: externalaction.NewHandler(actionsCfg, func(kind, token string) poller.Source {
			return client.Source(kind, token)
		}, sessions, trackers, externalaction.HandlerOptions{Flow: flow}, log),
		Disbursal: trackdisbursal.NewHandler(disbursalCfg, client, sessions, trackdisbursal.HandlerOptions{Flow: flow}, log),
		Dashboard: loandashboard.NewHandler(loandashboard.DefaultConfig(), client, sessions, log),
		Payments:  paymentinitiation.NewHandler(paymentinitiation.DefaultConfig(), client, sessions, nil, log),
		Tickets:   grievanceticket.NewHandler(grievanceticket.DefaultConfig(), client, sessions, grievanceticket.HandlerOptions{}, log),
		Flow:      flow,
	}, []string{"*"}, log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &portal{srv: srv, backend: fake, trackers: trackers, redis: mr}
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call issues one browser request and decodes the response envelope; when
// out is set the data field is decoded into it.
func (p *portal) call(t *testing.T, method, path, sessionID string, body, out interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, p.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(api.SessionHeader, sessionID)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return res.StatusCode, env
}

func (p *portal) login(t *testing.T) string {
	t.Helper()
	var out userlogin.Output
	status, _ := p.call(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.in", "password": "s3cret",
	}, &out)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, out.SessionID)
	assert.Equal(t, registry.StepApplication, out.Next)
	return out.SessionID
}

func (p *portal) apply(t *testing.T, sessionID string) {
	t.Helper()
	var out submitapplication.Output
	status, _ := p.call(t, http.MethodPost, "/api/application", sessionID, map[string]interface{}{
		"form": map[string]interface{}{
			"personal": map[string]interface{}{
				"firstName": "Asha", "lastName": "Rao", "dob": "1995-06-01",
				"pan": "ABCDE1234F", "mobile": "9876543210", "email": "asha@example.in",
			},
			"employment": map[string]interface{}{
				"employmentType": "salaried", "companyName": "Acme", "monthlyIncome": "85000",
			},
			"address": map[string]interface{}{
				"addressLine1": "12 MG Road", "city": "Bengaluru", "state": "KA",
				"pincode": "560001", "consent": true,
			},
		},
	}, &out)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "txn-1", out.TransactionID)
	assert.Equal(t, registry.StepOffers, out.Next)
}

// complete starts and presents one action, then waits for its verdict.
func (p *portal) complete(t *testing.T, sessionID, kind string) externalaction.Output {
	t.Helper()
	var started externalaction.Output
	status, _ := p.call(t, http.MethodPost, "/api/actions/"+kind+"/start", sessionID, nil, &started)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, started.Action.FormURL)

	status, _ = p.call(t, http.MethodPost, "/api/actions/"+kind+"/present", sessionID, map[string]string{"mode": "inline"}, nil)
	require.Equal(t, http.StatusOK, status)

	return p.awaitTerminal(t, sessionID, kind)
}

func (p *portal) awaitTerminal(t *testing.T, sessionID, kind string) externalaction.Output {
	t.Helper()
	var out externalaction.Output
	require.Eventually(t, func() bool {
		out = externalaction.Output{}
		p.call(t, http.MethodGet, "/api/actions/"+kind, sessionID, nil, &out)
		return out.Action.State.Terminal()
	}, 5*time.Second, 20*time.Millisecond)
	return out
}

// ==========================
// Origination Flow
// ==========================

func TestOriginationFlow(t *testing.T) {
	p := newPortal(t)
	sid := p.login(t)

	t.Run("offers wait for the transaction", func(t *testing.T) {
		status, env := p.call(t, http.MethodGet, "/api/offers", sid, nil, nil)
		assert.Equal(t, http.StatusAccepted, status)
		assert.Equal(t, api.StatusWaiting, env.Status)
	})

	p.apply(t, sid)

	var fetched selectoffer.FetchOutput
	status, _ := p.call(t, http.MethodGet, "/api/offers", sid, nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, fetched.Offers, 1)
	assert.Equal(t, 300000.0, fetched.Offers[0].Bounds.Max)

	var selected selectoffer.Output
	status, _ = p.call(t, http.MethodPost, "/api/offers/select", sid, map[string]interface{}{
		"lenderId": "l-1", "amount": 300000,
	}, &selected)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "l-1", selected.ProviderID)
	assert.Equal(t, registry.StepBankDetails, selected.Next)

	var bank bankdetails.Output
	status, _ = p.call(t, http.MethodPost, "/api/bank-details", sid, map[string]interface{}{
		"bank": map[string]string{"accountHolderName": "Asha Rao", "accountNumber": "123456789012", "ifscCode": "hdfc0001234"},
	}, &bank)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, registry.StepKYC, bank.Next)

	for _, step := range []struct{ kind, next string }{
		{config.ActionKYC, registry.StepEMandate},
		{config.ActionEMandate, registry.StepAgreement},
		{config.ActionAgreement, registry.StepDisbursement},
	} {
		out := p.complete(t, sid, step.kind)
		assert.Equal(t, poller.StateSuccess, out.Action.State, step.kind)
		assert.True(t, out.Action.CanProceed, step.kind)
		assert.Equal(t, step.next, out.Next, step.kind)
	}

	var disbursal trackdisbursal.Output
	p.call(t, http.MethodGet, "/api/disbursement/status", sid, nil, &disbursal)
	assert.Equal(t, trackdisbursal.StatePending, disbursal.State)

	status, _ = p.call(t, http.MethodGet, "/api/disbursement/status", sid, nil, &disbursal)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, trackdisbursal.StateDisbursed, disbursal.State)
	assert.Equal(t, registry.StepDashboard, disbursal.Next)

	var dash loandashboard.Output
	status, _ = p.call(t, http.MethodGet, "/api/loans", sid, nil, &dash)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, dash.Active, 1)
	assert.Len(t, dash.Active[0].Overdue, 1)

	status, _ = p.call(t, http.MethodPost, "/api/auth/logout", sid, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, p.trackers.Len())

	status, env := p.call(t, http.MethodGet, "/api/loans", sid, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}

// ==========================
// Session Expiry
// ==========================

func TestExpiredSessionDropsActionTrackers(t *testing.T) {
	p := newPortal(t)
	sid := p.login(t)
	p.apply(t, sid)

	out := p.complete(t, sid, config.ActionKYC)
	require.Equal(t, poller.StateSuccess, out.Action.State)
	require.Equal(t, 1, p.trackers.Len())

	p.redis.FastForward(601 * time.Second)

	status, env := p.call(t, http.MethodGet, "/api/actions/"+config.ActionKYC, sid, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
	assert.Zero(t, p.trackers.Len())
}

// ==========================
// Rejection & Retry
// ==========================

func TestKYCRejectedThenRetried(t *testing.T) {
	p := newPortal(t)
	p.backend.setStatuses(config.ActionKYC, "REJECTED")
	sid := p.login(t)
	p.apply(t, sid)

	out := p.complete(t, sid, config.ActionKYC)
	assert.Equal(t, poller.StateRejected, out.Action.State)
	assert.Equal(t, "Document mismatch", out.Action.Reason)
	assert.True(t, out.Action.CanRetry)
	assert.False(t, out.Action.CanProceed)
	assert.Empty(t, out.Next)

	p.backend.setStatuses(config.ActionKYC, "PENDING", "SUCCESS")
	var retried externalaction.Output
	status, _ := p.call(t, http.MethodPost, "/api/actions/kyc/retry", sid, nil, &retried)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, p.backend.formsCreated(config.ActionKYC))

	status, _ = p.call(t, http.MethodPost, "/api/actions/kyc/present", sid, map[string]string{"mode": "new_tab"}, nil)
	require.Equal(t, http.StatusOK, status)

	out = p.awaitTerminal(t, sid, config.ActionKYC)
	assert.Equal(t, poller.StateSuccess, out.Action.State)
	assert.Equal(t, registry.StepEMandate, out.Next)
}

func TestRetryWithoutRejectionConflicts(t *testing.T) {
	p := newPortal(t)
	sid := p.login(t)
	p.apply(t, sid)

	status, _ := p.call(t, http.MethodPost, "/api/actions/agreement/retry", sid, nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	var started externalaction.Output
	status, _ = p.call(t, http.MethodPost, "/api/actions/agreement/start", sid, nil, &started)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, poller.StatePending, started.Action.State)

	status, env := p.call(t, http.MethodPost, "/api/actions/agreement/retry", sid, nil, nil)
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ACTION_NOT_RETRYABLE", env.Error.Code)
}
